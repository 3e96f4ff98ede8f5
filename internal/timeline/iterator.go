// Package timeline walks an account's timeline one cursor-addressed page at
// a time, turning raw upstream pages into enriched fetch batches.
package timeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/enrich"
	"github.com/tweetvault/tweetvault/internal/pool"
	"github.com/tweetvault/tweetvault/internal/twitter"
)

// Fetcher produces timeline pages through the credential pool.
type Fetcher struct {
	pool     *pool.Pool
	pageSize int
	onPage   func(accountID string, tweets int)
}

type FetcherOption func(*Fetcher)

// WithPageSize sets the page size requested from upstream.
func WithPageSize(n int) FetcherOption {
	return func(f *Fetcher) { f.pageSize = n }
}

// WithPageHook installs a callback invoked after every fetched page.
func WithPageHook(fn func(accountID string, tweets int)) FetcherOption {
	return func(f *Fetcher) { f.onPage = fn }
}

func NewFetcher(p *pool.Pool, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{pool: p, pageSize: 40}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage retrieves and enriches one timeline page. An empty cursor fetches
// the newest page. HasMore is false when the page has no usable entries or no
// bottom cursor, which ends the sequence.
func (f *Fetcher) FetchPage(ctx context.Context, accountID, cursor string) (*types.FetchBatch, error) {
	body, err := f.pool.Run(ctx, func(ctx context.Context, c pool.Client) ([]byte, error) {
		return c.FetchTimeline(ctx, accountID, cursor, f.pageSize)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching page for %s: %w", accountID, err)
	}

	page, err := twitter.ParseTimelinePage(body)
	if err != nil {
		return nil, fmt.Errorf("parsing page for %s: %w", accountID, err)
	}

	tweets := enrich.EnrichBatch(page.Entries, accountID)
	if f.onPage != nil {
		f.onPage(accountID, len(tweets))
	}

	batch := &types.FetchBatch{
		Tweets: tweets,
		User: types.UserSummary{
			RestID:          page.User.RestID,
			ScreenName:      page.User.Legacy.ScreenName,
			Name:            page.User.Legacy.Name,
			ProfileImageURL: page.User.Legacy.ProfileImageURL,
		},
		NextCursor: page.NextCursor,
		HasMore:    len(page.Entries) > 0 && page.NextCursor != "",
	}
	return batch, nil
}

// Iterate starts a fresh walk of the account's timeline. Every call owns an
// independent cursor; a single Iterator must not be shared across goroutines.
func (f *Fetcher) Iterate(accountID, startCursor string) *Iterator {
	return &Iterator{fetcher: f, accountID: accountID, cursor: startCursor}
}

// Iterator yields pages lazily: nothing is fetched until Next is called, and
// page K+1 is only requested once page K's cursor is known. A fetch failure
// ends the sequence without surfacing an error from Next; Err reports it so
// callers can tell an exhausted timeline from a failed one.
type Iterator struct {
	fetcher   *Fetcher
	accountID string
	cursor    string
	done      bool
	err       error
}

// Next returns the next batch, or (nil, false) once the sequence has ended.
func (it *Iterator) Next(ctx context.Context) (*types.FetchBatch, bool) {
	if it.done {
		return nil, false
	}

	batch, err := it.fetcher.FetchPage(ctx, it.accountID, it.cursor)
	if err != nil {
		logrus.Errorf("timeline iteration for %s stopped: %v", it.accountID, err)
		it.err = err
		it.done = true
		return nil, false
	}

	if !batch.HasMore {
		it.done = true
	}
	it.cursor = batch.NextCursor
	return batch, true
}

// Err returns the error that terminated the sequence, if any.
func (it *Iterator) Err() error {
	return it.err
}
