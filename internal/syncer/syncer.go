// Package syncer drives incremental timeline synchronization: it walks pages
// per account, filters against the stored checkpoint, and persists new tweets
// through the repository, running accounts under bounded concurrency.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/repository"
	"github.com/tweetvault/tweetvault/internal/stats"
	"github.com/tweetvault/tweetvault/internal/timeline"
)

// PageIterator yields one account's timeline pages. Err distinguishes a
// failed walk from an exhausted one after Next has returned false.
type PageIterator interface {
	Next(ctx context.Context) (*types.FetchBatch, bool)
	Err() error
}

// PageSource starts independent timeline walks.
type PageSource interface {
	Iterate(accountID, startCursor string) PageIterator
}

// SourceFromFetcher adapts the timeline fetcher to the PageSource interface.
func SourceFromFetcher(f *timeline.Fetcher) PageSource {
	return fetcherSource{f}
}

type fetcherSource struct {
	f *timeline.Fetcher
}

func (s fetcherSource) Iterate(accountID, startCursor string) PageIterator {
	return s.f.Iterate(accountID, startCursor)
}

// Syncer runs the per-account sync state machine.
type Syncer struct {
	source      PageSource
	repo        repository.Repository
	stats       *stats.Collector
	concurrency int
}

type Option func(*Syncer)

// WithConcurrency bounds how many accounts sync in parallel. The default is 1.
func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithStats wires the stats collector.
func WithStats(c *stats.Collector) Option {
	return func(s *Syncer) { s.stats = c }
}

func New(source PageSource, repo repository.Repository, opts ...Option) *Syncer {
	s := &Syncer{source: source, repo: repo, concurrency: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAccount runs one account to a terminal state. Tweets at or before the
// checkpoint are never persisted; the checkpoint watermark sent with each
// write is the newest created_at among that page's persisted tweets.
func (s *Syncer) SyncAccount(ctx context.Context, accountID string, checkpoint time.Time) types.AccountResult {
	result := types.AccountResult{Account: accountID}
	it := s.source.Iterate(accountID, "")

	prevOldestID := ""
	for {
		batch, ok := it.Next(ctx)
		if !ok {
			if err := it.Err(); err != nil {
				result.Outcome = types.OutcomeError
				result.Error = err.Error()
				s.stats.Add(accountID, stats.SyncErrors, 1)
				return result
			}
			result.Outcome = types.OutcomeExhausted
			return result
		}

		if len(batch.Tweets) == 0 {
			result.Outcome = types.OutcomeExhausted
			return result
		}

		filtered := make([]*types.EnrichedTweet, 0, len(batch.Tweets))
		for _, tweet := range batch.Tweets {
			if tweet.CreatedAt.After(checkpoint) {
				filtered = append(filtered, tweet)
			}
		}
		if len(filtered) == 0 {
			result.Outcome = types.OutcomeReachedCheckpoint
			return result
		}

		oldestID, newest := boundaries(filtered)
		if prevOldestID != "" && oldestID == prevOldestID {
			// Upstream pagination looped and served the same page twice.
			logrus.Warnf("duplicate pagination boundary for %s at tweet %s", accountID, oldestID)
			result.Outcome = types.OutcomeDuplicateBoundary
			return result
		}

		inserted, err := s.repo.SaveUserTweets(ctx, types.Checkpoint{
			AccountID:     accountID,
			LatestTweetAt: newest,
		}, filtered)
		if err != nil {
			result.Outcome = types.OutcomeError
			result.Error = err.Error()
			s.stats.Add(accountID, stats.SyncErrors, 1)
			return result
		}
		result.Inserted += inserted
		prevOldestID = oldestID
		logrus.Debugf("synced page for %s: %d new tweets (page had %d)", accountID, inserted, len(batch.Tweets))

		if !oldestCreatedAt(batch.Tweets).After(checkpoint) {
			// This page already reaches into synced history; anything older
			// is known, so stop after persisting it.
			result.Outcome = types.OutcomeReachedCheckpoint
			return result
		}
	}
}

// SyncAll syncs the accounts under bounded concurrency. Every account gets a
// result; one account's failure never aborts the others.
func (s *Syncer) SyncAll(ctx context.Context, accounts []string) []types.AccountResult {
	checkpoints, err := s.repo.GetUsersWithLatestTweetDate(ctx)
	if err != nil {
		logrus.Errorf("reading checkpoints failed: %v", err)
		results := make([]types.AccountResult, len(accounts))
		for i, account := range accounts {
			results[i] = types.AccountResult{
				Account: account,
				Outcome: types.OutcomeError,
				Error:   err.Error(),
			}
		}
		return results
	}

	logrus.Infof("Syncing %d accounts with concurrency %d", len(accounts), s.concurrency)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.concurrency)
	results := make([]types.AccountResult, len(accounts))

	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = s.SyncAccount(ctx, account, checkpoints[account])
			s.stats.Add(account, stats.AccountsSynced, 1)
		}(i, account)
	}
	wg.Wait()

	return results
}

// boundaries returns the oldest tweet's id and the newest created_at of a
// non-empty filtered page.
func boundaries(tweets []*types.EnrichedTweet) (oldestID string, newest time.Time) {
	oldest := tweets[0].CreatedAt
	oldestID = tweets[0].ID
	for _, tweet := range tweets {
		if tweet.CreatedAt.Before(oldest) {
			oldest = tweet.CreatedAt
			oldestID = tweet.ID
		}
		if tweet.CreatedAt.After(newest) {
			newest = tweet.CreatedAt
		}
	}
	return oldestID, newest
}

func oldestCreatedAt(tweets []*types.EnrichedTweet) time.Time {
	oldest := tweets[0].CreatedAt
	for _, tweet := range tweets {
		if tweet.CreatedAt.Before(oldest) {
			oldest = tweet.CreatedAt
		}
	}
	return oldest
}
