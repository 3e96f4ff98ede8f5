package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/api/types"
)

// ErrNoBackends is returned when constructing a composite without backends.
var ErrNoBackends = errors.New("composite repository needs at least one backend")

// Composite fans the Repository contract out over N backends: checkpoint
// reads merge by maximum, writes broadcast with let-all-settle semantics.
type Composite struct {
	backends []Repository
	onError  func() // optional stats hook for per-backend write failures
}

type CompositeOption func(*Composite)

// WithWriteErrorHook installs a callback invoked when a backend write fails.
func WithWriteErrorHook(fn func()) CompositeOption {
	return func(c *Composite) { c.onError = fn }
}

func NewComposite(backends []Repository, opts ...CompositeOption) (*Composite, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	c := &Composite{backends: backends}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Composite) Name() string {
	return "composite"
}

// GetUsersWithLatestTweetDate queries every backend in parallel and merges
// per account by taking the maximum created_at seen. The maximum guarantees
// the syncer never re-fetches history any backend has already advanced past.
// A failing backend fails the merged read: a partial merge could silently
// regress a checkpoint.
func (c *Composite) GetUsersWithLatestTweetDate(ctx context.Context) (map[string]time.Time, error) {
	var (
		wg       sync.WaitGroup
		mutex    sync.Mutex
		merged   = make(map[string]time.Time)
		firstErr error
	)

	for _, backend := range c.backends {
		wg.Add(1)
		go func(backend Repository) {
			defer wg.Done()
			checkpoints, err := backend.GetUsersWithLatestTweetDate(ctx)

			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("backend %s: %w", backend.Name(), err)
				}
				return
			}
			for account, latest := range checkpoints {
				if latest.After(merged[account]) {
					merged[account] = latest
				}
			}
		}(backend)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// SaveUserTweets broadcasts the write to every backend. A failing backend is
// logged and does not block the others; the reported count comes from the
// last successful backend. Only when every backend fails does the write fail.
func (c *Composite) SaveUserTweets(ctx context.Context, cp types.Checkpoint, tweets []*types.EnrichedTweet) (int, error) {
	type settled struct {
		count int
		err   error
	}

	var wg sync.WaitGroup
	results := make([]settled, len(c.backends))
	for i, backend := range c.backends {
		wg.Add(1)
		go func(i int, backend Repository) {
			defer wg.Done()
			count, err := backend.SaveUserTweets(ctx, cp, tweets)
			results[i] = settled{count: count, err: err}
		}(i, backend)
	}
	wg.Wait()

	inserted := 0
	succeeded := false
	var lastErr error
	for i, r := range results {
		if r.err != nil {
			logrus.Errorf("backend %s failed to save %d tweets for %s: %v",
				c.backends[i].Name(), len(tweets), cp.AccountID, r.err)
			if c.onError != nil {
				c.onError()
			}
			lastErr = r.err
			continue
		}
		inserted = r.count
		succeeded = true
	}

	if !succeeded {
		return 0, fmt.Errorf("all backends failed: %w", lastErr)
	}
	return inserted, nil
}
