// Package repository persists enriched tweets and per-account checkpoints.
// The syncer only ever sees the Repository interface; concrete backends and
// the composite fan-out live behind it.
package repository

import (
	"context"
	"time"

	"github.com/tweetvault/tweetvault/api/types"
)

// Repository is the persistence contract the sync orchestrator depends on.
type Repository interface {
	// GetUsersWithLatestTweetDate returns, per account, the newest created_at
	// this backend holds. Accounts with no tweets yet are absent.
	GetUsersWithLatestTweetDate(ctx context.Context) (map[string]time.Time, error)

	// SaveUserTweets persists a page of tweets and advances the account's
	// checkpoint to cp.LatestTweetAt, monotonically: a backend never moves a
	// checkpoint backward. It returns the number of tweets actually added.
	SaveUserTweets(ctx context.Context, cp types.Checkpoint, tweets []*types.EnrichedTweet) (int, error)

	// Name identifies the backend in logs.
	Name() string
}
