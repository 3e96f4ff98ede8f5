package types

import "time"

// Checkpoint is the per-account sync watermark: the newest created_at among
// the tweets a repository holds for the account. It only ever moves forward.
type Checkpoint struct {
	AccountID     string    `json:"account_id"`
	LatestTweetAt time.Time `json:"latest_tweet_at"`
}

// SyncOutcome is the terminal state of one account's sync run.
type SyncOutcome string

const (
	// OutcomeExhausted means the timeline ran out of pages.
	OutcomeExhausted SyncOutcome = "exhausted"
	// OutcomeReachedCheckpoint means a page reached already-synced history.
	OutcomeReachedCheckpoint SyncOutcome = "reached_checkpoint"
	// OutcomeDuplicateBoundary means two consecutive pages reported the same
	// oldest tweet, i.e. upstream pagination looped.
	OutcomeDuplicateBoundary SyncOutcome = "duplicate_boundary"
	// OutcomeError means the run stopped on an unrecoverable failure.
	OutcomeError SyncOutcome = "error"
)

// AccountResult reports one account's sync run. Inserted counts tweets
// persisted during this run even when the run later failed; already-written
// pages are never rolled back.
type AccountResult struct {
	Account  string      `json:"account"`
	Inserted int         `json:"inserted"`
	Outcome  SyncOutcome `json:"outcome"`
	Error    string      `json:"error,omitempty"`
}

func (r AccountResult) Success() bool {
	return r.Error == ""
}

// Run statuses stored in the run cache.
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
)

// SyncRun is the API-visible record of one sync invocation.
type SyncRun struct {
	UUID       string          `json:"uuid"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitzero"`
	Results    []AccountResult `json:"results,omitempty"`
}

// SyncRequest is the POST /sync request body.
type SyncRequest struct {
	Accounts    []string `json:"accounts"`
	Concurrency int      `json:"concurrency"`
}
