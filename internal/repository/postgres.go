package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tweetvault/tweetvault/api/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tweets (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	text         TEXT NOT NULL,
	url          TEXT NOT NULL,
	quoted_id    TEXT,
	retweet_id   TEXT,
	author       JSONB NOT NULL,
	entities     JSONB NOT NULL,
	media        JSONB,
	card         JSONB
);
CREATE INDEX IF NOT EXISTS tweets_account_created_idx ON tweets (account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS accounts (
	account_id      TEXT PRIMARY KEY,
	latest_tweet_at TIMESTAMPTZ NOT NULL
);`

const insertTweetSQL = `
INSERT INTO tweets (id, account_id, created_at, text, url, quoted_id, retweet_id, author, entities, media, card)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

const upsertCheckpointSQL = `
INSERT INTO accounts (account_id, latest_tweet_at)
VALUES ($1, $2)
ON CONFLICT (account_id) DO UPDATE
SET latest_tweet_at = GREATEST(accounts.latest_tweet_at, EXCLUDED.latest_tweet_at)`

const selectCheckpointsSQL = `SELECT account_id, latest_tweet_at FROM accounts`

// pgxPool is the slice of pgxpool.Pool the store needs; pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresRepository persists the archive in Postgres. Inserts are
// id-deduplicated (ON CONFLICT DO NOTHING), so the reported count is the
// number of rows actually added; the checkpoint upsert is monotonic via
// GREATEST.
type PostgresRepository struct {
	pool pgxPool
}

// NewPostgresRepository connects a pgx pool from the DSN.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// NewPostgresRepositoryWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresRepositoryWithPool(pool pgxPool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Name() string {
	return "postgres"
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) GetUsersWithLatestTweetDate(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.pool.Query(ctx, selectCheckpointsSQL)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := make(map[string]time.Time)
	for rows.Next() {
		var account string
		var latest time.Time
		if err := rows.Scan(&account, &latest); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		checkpoints[account] = latest
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

func (r *PostgresRepository) SaveUserTweets(ctx context.Context, cp types.Checkpoint, tweets []*types.EnrichedTweet) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, tweet := range tweets {
		author, err := json.Marshal(tweet.User)
		if err != nil {
			return 0, fmt.Errorf("marshal author for %s: %w", tweet.ID, err)
		}
		entities, err := json.Marshal(tweet.Entities)
		if err != nil {
			return 0, fmt.Errorf("marshal entities for %s: %w", tweet.ID, err)
		}
		var media, card []byte
		if len(tweet.Media) > 0 {
			if media, err = json.Marshal(tweet.Media); err != nil {
				return 0, fmt.Errorf("marshal media for %s: %w", tweet.ID, err)
			}
		}
		if tweet.Card != nil {
			if card, err = json.Marshal(tweet.Card); err != nil {
				return 0, fmt.Errorf("marshal card for %s: %w", tweet.ID, err)
			}
		}

		tag, err := tx.Exec(ctx, insertTweetSQL,
			tweet.ID, cp.AccountID, tweet.CreatedAt, tweet.Text, tweet.URL,
			nullable(tweet.QuotedID), nullable(tweet.RetweetID),
			author, entities, media, card,
		)
		if err != nil {
			return 0, fmt.Errorf("insert tweet %s: %w", tweet.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if _, err := tx.Exec(ctx, upsertCheckpointSQL, cp.AccountID, cp.LatestTweetAt); err != nil {
		return 0, fmt.Errorf("advance checkpoint for %s: %w", cp.AccountID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
