package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/internal/api"
	"github.com/tweetvault/tweetvault/internal/config"
	"github.com/tweetvault/tweetvault/internal/pool"
	"github.com/tweetvault/tweetvault/internal/repository"
	"github.com/tweetvault/tweetvault/internal/stats"
	"github.com/tweetvault/tweetvault/internal/syncer"
	"github.com/tweetvault/tweetvault/internal/timeline"
	"github.com/tweetvault/tweetvault/pkg/client"
)

func main() {
	cfg := config.ReadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := stats.StartCollector(cfg.GetUint("stats_buf_size", 128))

	credentialPool, err := buildPool(cfg, collector)
	if err != nil {
		logrus.Fatalf("Failed to build credential pool: %v", err)
	}

	repo, closeRepos, err := buildRepository(ctx, cfg, collector)
	if err != nil {
		logrus.Fatalf("Failed to build repository: %v", err)
	}
	defer closeRepos()

	fetcher := timeline.NewFetcher(credentialPool,
		timeline.WithPageSize(cfg.GetInt("timeline_page_size", 40)),
		timeline.WithPageHook(func(accountID string, tweets int) {
			collector.Add(accountID, stats.PagesFetched, 1)
			collector.Add(accountID, stats.TweetsEnriched, uint(tweets))
		}),
	)

	sy := syncer.New(syncer.SourceFromFetcher(fetcher), repo,
		syncer.WithConcurrency(cfg.GetInt("sync_concurrency", 1)),
		syncer.WithStats(collector),
	)

	if cfg.IsRunOnce() {
		runOnce(ctx, cfg, sy)
		return
	}

	if err := api.Start(ctx, cfg, sy, collector); err != nil {
		logrus.Fatalf("API server failed: %v", err)
	}
}

func buildPool(cfg config.AppConfig, collector *stats.Collector) (*pool.Pool, error) {
	credentials := cfg.GetStringSlice("timeline_credentials", []string{})

	var clientOpts []client.Option
	if base := cfg.GetString("upstream_base_url", ""); base != "" {
		clientOpts = append(clientOpts, client.BaseURL(base))
	}

	return pool.New(credentials, clientOpts, pool.WithRotationHook(func() {
		collector.AddGlobal(stats.CredentialRotations, 1)
	}))
}

func buildRepository(ctx context.Context, cfg config.AppConfig, collector *stats.Collector) (repository.Repository, func(), error) {
	var backends []repository.Repository

	fileRepo, err := repository.NewFileRepository(cfg.GetString("archive_dir", ""))
	if err != nil {
		return nil, nil, err
	}
	backends = append(backends, fileRepo)

	closeRepos := func() {}
	if dsn := cfg.GetString("postgres_dsn", ""); dsn != "" {
		pgRepo, err := repository.NewPostgresRepository(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		backends = append(backends, pgRepo)
		closeRepos = pgRepo.Close
	}

	composite, err := repository.NewComposite(backends, repository.WithWriteErrorHook(func() {
		collector.AddGlobal(stats.PersistenceErrors, 1)
	}))
	if err != nil {
		return nil, nil, err
	}
	return composite, closeRepos, nil
}

func runOnce(ctx context.Context, cfg config.AppConfig, sy *syncer.Syncer) {
	accounts := cfg.GetStringSlice("sync_accounts", []string{})
	if len(accounts) == 0 {
		logrus.Fatal("SYNC_ACCOUNTS is empty, nothing to sync")
	}

	results := sy.SyncAll(ctx, accounts)
	failures := 0
	for _, r := range results {
		if r.Success() {
			logrus.Infof("%s: %d inserted (%s)", r.Account, r.Inserted, r.Outcome)
		} else {
			logrus.Errorf("%s: failed after %d inserted: %s", r.Account, r.Inserted, r.Error)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}
