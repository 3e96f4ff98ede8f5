package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/internal/config"
	"github.com/tweetvault/tweetvault/internal/stats"
	"github.com/tweetvault/tweetvault/internal/syncer"
)

// Start serves the archiver API until the context is cancelled.
func Start(ctx context.Context, cfg config.AppConfig, sy *syncer.Syncer, collector *stats.Collector) error {
	// Echo instance
	e := echo.New()
	e.HideBanner = true

	switch config.ParseLogLevel(cfg.GetString("log_level", "info")) {
	case logrus.DebugLevel:
		e.Logger.SetLevel(log.DEBUG)
	case logrus.WarnLevel:
		e.Logger.SetLevel(log.WARN)
	case logrus.ErrorLevel:
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(APIKeyAuthMiddleware(cfg))

	if cfg.GetBool("profiling_enabled", false) {
		logrus.Info("Profiling enabled, registering pprof routes")
		pprof.Register(e)
	}

	server := &Server{
		syncer: sy,
		runs: syncer.NewRunCache(
			cfg.GetInt("run_cache_max_size", 100),
			cfg.GetDuration("run_cache_max_age_seconds", 3600),
		),
		stats:           collector,
		defaultAccounts: cfg.GetStringSlice("sync_accounts", []string{}),
	}

	// Routes
	e.POST("/sync", server.startSync(ctx))
	e.GET("/sync/:uuid", server.getSyncRun)
	e.GET("/stats", server.getStats)
	e.GET(HealthCheckPath, server.healthz)

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down API server")
		if err := e.Shutdown(context.Background()); err != nil {
			logrus.Errorf("Error shutting down server: %s", err)
		}
	}()

	listenAddress := cfg.ListenAddress()
	logrus.Infof("Listening on %s", listenAddress)
	if err := e.Start(listenAddress); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
