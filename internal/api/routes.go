package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/stats"
	"github.com/tweetvault/tweetvault/internal/syncer"
)

// Server bundles what the handlers need.
type Server struct {
	syncer          *syncer.Syncer
	runs            *syncer.RunCache
	stats           *stats.Collector
	defaultAccounts []string
}

// startSync launches an asynchronous sync run and returns its UUID.
//
// The request body may name the accounts to sync; when it does not, the
// configured account list is used. The run record is retrievable from
// GET /sync/:uuid until it ages out of the run cache.
func (s *Server) startSync(baseCtx context.Context) func(c echo.Context) error {
	return func(c echo.Context) error {
		request := types.SyncRequest{}
		if err := c.Bind(&request); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		accounts := request.Accounts
		if len(accounts) == 0 {
			accounts = s.defaultAccounts
		}
		if len(accounts) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no accounts to sync")
		}

		run := types.SyncRun{
			UUID:      uuid.New().String(),
			Status:    types.RunStatusRunning,
			StartedAt: time.Now(),
		}
		s.runs.Set(run.UUID, run)

		// The run outlives the HTTP request; it is cancelled only by process
		// shutdown.
		go func() {
			logrus.Infof("Sync run %s started for %d accounts", run.UUID, len(accounts))
			run.Results = s.syncer.SyncAll(baseCtx, accounts)
			run.Status = types.RunStatusDone
			run.FinishedAt = time.Now()
			s.runs.Set(run.UUID, run)
			logrus.Infof("Sync run %s finished", run.UUID)
		}()

		return c.JSON(http.StatusOK, map[string]string{"uuid": run.UUID})
	}
}

func (s *Server) getSyncRun(c echo.Context) error {
	run, ok := s.runs.Get(c.Param("uuid"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown or expired run")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) getStats(c echo.Context) error {
	out, err := s.stats.Json()
	if err != nil {
		logrus.Errorf("Error while marshalling stats: %s", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSONBlob(http.StatusOK, out)
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
