// Package console serves the operator HTTP console: a small JSON API over
// the index manager plus a single status page. It binds to localhost by
// default and carries no authentication.
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/semdex/semdex/internal/config"
	semerrors "github.com/semdex/semdex/internal/errors"
	"github.com/semdex/semdex/internal/index"
	"github.com/semdex/semdex/internal/report"
	"github.com/semdex/semdex/internal/scanner"
	"github.com/semdex/semdex/internal/session"
	"github.com/semdex/semdex/internal/store"
)

// progressTailLimit caps how many report lines one progress request returns.
const progressTailLimit = 200

// Deps carries the collaborators the console exposes.
type Deps struct {
	Manager  *index.Manager
	Store    store.Store
	Scanner  *scanner.Scanner
	Reporter *report.Reporter
	Cache    *session.Cache
	Config   *config.Config
}

// Console is the operator HTTP server.
type Console struct {
	echo *echo.Echo
	deps Deps
	addr string
}

// New creates the console server.
func New(addr string, deps Deps) *Console {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("console_request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("request_id", v.RequestID))
			return nil
		},
	}))

	con := &Console{echo: e, deps: deps, addr: addr}

	e.GET("/", con.handlePage)
	e.GET("/api/status", con.handleStatus)
	e.GET("/api/progress", con.handleProgress)
	e.POST("/api/index", con.handleIndex)
	e.POST("/api/cancel", con.handleCancel)
	e.POST("/api/reinitialize", con.handleReinitialize)

	return con
}

// Start runs the server until the context is cancelled.
func (c *Console) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := c.echo.Start(c.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("console_listening", slog.String("addr", c.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// statusResponse is the GET /api/status payload.
type statusResponse struct {
	State          string             `json:"state"`
	Initialized    bool               `json:"initialized"`
	TotalFiles     int                `json:"total_files"`
	IndexedFiles   int                `json:"indexed_files"`
	LastUpdated    *time.Time         `json:"last_updated,omitempty"`
	EmbeddingModel string             `json:"embedding_model"`
	PerModelStats  []store.ModelStats `json:"per_model_stats"`
	LastEvent      *index.Event       `json:"last_event,omitempty"`
	LastError      string             `json:"last_error,omitempty"`
}

func (c *Console) handleStatus(ec echo.Context) error {
	ctx := ec.Request().Context()

	stats, err := c.deps.Store.Stats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalFiles := 0
	if c.deps.Scanner != nil {
		if files, err := c.deps.Scanner.Scan(); err == nil {
			totalFiles = len(files)
		}
	}

	snap := c.deps.Manager.Status()
	return ec.JSON(http.StatusOK, statusResponse{
		State:          string(snap.State),
		Initialized:    stats.Initialized,
		TotalFiles:     totalFiles,
		IndexedFiles:   stats.IndexedFiles,
		LastUpdated:    stats.LastUpdated,
		EmbeddingModel: c.deps.Config.EmbeddingModel,
		PerModelStats:  stats.PerModel,
		LastEvent:      snap.LastEvent,
		LastError:      snap.LastError,
	})
}

// handleProgress tails the progress report log for the current run.
// Unknown fields in the log lines pass through untouched.
func (c *Console) handleProgress(ec echo.Context) error {
	if c.deps.Reporter == nil {
		return ec.JSON(http.StatusOK, []json.RawMessage{})
	}

	f, err := os.Open(c.deps.Reporter.FilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return ec.JSON(http.StatusOK, []json.RawMessage{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer func() { _ = f.Close() }()

	var lines []json.RawMessage
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 || !json.Valid(raw) {
			continue
		}
		lines = append(lines, json.RawMessage(append([]byte(nil), raw...)))
		if len(lines) > progressTailLimit {
			lines = lines[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ec.JSON(http.StatusOK, lines)
}

// indexRequest is the POST /api/index payload.
type indexRequest struct {
	ReindexAll bool `json:"reindex_all"`
}

func (c *Console) handleIndex(ec echo.Context) error {
	var req indexRequest
	if err := ec.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.deps.Manager.StartUpdate(index.Options{ReindexAll: req.ReindexAll}); err != nil {
		if semerrors.IsBusy(err) {
			return echo.NewHTTPError(http.StatusConflict, "an indexing operation is already in progress")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if c.deps.Cache != nil {
		c.deps.Cache.Invalidate()
	}
	return ec.JSON(http.StatusAccepted, map[string]any{
		"started":     true,
		"reindex_all": req.ReindexAll,
	})
}

func (c *Console) handleCancel(ec echo.Context) error {
	cancelled := c.deps.Manager.Cancel()
	return ec.JSON(http.StatusOK, map[string]any{"cancelled": cancelled})
}

func (c *Console) handleReinitialize(ec echo.Context) error {
	if c.deps.Manager.Running() {
		return echo.NewHTTPError(http.StatusConflict, "an indexing operation is already in progress")
	}

	if err := c.deps.Store.ClearAll(ec.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if c.deps.Cache != nil {
		c.deps.Cache.Invalidate()
	}
	return ec.JSON(http.StatusOK, map[string]any{"cleared": true})
}
