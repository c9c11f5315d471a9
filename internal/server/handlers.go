package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/flags"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/storage"
)

// FlagStore is the subset of the flags store the API needs.
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
	Halted(ctx context.Context) (bool, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Runs    storage.RunHistory // Redis-backed run history
	Flags   FlagStore          // Redis-backed feature flags and kill switch
	DevMode bool               // Enable detailed error responses in development
	Logger  *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) log() *logrus.Logger {
	if h.Logger == nil {
		h.Logger = logrus.New()
	}
	return h.Logger
}

// Health reports whether the run cache answers.
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.Runs.Ping(ctx); err != nil {
		h.log().WithError(err).Warn("health check: redis unreachable")
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{OK: false, Redis: "unreachable"})
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Redis: "ok"})
}

// RecentRuns returns the newest run reports.
// Accepts limit query parameter (default: 20, range: 1-200)
func (h *Handlers) RecentRuns(c echo.Context) error {
	limit := 20
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentRuns {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Runs.RecentRuns(ctx, int64(limit))
	if err != nil {
		h.log().WithError(err).Error("failed to read recent runs")
		return h.err(c, http.StatusInternalServerError, "failed to get runs", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, RunsResponse{Items: items})
}

// LatestRun returns the most recent report, 404 when none was recorded yet.
func (h *Handlers) LatestRun(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Runs.RecentRuns(ctx, 1)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get runs", map[string]any{"err": err.Error()})
	}
	if len(items) == 0 {
		return h.err(c, http.StatusNotFound, "no runs recorded", nil)
	}
	return c.JSON(http.StatusOK, items[0])
}

// TradingStatus reports the kill switch.
func (h *Handlers) TradingStatus(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	halted, err := h.Flags.Halted(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to read kill switch", nil)
	}
	return c.JSON(http.StatusOK, TradingResponse{Halted: halted})
}

// HaltTrading sets the kill switch.
func (h *Handlers) HaltTrading(c echo.Context) error {
	return h.setHalted(c, true)
}

// ResumeTrading clears the kill switch.
func (h *Handlers) ResumeTrading(c echo.Context) error {
	return h.setHalted(c, false)
}

func (h *Handlers) setHalted(c echo.Context, halted bool) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if _, err := h.Flags.Upsert(ctx, constants.FlagTradingHalted, halted); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to set kill switch", nil)
	}
	h.log().WithField("halted", halted).Warn("kill switch changed")
	return c.JSON(http.StatusOK, TradingResponse{Halted: halted})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates the flag named in the path.
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet returns 404 if the flag doesn't exist.
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete returns 204 No Content on success.
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
