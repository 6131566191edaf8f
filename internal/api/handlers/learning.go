package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/projeval/internal/contracts"
	"github.com/wonny/projeval/internal/learning"
	"github.com/wonny/projeval/pkg/logger"
	"github.com/wonny/projeval/pkg/redis"
)

const (
	defaultListLimit = 12
	maxListLimit         = 200
)

// Runner triggers one learning run
type Runner interface {
	Run(ctx context.Context) (*learning.RunResult, error)
}

// LearningHandler handles the learning dashboard endpoints
// ⭐ SSOT: 학습 대시보드 API 핸들러는 이 구조체에서만
type LearningHandler struct {
	reader learning.Reader
	runner Runner
	cache  *redis.Cache
	logger *logger.Logger
}

// NewLearningHandler creates a new learning handler
func NewLearningHandler(reader learning.Reader, runner Runner, cache *redis.Cache, log *logger.Logger) *LearningHandler {
	return &LearningHandler{
		reader: reader,
		runner: runner,
		cache:  cache,
		logger: log,
	}
}

// GetLatestSnapshot returns the most recent accuracy snapshot
// GET /api/learning/snapshots/latest
func (h *LearningHandler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := redis.GetOrLoad(r.Context(), h.cache, redis.LatestSnapshotKey, redis.TTLMedium,
		func(ctx context.Context) (*contracts.AccuracySnapshot, error) {
			return h.reader.LatestSnapshot(ctx)
		})
	if err != nil {
		if learning.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "No accuracy snapshot yet")
			return
		}
		h.logger.WithError(err).Error("Failed to get latest snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// ListSnapshots returns recent snapshots, newest first
// GET /api/learning/snapshots?limit=
func (h *LearningHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-200)")
		return
	}

	snapshots, err := redis.GetOrLoad(r.Context(), h.cache, redis.SnapshotListKey(limit), redis.TTLShort,
		func(ctx context.Context) ([]contracts.AccuracySnapshot, error) {
			return h.reader.ListSnapshots(ctx, limit)
		})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// ListSuggestions returns benchmark suggestions
// GET /api/learning/suggestions?status=pending
func (h *LearningHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	status := contracts.SuggestionStatus(r.URL.Query().Get("status"))
	if !oneOf(status, contracts.SuggestionPending, contracts.SuggestionAccepted, contracts.SuggestionRejected) {
		respondError(w, http.StatusBadRequest, "Invalid 'status'")
		return
	}

	suggestions, err := h.reader.ListSuggestions(r.Context(), status)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list suggestions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve suggestions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// ListProposals returns weight change proposals
// GET /api/learning/proposals?status=proposed
func (h *LearningHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	status := contracts.ChangeLogStatus(r.URL.Query().Get("status"))
	if !oneOf(status, contracts.ChangeProposed, contracts.ChangeApplied, contracts.ChangeRejected) {
		respondError(w, http.StatusBadRequest, "Invalid 'status'")
		return
	}

	proposals, err := h.reader.ListProposals(r.Context(), status)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list proposals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve proposals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"proposals": proposals,
		"count":     len(proposals),
	})
}

// ListMatches returns pattern matches, optionally for one project
// GET /api/learning/matches?project_id=
func (h *LearningHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.reader.ListMatches(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pattern matches")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve pattern matches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// ListAlerts returns platform alerts
// GET /api/learning/alerts?status=active&severity=high&limit=50
func (h *LearningHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := learning.AlertFilter{
		Status:   contracts.AlertStatus(q.Get("status")),
		Severity: contracts.AlertSeverity(q.Get("severity")),
	}
	if !oneOf(filter.Status, contracts.AlertActive, contracts.AlertAcknowledged, contracts.AlertResolved, contracts.AlertExpired) {
		respondError(w, http.StatusBadRequest, "Invalid 'status'")
		return
	}
	if !oneOf(filter.Severity, contracts.SeverityCritical, contracts.SeverityHigh, contracts.SeverityMedium, contracts.SeverityLow) {
		respondError(w, http.StatusBadRequest, "Invalid 'severity'")
		return
	}
	if q.Get("limit") != "" {
		limit, ok := parseLimit(r, 0)
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-200)")
			return
		}
		filter.Limit = limit
	}

	alerts, err := h.reader.ListAlerts(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list alerts")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve alerts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ListRuns returns recent learning runs
// GET /api/learning/runs?limit=
func (h *LearningHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-200)")
		return
	}

	runs, err := h.reader.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// RunResponse represents a manual learning run response
type RunResponse struct {
	Status string              `json:"status"`
	Result *learning.RunResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// TriggerRun runs the learning pipeline once, synchronously
// POST /api/learning/run
func (h *LearningHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	switch {
	case errors.Is(err, learning.ErrRunInProgress):
		respondJSON(w, http.StatusConflict, RunResponse{
			Status: "skipped",
			Error:  err.Error(),
		})
	case err != nil:
		h.logger.WithError(err).Error("Manual learning run failed")
		respondJSON(w, http.StatusInternalServerError, RunResponse{
			Status: "failed",
			Result: result,
			Error:  err.Error(),
		})
	default:
		respondJSON(w, http.StatusOK, RunResponse{
			Status: "success",
			Result: result,
		})
	}
}

// parseLimit reads ?limit=, falling back to def when absent
func parseLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxListLimit {
		return 0, false
	}
	return limit, true
}

// oneOf empty value = no filter
func oneOf[T ~string](v T, allowed ...T) bool {
	if v == "" {
		return true
	}
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
