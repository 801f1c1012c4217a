// Package control exposes the four control operations spec.md §6
// defines for external collaborators: trigger_manual_batch,
// reset_circuit_breaker, status, and daily_limits_snapshot. It is a
// thin HTTP shell around *scheduler.Poller — all the logic lives there.
package control

import (
	"context"
	"errors"
	"net/http"
	"time"

	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/usecase/scheduler"
)

// Register mounts the control routes on mux, wrapping every handler with
// authMiddleware.
func Register(mux *http.ServeMux, poller *scheduler.Poller, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/control/batch", authMiddleware(http.HandlerFunc(triggerManualBatch(poller))))
	mux.Handle("/control/circuit-breaker/reset", authMiddleware(http.HandlerFunc(resetCircuitBreaker(poller))))
	mux.Handle("/control/status", authMiddleware(http.HandlerFunc(status(poller))))
	mux.Handle("/control/quota", authMiddleware(http.HandlerFunc(dailyLimitsSnapshot(poller))))
}

// triggerManualBatch implements trigger_manual_batch() -> ProcessingResult.
// A batch already in flight is reported as 409 Conflict rather than
// queued, matching TriggerManualBatch's ErrBatchInFlight contract.
func triggerManualBatch(poller *scheduler.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respond.Error(w, http.StatusMethodNotAllowed, errors.New("POST required"))
			return
		}
		result, err := poller.TriggerManualBatch(r.Context())
		if err != nil {
			if errors.Is(err, scheduler.ErrBatchInFlight) {
				respond.Error(w, http.StatusConflict, err)
				return
			}
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		respond.JSON(w, http.StatusOK, result)
	}
}

// resetCircuitBreaker implements reset_circuit_breaker(source_id) -> void.
func resetCircuitBreaker(poller *scheduler.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respond.Error(w, http.StatusMethodNotAllowed, errors.New("POST required"))
			return
		}
		sourceID := r.URL.Query().Get("source_id")
		if sourceID == "" {
			respond.Error(w, http.StatusBadRequest, errors.New("source_id query parameter required"))
			return
		}
		poller.ResetCircuitBreaker(sourceID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// statusResponse mirrors Status but renders CircuitSnapshot's
// gobreaker.State values as their string names — gobreaker.State
// doesn't implement json.Marshaler, so marshaling it directly would
// emit raw ints instead of "open"/"closed"/"half-open".
type statusResponse struct {
	IsProcessing    bool                        `json:"is_processing"`
	QueueSize       int                         `json:"queue_size"`
	LastProcessed   *scheduler.ProcessingResult `json:"last_processed"`
	CircuitSnapshot map[string]string           `json:"circuit_snapshot"`
}

// status implements status() -> {is_processing, queue_size, last_processed, circuit_snapshot}.
func status(poller *scheduler.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respond.Error(w, http.StatusMethodNotAllowed, errors.New("GET required"))
			return
		}
		s := poller.Status()
		snapshot := make(map[string]string, len(s.CircuitSnapshot))
		for sourceID, state := range s.CircuitSnapshot {
			snapshot[sourceID] = state.String()
		}
		respond.JSON(w, http.StatusOK, statusResponse{
			IsProcessing:    s.IsProcessing,
			QueueSize:       s.QueueSize,
			LastProcessed:   s.LastProcessed,
			CircuitSnapshot: snapshot,
		})
	}
}

// dailyLimitsSnapshot implements daily_limits_snapshot() -> totals and
// per-category counters/remaining.
func dailyLimitsSnapshot(poller *scheduler.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respond.Error(w, http.StatusMethodNotAllowed, errors.New("GET required"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		snap, err := poller.DailyLimitsSnapshot(ctx)
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		respond.JSON(w, http.StatusOK, snap)
	}
}
