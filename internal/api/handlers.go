package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fleetopt/internal/buildinfo"
	"fleetopt/internal/engine"
	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
	"fleetopt/internal/store"
)

const (
	maxBodyBytes   = 1 << 20
	publishTimeout = 2 * time.Second
	// EventOptimizationCompleted is the webhook event type for new results.
	EventOptimizationCompleted = "optimization.completed"
)

// OptimizeHandler handles POST /api/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	var req model.OptimizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	in, err := s.buildInput(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Engine.Optimize(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.publish(r.Context(), res)
	writeJSON(w, http.StatusOK, res)
}

// publish fans a result out to stream subscribers and webhooks. Failures
// are logged; the caller still gets its result.
func (s *Server) publish(ctx context.Context, res *engine.Result) {
	body, err := json.Marshal(res)
	if err != nil {
		log.Printf("publish_failed id=%s err=%v", res.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	outcome := "ok"
	if err := s.Broker.Publish(ctx, Event{Type: EventResult, Payload: body}); err != nil {
		outcome = "error"
		log.Printf("publish_failed broker=%s id=%s err=%v", s.Broker.Name(), res.ID, err)
	}
	metrics.BrokerPublishes.WithLabelValues(s.Broker.Name(), outcome).Inc()
	if s.Notifier != nil {
		s.Notifier.Notify(EventOptimizationCompleted, body)
	}
}

// HistoryHandler handles GET /api/history
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.History())
}

// HealthHandler handles GET /api/health. A failing store reports degraded
// with 503.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:    "healthy",
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Store:     "ok",
		Broker:    s.Broker.Name(),
		Build:     buildinfo.Info(),
	}
	for _, n := range s.Engine.Solvers() {
		resp.AvailableSolvers = append(resp.AvailableSolvers, string(n))
	}
	status := http.StatusOK
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		resp.Status, resp.Store = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// SampleHandler handles GET /api/sample
func (s *Server) SampleHandler(w http.ResponseWriter, r *http.Request) {
	set, err := s.Store.GetStopSet(r.Context(), store.DefaultStopSet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.SampleResponse{
		Coordinates: set.Coordinates,
		TimeWindows: set.TimeWindows,
		Scenarios:   s.Engine.Scenarios(),
	})
}

// ListStopSetsHandler handles GET /api/stopsets
func (s *Server) ListStopSetsHandler(w http.ResponseWriter, r *http.Request) {
	sets, err := s.Store.ListStopSets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sets})
}

// GetStopSetHandler handles GET /api/stopsets/{name}
func (s *Server) GetStopSetHandler(w http.ResponseWriter, r *http.Request) {
	set, err := s.Store.GetStopSet(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// PutStopSetHandler handles PUT /api/stopsets/{name}. The path name wins;
// a different name in the body is rejected.
func (s *Server) PutStopSetHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var set model.StopSet
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&set); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if set.Name != "" && set.Name != name {
		writeError(w, r, &model.ValidationError{Field: "name", Reason: "does not match the path"})
		return
	}
	set.Name = name
	if err := s.Store.PutStopSet(r.Context(), set); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}
