package api

import (
	"net/http"
	"time"

	"fleetopt/internal/buildinfo"
)

// DebugJSON reports build info and the resolved configuration. Secrets and
// connection strings are reduced to presence flags.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"port":               c.Port,
			"solver_mode":        c.Solver.Mode,
			"solver_time_limit":  c.Solver.TimeLimit.String(),
			"solver_num_reads":   c.Solver.NumReads,
			"solver_disabled":    c.Solver.Disabled,
			"qubo_lambda":        c.Encoder.Lambda,
			"traffic_detailed":   c.Traffic.Detailed,
			"allow_origins":      c.AllowOrigins,
			"rate_rps":           c.Rate.RPS,
			"rate_burst":         c.Rate.Burst,
			"broker":             s.Broker.Name(),
			"webhook_targets":    len(c.Webhooks.URLs),
			"has_annealer_url":   c.Annealer.URL != "",
			"has_annealer_token": c.Annealer.Token != "",
			"has_database_url":   c.DatabaseURL != "",
			"has_redis_url":      c.RedisURL != "",
		},
		"available_solvers": s.Engine.Solvers(),
	})
}
