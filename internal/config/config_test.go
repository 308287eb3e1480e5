package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fleetopt.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "5000" || cfg.Solver.Mode != "auto" || cfg.Solver.TimeLimit != 5*time.Second || cfg.Solver.NumReads != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Encoder.Lambda != 100 {
		t.Fatalf("lambda = %v", cfg.Encoder.Lambda)
	}
	if cfg.Limits.MaxNodes != 50 || cfg.Limits.MaxVehicles != 10 || cfg.Encoder.MaxVars != 4096 {
		t.Fatalf("limits = %+v max_vars=%d", cfg.Limits, cfg.Encoder.MaxVars)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
port: "8080"
solver:
  mode: anneal
  time_limit: 2s
  num_reads: 20
  disabled: [qpu]
encoder:
  lambda: 250
traffic:
  detailed: true
  scenarios:
    - name: monsoon
      base_factor: 2.2
      weather: rain
kafka:
  brokers: [a:9092]
`)
	t.Setenv("SOLVER_NUM_READS", "7")
	t.Setenv("SOLVER_TIME_LIMIT", "1.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("PORT", "")
	t.Setenv("MAX_NODES", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("empty env must not override file: port=%q", cfg.Port)
	}
	if cfg.Solver.Mode != "anneal" || cfg.Encoder.Lambda != 250 || !cfg.Traffic.Detailed {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Solver.NumReads != 7 || cfg.Solver.TimeLimit != 1500*time.Millisecond {
		t.Fatalf("env overrides: reads=%d limit=%v", cfg.Solver.NumReads, cfg.Solver.TimeLimit)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.Kafka.Brokers, want) {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if l := cfg.EngineLimits(); l.MaxNodes != 12 || l.MaxVehicles != 10 {
		t.Fatalf("engine limits = %+v", l)
	}
	if !reflect.DeepEqual(cfg.Solver.Disabled, []string{"qpu"}) {
		t.Fatalf("disabled = %v", cfg.Solver.Disabled)
	}
	// two built-in options plus one per configured scenario
	if n := len(cfg.SimulatorOptions()); n != 3 {
		t.Fatalf("simulator options = %d", n)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]struct {
		yaml string
		env  map[string]string
	}{
		"unknown solver":   {yaml: "solver:\n  mode: neal\n"},
		"unknown field":    {yaml: "solvr:\n  mode: auto\n"},
		"unnamed scenario": {yaml: "traffic:\n  scenarios:\n    - base_factor: 1.2\n"},
		"bad int env":      {env: map[string]string{"SOLVER_NUM_READS": "many"}},
		"bad bool env":     {env: map[string]string{"TRAFFIC_DETAILED": "sometimes"}},
		"negative lambda":  {env: map[string]string{"QUBO_LAMBDA": "-1"}},
		"negative limit":   {env: map[string]string{"MAX_VEHICLES": "-2"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := ""
			if tc.yaml != "" {
				path = writeFile(t, tc.yaml)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
