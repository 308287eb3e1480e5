// Package config loads service configuration from an optional YAML file,
// a .env file and environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fleetopt/internal/engine"
	"fleetopt/internal/qubo"
	"fleetopt/internal/solver"
	"fleetopt/internal/traffic"
)

type Config struct {
	Port         string         `yaml:"port"`
	LogLevel     string         `yaml:"log_level"`
	Solver       SolverConfig   `yaml:"solver"`
	Annealer     AnnealerConfig `yaml:"annealer"`
	Encoder      EncoderConfig  `yaml:"encoder"`
	Traffic      TrafficConfig  `yaml:"traffic"`
	DatabaseURL  string         `yaml:"database_url"`
	RedisURL     string         `yaml:"redis_url"`
	Kafka        KafkaConfig    `yaml:"kafka"`
	Rate         RateConfig     `yaml:"rate"`
	AllowOrigins []string       `yaml:"allow_origins"`
	Webhooks     WebhookConfig  `yaml:"webhooks"`
	Limits       LimitsConfig   `yaml:"limits"`
}

type SolverConfig struct {
	Mode         string        `yaml:"mode"`
	TimeLimit    time.Duration `yaml:"time_limit"`
	NumReads     int           `yaml:"num_reads"`
	Seed         int64         `yaml:"seed"`
	MaxExactVars int           `yaml:"max_exact_vars"`
	AnnealSweeps int           `yaml:"anneal_sweeps"`
	Disabled     []string      `yaml:"disabled"`
}

// AnnealerConfig points at the remote hybrid/QPU service. An empty URL
// leaves both remote backends unavailable.
type AnnealerConfig struct {
	URL        string  `yaml:"url"`
	Token      string  `yaml:"token"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

type EncoderConfig struct {
	Lambda         float64 `yaml:"lambda"`
	ServiceMinutes float64 `yaml:"service_minutes"`
	MaxVars        int     `yaml:"max_vars"`
}

// LimitsConfig bounds a single optimization request.
type LimitsConfig struct {
	MaxNodes    int `yaml:"max_nodes"`
	MaxVehicles int `yaml:"max_vehicles"`
}

type TrafficConfig struct {
	Detailed  bool             `yaml:"detailed"`
	SpeedKmh  float64          `yaml:"speed_kmh"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

type ScenarioConfig struct {
	Name       string  `yaml:"name"`
	BaseFactor float64 `yaml:"base_factor"`
	Weather    string  `yaml:"weather"`
	ForcePeak  bool    `yaml:"force_peak"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// WebhookConfig lists URLs that receive every result, signed with Secret.
type WebhookConfig struct {
	URLs        []string `yaml:"urls"`
	Secret      string   `yaml:"secret"`
	MaxAttempts int      `yaml:"max_attempts"`
}

// RateConfig limits API requests; RPS <= 0 disables the limiter.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default is the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:     "5000",
		LogLevel: "info",
		Solver: SolverConfig{
			Mode:         string(solver.Auto),
			TimeLimit:    5 * time.Second,
			NumReads:     100,
			MaxExactVars: solver.DefaultMaxExactVars,
		},
		Annealer:     AnnealerConfig{RatePerSec: 2},
		Encoder:      EncoderConfig{Lambda: 100, ServiceMinutes: 5, MaxVars: qubo.DefaultMaxVars},
		Limits:       LimitsConfig{MaxNodes: engine.DefaultMaxNodes, MaxVehicles: engine.DefaultMaxVehicles},
		Traffic:      TrafficConfig{SpeedKmh: 30},
		Kafka:        KafkaConfig{Topic: "optimization.results"},
		Rate:         RateConfig{Burst: 20},
		AllowOrigins: []string{"*"},
	}
}

// Load builds the configuration. path falls back to CONFIG_PATH; a missing
// .env file is not an error, a missing or malformed YAML file is.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := decodeYAML(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Solver.Mode = getEnv("SOLVER_MODE", c.Solver.Mode)
	c.Annealer.URL = getEnv("ANNEALER_URL", c.Annealer.URL)
	c.Annealer.Token = getEnv("ANNEALER_TOKEN", c.Annealer.Token)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	if v := splitAndTrim(os.Getenv("KAFKA_BROKERS"), ","); len(v) > 0 {
		c.Kafka.Brokers = v
	}
	if v := splitAndTrim(os.Getenv("ALLOW_ORIGINS"), ","); len(v) > 0 {
		c.AllowOrigins = v
	}
	if v := splitAndTrim(os.Getenv("SOLVER_DISABLED"), ","); len(v) > 0 {
		c.Solver.Disabled = v
	}
	if v := splitAndTrim(os.Getenv("WEBHOOK_URLS"), ","); len(v) > 0 {
		c.Webhooks.URLs = v
	}
	c.Webhooks.Secret = getEnv("WEBHOOK_SECRET", c.Webhooks.Secret)

	var err error
	if c.Solver.TimeLimit, err = getEnvDuration("SOLVER_TIME_LIMIT", c.Solver.TimeLimit); err != nil {
		return err
	}
	if c.Solver.NumReads, err = getEnvInt("SOLVER_NUM_READS", c.Solver.NumReads); err != nil {
		return err
	}
	if c.Encoder.Lambda, err = getEnvFloat("QUBO_LAMBDA", c.Encoder.Lambda); err != nil {
		return err
	}
	if c.Rate.RPS, err = getEnvFloat("RATE_RPS", c.Rate.RPS); err != nil {
		return err
	}
	if c.Rate.Burst, err = getEnvInt("RATE_BURST", c.Rate.Burst); err != nil {
		return err
	}
	if c.Limits.MaxNodes, err = getEnvInt("MAX_NODES", c.Limits.MaxNodes); err != nil {
		return err
	}
	if c.Limits.MaxVehicles, err = getEnvInt("MAX_VEHICLES", c.Limits.MaxVehicles); err != nil {
		return err
	}
	if c.Webhooks.MaxAttempts, err = getEnvInt("WEBHOOK_MAX_ATTEMPTS", c.Webhooks.MaxAttempts); err != nil {
		return err
	}
	if v := os.Getenv("TRAFFIC_DETAILED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: TRAFFIC_DETAILED: %w", err)
		}
		c.Traffic.Detailed = b
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if _, err := solver.ParseName(c.Solver.Mode); err != nil {
		return fmt.Errorf("config: solver.mode: %w", err)
	}
	for _, d := range c.Solver.Disabled {
		if _, err := solver.ParseName(d); err != nil {
			return fmt.Errorf("config: solver.disabled: %w", err)
		}
	}
	if c.Solver.TimeLimit < 0 || c.Solver.NumReads < 0 {
		return errors.New("config: solver limits must be >= 0")
	}
	if c.Encoder.Lambda < 0 {
		return errors.New("config: encoder.lambda must be >= 0")
	}
	if c.Encoder.MaxVars < 0 || c.Limits.MaxNodes < 0 || c.Limits.MaxVehicles < 0 {
		return errors.New("config: encoder.max_vars and limits must be >= 0")
	}
	for i, sc := range c.Traffic.Scenarios {
		if strings.TrimSpace(sc.Name) == "" {
			return fmt.Errorf("config: traffic.scenarios[%d]: name required", i)
		}
		if sc.BaseFactor < 0 {
			return fmt.Errorf("config: traffic.scenarios[%d]: base_factor must be >= 0", i)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

// getEnvDuration accepts Go durations ("5s") or plain seconds ("5", "2.5").
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SimulatorOptions maps the traffic section onto simulator options.
// Configured scenarios replace built-ins of the same name.
func (c Config) SimulatorOptions() []traffic.Option {
	opts := []traffic.Option{traffic.WithDetailed(c.Traffic.Detailed), traffic.WithSpeed(c.Traffic.SpeedKmh)}
	for _, sc := range c.Traffic.Scenarios {
		w := traffic.Weather(sc.Weather)
		if w == "" {
			w = traffic.WeatherClear
		}
		opts = append(opts, traffic.WithScenario(traffic.Scenario{
			Name:       sc.Name,
			BaseFactor: sc.BaseFactor,
			Weather:    w,
			ForcePeak:  sc.ForcePeak,
		}))
	}
	return opts
}

// EngineLimits maps the limits section; zero keeps the engine defaults.
func (c Config) EngineLimits() engine.Limits {
	return engine.Limits{MaxNodes: c.Limits.MaxNodes, MaxVehicles: c.Limits.MaxVehicles}
}

// SolverOptions is the per-solve budget.
func (c Config) SolverOptions() solver.Options {
	return solver.Options{TimeLimit: c.Solver.TimeLimit, NumReads: c.Solver.NumReads, Seed: c.Solver.Seed}
}
