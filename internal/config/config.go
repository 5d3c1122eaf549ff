// Package config loads the CLI surface described in spec.md §6 and the
// optional app-config JSON sidecar, following the teacher's flag-based
// Config struct.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// Config holds the CLI-level settings for a single render invocation.
type Config struct {
	AudioPath     string
	XSQPath       string // optional starter/template XSQ path; parsed, but not read by the render path
	PlanPath      string
	AppConfigPath string
	DataDir       string // compile-cache directory for SQLite
	OutDir        string
	LogLevel      string
	Serve         bool
	ServePort     int
	AnalyzerAddr  string // gRPC address of the external audio-analysis collaborator
	AuthEnabled   bool   // gate the --serve gRPC API behind auth.Interceptor
}

// Parse parses args (normally os.Args[1:]) into a Config. It is a function of
// its arguments, not a global flag.Parse() call, so it is testable in
// isolation.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("twinklr-render", flag.ContinueOnError)
	cfg := &Config{}

	fs.StringVar(&cfg.AudioPath, "audio", "", "path to the audio file (consumed by the external audio-analysis collaborator)")
	fs.StringVar(&cfg.XSQPath, "xsq", "", "optional starter XSQ path (accepted but currently unused; no timing tracks are merged from it)")
	fs.StringVar(&cfg.PlanPath, "config", "", "path to the ChoreographyPlan JSON job file")
	fs.StringVar(&cfg.AppConfigPath, "app-config", "", "optional app-level JSON config (soft-home pose, gap thresholds, defaults)")
	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir(), "data directory for the compile-result cache")
	fs.StringVar(&cfg.OutDir, "out", ".", "output directory for the rendered XSQ and artifact bundle")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Serve, "serve", false, "start the optional gRPC render service instead of running once")
	fs.IntVar(&cfg.ServePort, "port", 50061, "gRPC port when --serve is set")
	fs.StringVar(&cfg.AnalyzerAddr, "analyzer-addr", "", "gRPC address of the audio-analysis collaborator (empty uses the CPU fallback)")
	fs.BoolVar(&cfg.AuthEnabled, "auth-enabled", false, "require an authorization token on the --serve gRPC API (disabled by default for local use)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if !cfg.Serve {
		if cfg.PlanPath == "" {
			return nil, fmt.Errorf("config error: --config (ChoreographyPlan JSON) is required")
		}
		if cfg.AudioPath == "" {
			return nil, fmt.Errorf("config error: --audio is required")
		}
	}

	return cfg, nil
}

func defaultDataDir() string {
	if dir := os.Getenv("TWINKLR_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".twinklr"
	}
	return home + "/.twinklr"
}

// AppConfig holds optional tunables that override pipeline defaults: the
// soft-home rest pose, gap-fill thresholds, and curve sampling density. All
// fields are optional; absence falls back to the documented spec defaults.
type AppConfig struct {
	SoftHomePanDeg   *float64 `json:"soft_home_pan_deg,omitempty"`
	SoftHomeTiltDeg  *float64 `json:"soft_home_tilt_deg,omitempty"`
	SmallGapMs       *int64   `json:"small_gap_ms,omitempty"`
	SampleCount      *int     `json:"n_samples,omitempty"`
	TransitionBudget *float64 `json:"transition_budget_fraction,omitempty"`
}

// LoadAppConfig reads an optional app-config JSON file. A missing path
// returns the zero-value AppConfig (all defaults), not an error — matching
// the spec's rule that MacroPlan/AudioProfile absence must not fail the
// pipeline.
func LoadAppConfig(path string) (*AppConfig, error) {
	if path == "" {
		return &AppConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read app config: %w", err)
	}
	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse app config: %w", err)
	}
	return &cfg, nil
}

const (
	DefaultSoftHomePanDeg  = 0.0
	DefaultSoftHomeTiltDeg = 0.0
	DefaultSmallGapMs      = int64(5000)
	DefaultNSamples        = 64
	DefaultTransitionCap   = 0.8
)

func (c *AppConfig) SoftHomePan() float64 {
	if c != nil && c.SoftHomePanDeg != nil {
		return *c.SoftHomePanDeg
	}
	return DefaultSoftHomePanDeg
}

func (c *AppConfig) SoftHomeTilt() float64 {
	if c != nil && c.SoftHomeTiltDeg != nil {
		return *c.SoftHomeTiltDeg
	}
	return DefaultSoftHomeTiltDeg
}

func (c *AppConfig) SmallGapThresholdMs() int64 {
	if c != nil && c.SmallGapMs != nil {
		return *c.SmallGapMs
	}
	return DefaultSmallGapMs
}

func (c *AppConfig) NSamples() int {
	if c != nil && c.SampleCount != nil && *c.SampleCount >= 2 {
		return *c.SampleCount
	}
	return DefaultNSamples
}

func (c *AppConfig) TransitionBudgetCap() float64 {
	if c != nil && c.TransitionBudget != nil {
		return *c.TransitionBudget
	}
	return DefaultTransitionCap
}
