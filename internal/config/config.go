package config

import (
	"path/filepath"
)

type Config struct {
	Agent    AgentConfig
	Schedule ScheduleConfig
	Session  SessionConfig
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
}

type AgentConfig struct {
	BaseURL string
	AppName string
	UserID  string
	Timeout string // per-/run-call timeout, time.ParseDuration format
}

type ScheduleConfig struct {
	Interval       string // cadence between cycles
	QuietStartHour int    // [start, end) wall-clock window, wraps past midnight
	QuietEndHour   int
	QuietInterval  string // minimum gap between runs inside the quiet window
}

type SessionConfig struct {
	MaxAge string // session lifetime before handover rotation
}

type ServerConfig struct {
	Port int // local read-only API
}

type StorageConfig struct {
	DataDir     string
	SessionPath string // defaults to <data_dir>/session.json
	ContextPath string // defaults to <data_dir>/context.json
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Agent: AgentConfig{
			BaseURL: "http://agent:8080",
			AppName: "agent",
			UserID:  "default",
			Timeout: "20m",
		},
		Schedule: ScheduleConfig{
			Interval:       "30m",
			QuietStartHour: 22,
			QuietEndHour:   6,
			QuietInterval:  "2h",
		},
		Session: SessionConfig{
			MaxAge: "72h",
		},
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/verdant/config.json, then applies VERDANT_* environment
// overrides. There is no required setting: a missing or malformed backend
// file degrades to defaults with a warning.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The record paths follow the (possibly overridden) data dir unless set
	// explicitly.
	if cfg.Storage.SessionPath == "" {
		cfg.Storage.SessionPath = filepath.Join(cfg.Storage.DataDir, "session.json")
	}
	if cfg.Storage.ContextPath == "" {
		cfg.Storage.ContextPath = filepath.Join(cfg.Storage.DataDir, "context.json")
	}

	return cfg, nil
}
