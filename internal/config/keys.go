package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "agent.base_url", typ: kString, env: "VERDANT_AGENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Agent.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.BaseURL },
	},
	{
		key: "agent.app_name", typ: kString, env: "VERDANT_AGENT_APP_NAME",
		apply:   func(cfg *Config, v any) { cfg.Agent.AppName = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.AppName },
	},
	{
		key: "agent.user_id", typ: kString, env: "VERDANT_AGENT_USER_ID",
		apply:   func(cfg *Config, v any) { cfg.Agent.UserID = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.UserID },
	},
	{
		key: "agent.timeout", typ: kString, env: "VERDANT_AGENT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Agent.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.Timeout },
	},
	{
		key: "schedule.interval", typ: kString, env: "VERDANT_SCHEDULE_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Schedule.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.Interval },
	},
	{
		key: "schedule.quiet_start_hour", typ: kInt, env: "VERDANT_SCHEDULE_QUIET_START_HOUR",
		apply:   func(cfg *Config, v any) { cfg.Schedule.QuietStartHour = v.(int) },
		extract: func(cfg Config) any { return cfg.Schedule.QuietStartHour },
	},
	{
		key: "schedule.quiet_end_hour", typ: kInt, env: "VERDANT_SCHEDULE_QUIET_END_HOUR",
		apply:   func(cfg *Config, v any) { cfg.Schedule.QuietEndHour = v.(int) },
		extract: func(cfg Config) any { return cfg.Schedule.QuietEndHour },
	},
	{
		key: "schedule.quiet_interval", typ: kString, env: "VERDANT_SCHEDULE_QUIET_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Schedule.QuietInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.QuietInterval },
	},
	{
		key: "session.max_age", typ: kString, env: "VERDANT_SESSION_MAX_AGE",
		apply:   func(cfg *Config, v any) { cfg.Session.MaxAge = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.MaxAge },
	},
	{
		key: "server.port", typ: kInt, env: "VERDANT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VERDANT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.session_path", typ: kString, env: "VERDANT_STORAGE_SESSION_PATH",
		apply:   func(cfg *Config, v any) { cfg.Storage.SessionPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.SessionPath },
	},
	{
		key: "storage.context_path", typ: kString, env: "VERDANT_STORAGE_CONTEXT_PATH",
		apply:   func(cfg *Config, v any) { cfg.Storage.ContextPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.ContextPath },
	},
	{
		key: "log.level", typ: kString, env: "VERDANT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
