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
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "BOTINA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "BOTINA_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "model.base_url", typ: kString, env: "BOTINA_MODEL_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Model.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.BaseURL },
	},
	{
		key: "model.api_key", typ: kString, env: "BOTINA_MODEL_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Model.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.APIKey },
	},
	{
		key: "model.name", typ: kString, env: "BOTINA_MODEL_NAME",
		apply:   func(cfg *Config, v any) { cfg.Model.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Name },
	},
	{
		key: "gateway.base_url", typ: kString, env: "BOTINA_GATEWAY_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gateway.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.BaseURL },
	},
	{
		key: "gateway.token", typ: kString, env: "BOTINA_GATEWAY_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gateway.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.Token },
	},
	{
		key: "storage.data_dir", typ: kString, env: "BOTINA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "bot.entry_mode", typ: kString, env: "BOTINA_BOT_ENTRY_MODE",
		apply:   func(cfg *Config, v any) { cfg.Bot.EntryMode = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.EntryMode },
	},
	{
		key: "bot.history_cap", typ: kInt, env: "BOTINA_BOT_HISTORY_CAP",
		apply:   func(cfg *Config, v any) { cfg.Bot.HistoryCap = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.HistoryCap },
	},
	{
		key: "bot.lookback_years", typ: kInt, env: "BOTINA_BOT_LOOKBACK_YEARS",
		apply:   func(cfg *Config, v any) { cfg.Bot.LookbackYears = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.LookbackYears },
	},
	{
		key: "reminder.hour", typ: kInt, env: "BOTINA_REMINDER_HOUR",
		apply:   func(cfg *Config, v any) { cfg.Reminder.Hour = v.(int) },
		extract: func(cfg Config) any { return cfg.Reminder.Hour },
	},
	{
		key: "reminder.timezone", typ: kString, env: "BOTINA_REMINDER_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Reminder.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Reminder.Timezone },
	},
	{
		key: "log.level", typ: kString, env: "BOTINA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
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
