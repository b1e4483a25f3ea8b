package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Model    ModelConfig
	Gateway  GatewayConfig
	Storage  StorageConfig
	Bot      BotConfig
	Reminder ReminderConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type ModelConfig struct {
	BaseURL string
	APIKey  string
	Name    string
}

type GatewayConfig struct {
	BaseURL string
	Token   string
}

type StorageConfig struct {
	DataDir string
}

type BotConfig struct {
	EntryMode     string
	HistoryCap    int
	LookbackYears int
}

type ReminderConfig struct {
	Hour     int
	Timezone string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Model: ModelConfig{
			BaseURL: "https://api.openai.com/v1",
			Name:    "gpt-4o-mini",
		},
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Bot: BotConfig{
			EntryMode:     "free_form",
			HistoryCap:    20,
			LookbackYears: 5,
		},
		Reminder: ReminderConfig{
			Hour:     8,
			Timezone: "Africa/Johannesburg",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.botina.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/botina/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (BOTINA_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the API key if still empty.
	if cfg.Model.APIKey == "" {
		if key, err := kc.Get("botina", "model_api_key"); err == nil && key != "" {
			cfg.Model.APIKey = key
		}
	}

	if cfg.Model.APIKey == "" {
		msg := "missing required config: model API key. " +
			"Set it via environment variable BOTINA_MODEL_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Bot.EntryMode != "free_form" && cfg.Bot.EntryMode != "menu" {
		return fmt.Errorf("invalid bot.entry_mode %q: must be free_form or menu", cfg.Bot.EntryMode)
	}
	if cfg.Bot.HistoryCap <= 0 {
		return fmt.Errorf("invalid bot.history_cap %d: must be positive", cfg.Bot.HistoryCap)
	}
	if cfg.Bot.LookbackYears <= 0 {
		return fmt.Errorf("invalid bot.lookback_years %d: must be positive", cfg.Bot.LookbackYears)
	}
	if cfg.Reminder.Hour < 0 || cfg.Reminder.Hour > 23 {
		return fmt.Errorf("invalid reminder.hour %d: must be 0-23", cfg.Reminder.Hour)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
