package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Store     StoreConfig     `yaml:"store"`
	Relay     RelayConfig     `yaml:"relay"`
	NATS      NATSConfig      `yaml:"nats"`
	Web       WebConfig       `yaml:"web"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Speech    SpeechConfig    `yaml:"speech"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Vault     VaultConfig     `yaml:"vault"`
}

// GatewayConfig configures the text-completion backend.
type GatewayConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	CoderModel string        `yaml:"coder_model"`
	FlashModel string        `yaml:"flash_model"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Path    string `yaml:"path"`
	DataDir string `yaml:"data_dir"`
}

type RelayConfig struct {
	IdleWarning time.Duration `yaml:"idle_warning"`
}

type NATSConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Auth    string `yaml:"auth"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type SpeechConfig struct {
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
	Voice  string `yaml:"voice"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type VaultConfig struct {
	Passphrase string `yaml:"passphrase"`
}

func defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			CoderModel: "gemini-2.5-pro",
			FlashModel: "gemini-flash-latest",
			Timeout:    2 * time.Minute,
		},
		Store: StoreConfig{
			Path:    "data/vibe.db",
			DataDir: "data",
		},
		Relay: RelayConfig{
			IdleWarning: 12 * time.Second,
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Scheduler: SchedulerConfig{
			PollInterval: 30 * time.Second,
		},
		Speech: SpeechConfig{
			URL:   "https://api.cartesia.ai/tts",
			Voice: "alloy",
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("VIBE_CONFIG")
	if path == "" {
		path = "config/vibe.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("VIBE_GATEWAY_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("VIBE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("VIBE_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("VIBE_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("VIBE_WEB_AUTH"); v != "" {
		cfg.Web.Auth = v
	}
	if v := os.Getenv("CARTESIA_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("VIBE_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("VIBE_TELEGRAM_CHAT"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("VIBE_VAULT_PASSPHRASE"); v != "" {
		cfg.Vault.Passphrase = v
	}
}
