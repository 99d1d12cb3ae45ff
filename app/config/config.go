package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Log     Log     `yaml:"log"`
	API     API     `yaml:"api"`
	Chat    Chat    `yaml:"chat"`
	History History `yaml:"history"`
	Engine  Engine  `yaml:"engine"`
	Sandbox Sandbox `yaml:"sandbox"`
}

type API struct {
	// Base URL of the recommendations resource
	BaseURL string `yaml:"base_url" example:"http://localhost:8000/api/v1/recommendations" validate:"required,url"`
	// Timeout of a single remote call
	Timeout time.Duration `yaml:"timeout" example:"60s" validate:"gt=0"`
}

type Chat struct {
	// Number of places preselected in the composer
	DefaultPlaces int `yaml:"default_places" example:"3" validate:"min=2,max=5"`
}

type History struct {
	// Number of recommendations fetched per page
	PageSize int `yaml:"page_size" example:"10" validate:"min=1,max=100"`
}

type Engine struct {
	// Upper bound of remote calls running at the same time
	MaxInFlight int `yaml:"max_in_flight" example:"4" validate:"min=1,max=64"`
}

type Sandbox struct {
	// Serve the recommendations API in-process instead of calling base_url
	Enabled bool `yaml:"enabled" example:"false"`
	// Create requests allowed per minute, 0 disables limiting
	CreatesPerMinute int `yaml:"creates_per_minute" example:"30" validate:"min=0"`
}

type Log struct {
	// Console log level
	Level string `yaml:"level" example:"info" validate:"oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, oops.Errorf("failed to read config file: %w", err)
	default:
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	// .env is optional, values already present in the environment win
	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env: %w", err)
	}

	applyEnv(&result)
	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRAVELCHAT_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TRAVELCHAT_SANDBOX"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Sandbox.Enabled = enabled
		}
	}
	if v := os.Getenv("TRAVELCHAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRAVELCHAT_TELEGRAM_TOKEN"); v != "" {
		cfg.Log.Telegram.Token = v
	}
	if v := os.Getenv("TRAVELCHAT_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Log.Telegram.ChatID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api/v1/recommendations"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 60 * time.Second
	}
	if cfg.Chat.DefaultPlaces == 0 {
		cfg.Chat.DefaultPlaces = 3
	}
	if cfg.History.PageSize == 0 {
		cfg.History.PageSize = 10
	}
	if cfg.Engine.MaxInFlight == 0 {
		cfg.Engine.MaxInFlight = 4
	}
}
