package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Config struct {
	Crooner  CroonerConfig
	Spotify  SpotifyConfig
	Pushover PushoverConfig
}

type CroonerConfig struct {
	BaseURL     string `env:"BASE_URL"`
	DbPath      string `env:"DB_PATH"`
	LogLevel    string `env:"LOG_LEVEL"`
	Port        string `env:"PORT"`
	AdminSecret string `env:"ADMIN_SECRET"`
	JobsEnabled string `env:"BACKGROUND_JOBS_ENABLED"`
}

type SpotifyConfig struct {
	ClientId     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	RedirectUri  string `env:"SPOTIFY_REDIRECT_URI"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

func Load() (*Config, error) {
	c := Config{}
	loader := config.New()
	if _, err := os.Stat(".env"); err == nil {
		loader.AddFeeder(feeder.DotEnv{Path: ".env"})
	}
	loader.AddFeeder(feeder.Env{})
	if err := loader.AddStruct(&c).Feed(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Crooner.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
