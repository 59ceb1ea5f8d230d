package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the configuration Scholar runs with. It is loaded once at
// startup and passed by value.
type Settings struct {
	APIURL            string
	Username          string
	PollInterval      time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	LogFile           string
	Features          Features
}

// Features gates optional screens.
type Features struct {
	FinancialAid bool
	Email        bool
}

const (
	envPrefix             = "SCHOLAR"
	defaultConfigPath     = "~/.config/scholar/config.toml"
	defaultLogFile        = "~/.config/scholar/scholar.log"
	defaultAPIURL         = "127.0.0.1:8079"
	defaultPollSeconds    = 15
	defaultTimeoutSeconds = 10
	defaultRequestsPerSec = 5.0
)

// Load reads the config file at path (the default location when empty),
// overlays SCHOLAR_* environment variables and falls back to defaults when
// the file is missing.
func Load(path string) (Settings, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Settings{}, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetConfigType("toml")
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("username", "")
	v.SetDefault("poll_seconds", defaultPollSeconds)
	v.SetDefault("request_timeout_seconds", defaultTimeoutSeconds)
	v.SetDefault("requests_per_second", defaultRequestsPerSec)
	v.SetDefault("log_file", defaultLogFile)
	v.SetDefault("features.financial_aid", true)
	v.SetDefault("features.email", false)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		if err := v.ReadConfig(file); err != nil {
			return Settings{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Settings{}, fmt.Errorf("open config: %w", err)
	}

	s := Settings{
		APIURL:            strings.TrimSpace(v.GetString("api_url")),
		Username:          strings.TrimSpace(v.GetString("username")),
		PollInterval:      time.Duration(v.GetInt("poll_seconds")) * time.Second,
		RequestTimeout:    time.Duration(v.GetInt("request_timeout_seconds")) * time.Second,
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		LogFile:           strings.TrimSpace(v.GetString("log_file")),
		Features: Features{
			FinancialAid: v.GetBool("features.financial_aid"),
			Email:        v.GetBool("features.email"),
		},
	}

	if s.APIURL == "" {
		s.APIURL = defaultAPIURL
	}
	if s.PollInterval <= 0 {
		s.PollInterval = defaultPollSeconds * time.Second
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = defaultTimeoutSeconds * time.Second
	}
	if s.RequestsPerSecond < 0 {
		s.RequestsPerSecond = 0
	}
	if s.LogFile == "" {
		s.LogFile = defaultLogFile
	}
	s.LogFile = mustExpand(s.LogFile)

	return s, nil
}

// Validate reports settings Scholar cannot run without.
func (s Settings) Validate() error {
	if s.Username == "" {
		return fmt.Errorf("username is required (set username in config or SCHOLAR_USERNAME)")
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
