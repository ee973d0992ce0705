package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	AppID       int
	AppHash     string
	SessionPath string
	Proxy       string
}

// Load reads the configuration from ~/.config/tgup/config.yaml and the
// TGUP_* environment variables (env wins). AppID and AppHash are
// required; everything else has defaults.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "tgup"))
	}
	v.SetEnvPrefix("TGUP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &AppConfig{
		AppID:   v.GetInt("app_id"),
		AppHash: v.GetString("app_hash"),
		Proxy:   v.GetString("proxy"),
	}
	if cfg.AppID == 0 || cfg.AppHash == "" {
		return nil, fmt.Errorf("app_id and app_hash must be set in the config file or via TGUP_APP_ID/TGUP_APP_HASH")
	}

	sessionPath, err := SessionPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get session path: %w", err)
	}
	cfg.SessionPath = sessionPath

	return cfg, nil
}

// SessionPath returns the path to the session file, creating the
// directory that holds it if needed.
func SessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	sessionDir := filepath.Join(home, ".tgup")
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return "", err
	}

	return filepath.Join(sessionDir, "session.json"), nil
}
