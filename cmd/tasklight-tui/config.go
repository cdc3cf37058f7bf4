package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tasklight/tasklight/internal/model"
	"github.com/tasklight/tasklight/internal/tui"
)

// cliConfig holds only TUI-relevant configuration. Both binaries read
// the same config file; each picks out its own keys.
type cliConfig struct {
	UpdateInterval     time.Duration `mapstructure:"update-interval"`
	LogBuffer          int           `mapstructure:"log-buffer"`
	Skin               string        `mapstructure:"skin"`
	ReverseScrollWheel bool          `mapstructure:"reverse-scroll-wheel"`
	ServerURL          string        `mapstructure:"server-url"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("resolve home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TASKLIGHT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for key, val := range map[string]any{
		"update-interval":      tui.DefaultUpdateInterval,
		"log-buffer":           tui.DefaultLogBuffer,
		"skin":                 model.DefaultSkin,
		"reverse-scroll-wheel": false,
		"server-url":           model.DefaultServerBaseURL,
	} {
		v.SetDefault(key, val)
	}

	if configPath == "" {
		configPath = filepath.Join(home, ".config", "tasklight", "config.yml")
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.ServerURL == "" {
		cfg.ServerURL = model.DefaultServerBaseURL
	}
	return cfg, nil
}
