package config

import (
	"os"
	"path/filepath"

	"github.com/scget/scget/pkg/logger"
	"github.com/spf13/viper"
)

// Config is a typed snapshot of the viper state at load time.
type Config struct {
	ClientID           string `mapstructure:"client_id"`
	AuthToken          string `mapstructure:"auth_token"`
	Path               string `mapstructure:"path"`
	ArchivePath        string `mapstructure:"archive_path"`
	NameFormat         string `mapstructure:"name_format"`
	PlaylistNameFormat string `mapstructure:"playlist_name_format"`
	MaxConcurrent      int    `mapstructure:"max_concurrent"`
}

const (
	DefaultNameFormat         = "{title}"
	DefaultPlaylistNameFormat = "{tracknumber} - {title}"
	DefaultMaxConcurrent      = 3
)

// Load reads ~/.config/scget/config.yaml if present. Defaults allow running
// without a config file; SCGET_* environment variables override everything.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	viper.SetDefault("client_id", "")
	viper.SetDefault("auth_token", "")
	viper.SetDefault("path", ".")
	viper.SetDefault("archive_path", filepath.Join(configDir(), "archive.db"))
	viper.SetDefault("name_format", DefaultNameFormat)
	viper.SetDefault("playlist_name_format", DefaultPlaylistNameFormat)
	viper.SetDefault("max_concurrent", DefaultMaxConcurrent)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SCGET")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.WithComponent("config").Debug("no config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &cfg, nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scget")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "scget")
}
