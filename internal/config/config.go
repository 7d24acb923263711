// Package config loads hole-sync settings from defaults, an optional
// config.yaml and HOLE_SYNC_* environment variables.
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

// EnvPrefix prefixes every environment override, e.g. HOLE_SYNC_SERVER_URL.
const EnvPrefix = "HOLE_SYNC"

// Config is the top-level configuration.
type Config struct {
	DB           string        `mapstructure:"db"`
	Registry     string        `mapstructure:"registry"`
	FallbackLang string        `mapstructure:"fallback_lang"`
	Server       ServerConfig  `mapstructure:"server"`
	Log          LogConfig     `mapstructure:"log"`
	Storage      StorageConfig `mapstructure:"storage"`
}

// ServerConfig holds code.golf connection settings.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Session string        `mapstructure:"session"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logger settings. An empty Dir disables the log file.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// StorageConfig bounds the draft cache. A zero Quota means unlimited.
type StorageConfig struct {
	Quota int64 `mapstructure:"quota"`
}

// DataDir is where the database and config file live by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hole-sync"
	}
	return filepath.Join(home, ".hole-sync")
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("db", filepath.Join(dataDir, "hole-sync.db"))
	v.SetDefault("registry", "")
	v.SetDefault("fallback_lang", "")

	v.SetDefault("server.url", "https://code.golf")
	v.SetDefault("server.session", "")
	v.SetDefault("server.timeout", 30*time.Second)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.max_size", 10) // MB
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7) // days

	v.SetDefault("storage.quota", 5<<20)
}

// Load reads the configuration. file names an explicit config file; when
// empty, config.yaml is looked up in dataDir and may be absent.
func Load(dataDir, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v, dataDir)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(dataDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.Storage.Quota < 0 {
		return nil, fmt.Errorf("storage.quota must not be negative, got %d", c.Storage.Quota)
	}
	return &c, nil
}
