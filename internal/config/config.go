// Package config loads todomirror settings from defaults, an optional TOML
// file, a .env file and TODOMIRROR_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TODOMIRROR_SERVER_ADDR.
const EnvPrefix = "TODOMIRROR"

// FileName is the config file base name searched for when none is given.
const FileName = "todomirror.toml"

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Remote RemoteConfig `mapstructure:"remote"`
	Mirror MirrorConfig `mapstructure:"mirror"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// RemoteConfig configures the upstream todo API.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// MirrorConfig configures the local mirror.
type MirrorConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// Mode selects the read path: "local" (mirror) or "remote" (direct).
	Mode string `mapstructure:"mode" validate:"oneof=local remote"`
}

// LogConfig configures the optional rotated log file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

var defaults = map[string]any{
	"server.addr":            ":8080",
	"server.read_timeout":    "15s",
	"server.write_timeout":   "30s",
	"server.request_timeout": "30s",
	"remote.base_url":        "https://jsonplaceholder.typicode.com",
	"remote.timeout":         "10s",
	"mirror.path":            filepath.Join("data", "tasks.db"),
	"mirror.mode":            "local",
	"log.file":               "",
	"log.max_size_mb":        10,
	"log.max_backups":        3,
	"log.max_age_days":       28,
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Loader reads configuration through a dedicated viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. configFile may be empty, in which case
// todomirror.toml is searched for in the working directory and
// $HOME/.config/todomirror.
func NewLoader(configFile string) *Loader {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "todomirror"))
		}
	}

	return &Loader{v: v}
}

// Load reads .env, the config file (if any) and the environment, then validates.
// A missing config file is not an error unless it was named explicitly.
func (l *Loader) Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the file read by Load, or "".
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the re-read configuration whenever the config file
// changes. Invalid edits are logged and ignored. It does nothing when no file was loaded.
func (l *Loader) Watch(logger *log.Logger, onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			logger.Printf("WARNING: ignoring config change in %s: %v", e.Name, err)
			return
		}
		logger.Printf("Config file changed: %s", e.Name)
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

// WriteDefault writes the default configuration as TOML to path.
// An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	tables := make(map[string]map[string]any)
	for key, val := range defaults {
		section, name, _ := strings.Cut(key, ".")
		if tables[section] == nil {
			tables[section] = make(map[string]any)
		}
		tables[section][name] = val
	}

	// #nosec G304 - controlled path from CLI
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(tables); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
