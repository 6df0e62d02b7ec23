// Package config loads seatplan settings from an optional file plus
// SEATPLAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"seatplan/internal/storage"
)

// EnvConfigFile names the config file when --config is not given.
const EnvConfigFile = "SEATPLAN_CONFIG"

type User struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Server struct {
		Listen     string        `mapstructure:"listen"`
		ServerName string        `mapstructure:"server_name"`
		BasicAuth  bool          `mapstructure:"basic_auth"`
		Timeout    time.Duration `mapstructure:"timeout"`
		Users      []User        `mapstructure:"users"`
	} `mapstructure:"server"`
	Storage struct {
		storage.ConnParams `mapstructure:",squash"`

		Driver     string `mapstructure:"driver"`
		DSN        string `mapstructure:"dsn"`
		SQLitePath string `mapstructure:"sqlite_path"`
		Mongo      struct {
			URI      string `mapstructure:"uri"`
			Database string `mapstructure:"database"`
		} `mapstructure:"mongo"`
	} `mapstructure:"storage"`
	Catalog struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"catalog"`
	Client struct {
		BaseURL     string        `mapstructure:"base_url"`
		Timeout     time.Duration `mapstructure:"timeout"`
		ClassroomID int64         `mapstructure:"classroom_id"`
		Username    string        `mapstructure:"username"`
		Password    string        `mapstructure:"password"`
		Attempts    int           `mapstructure:"attempts"`
	} `mapstructure:"client"`
	Sync struct {
		Debounce  time.Duration `mapstructure:"debounce"`
		Timeout   time.Duration `mapstructure:"timeout"`
		Reconcile string        `mapstructure:"reconcile"`
	} `mapstructure:"sync"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

var defaults = map[string]any{
	"server.listen":          ":8080",
	"server.server_name":     "seatplan",
	"server.basic_auth":      false,
	"server.timeout":         60 * time.Second,
	"storage.driver":         "sqlite",
	"storage.dsn":            "",
	"storage.sqlite_path":    "",
	"storage.host":           "localhost",
	"storage.port":           0,
	"storage.user":           "",
	"storage.password":       "",
	"storage.database":       "seatplan",
	"storage.ssl_mode":       "",
	"storage.mongo.uri":      "",
	"storage.mongo.database": "",
	"catalog.path":           "",
	"client.base_url":        "http://localhost:8080",
	"client.timeout":         15 * time.Second,
	"client.classroom_id":    0,
	"client.username":        "",
	"client.password":        "",
	"client.attempts":        3,
	"sync.debounce":          600 * time.Millisecond,
	"sync.timeout":           15 * time.Second,
	"sync.reconcile":         "@every 2m",
	"log.level":              "info",
}

// Load reads path (or $SEATPLAN_CONFIG) when set, then applies the
// environment. A missing file is an error only when one was named.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("seatplan")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var ErrInvalid = errors.New("invalid config")

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "mysql":
	case "mongodb":
		if c.Storage.Mongo.URI == "" {
			return fmt.Errorf("%w: storage.mongo.uri required for mongodb", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalid, c.Storage.Driver)
	}
	if c.Server.BasicAuth && len(c.Server.Users) == 0 {
		return fmt.Errorf("%w: server.basic_auth needs server.users", ErrInvalid)
	}
	if c.Sync.Debounce < 0 {
		return fmt.Errorf("%w: negative sync.debounce", ErrInvalid)
	}
	return nil
}

// UserDB maps user names to passwords for basic auth; nil when disabled.
func (c *Config) UserDB() map[string]string {
	if !c.Server.BasicAuth {
		return nil
	}
	userdb := make(map[string]string, len(c.Server.Users))
	for _, u := range c.Server.Users {
		userdb[u.User] = u.Password
	}
	return userdb
}
