// Package config loads runtime settings from defaults, an optional config
// file, a .env file and SWRCACHE_* environment variables, in that order of
// increasing precedence. Command-line flags bound to the same viper
// instance override all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/krisalay/swrcache/eviction"
	"github.com/krisalay/swrcache/expiration"
	"github.com/krisalay/swrcache/refresh"
	"github.com/krisalay/swrcache/types"
)

const EnvPrefix = "SWRCACHE"

type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	Shards   int    `mapstructure:"shards"`
	Capacity int    `mapstructure:"capacity"`
	Eviction string `mapstructure:"eviction"`

	// StaleAfter is how long fetched data counts as fresh. 0 means until invalidated.
	StaleAfter time.Duration `mapstructure:"stale_after"`

	// RefreshAhead revalidates hits within this window before StaleAfter. 0 disables it.
	RefreshAhead time.Duration `mapstructure:"refresh_ahead"`

	RevalidateOnFocus     bool `mapstructure:"revalidate_on_focus"`
	RevalidateOnReconnect bool `mapstructure:"revalidate_on_reconnect"`

	WriteRevalidateDelay time.Duration `mapstructure:"write_revalidate_delay"`
	WriteQueueSize       int           `mapstructure:"write_queue_size"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func Default() Config {
	return Config{
		BaseURL:              "https://dummyjson.com",
		HTTPTimeout:          15 * time.Second,
		Shards:               4,
		Capacity:             256,
		Eviction:             string(eviction.LRU),
		WriteRevalidateDelay: 500 * time.Millisecond,
		WriteQueueSize:       64,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// SetDefaults registers every key with its default so env overrides apply.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("shards", d.Shards)
	v.SetDefault("capacity", d.Capacity)
	v.SetDefault("eviction", d.Eviction)
	v.SetDefault("stale_after", d.StaleAfter)
	v.SetDefault("refresh_ahead", d.RefreshAhead)
	v.SetDefault("revalidate_on_focus", d.RevalidateOnFocus)
	v.SetDefault("revalidate_on_reconnect", d.RevalidateOnReconnect)
	v.SetDefault("write_revalidate_delay", d.WriteRevalidateDelay)
	v.SetDefault("write_queue_size", d.WriteQueueSize)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

/*
Load reads the configuration into v (a fresh viper when nil).

file is an optional yaml/json/toml config file. A .env file in the working
directory is loaded when present; variables already set in the environment
win over it.
*/
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Eviction = strings.ToUpper(strings.TrimSpace(cfg.Eviction))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.RequestURL),
		validation.Field(&c.HTTPTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Shards, validation.Required, validation.Min(1), validation.Max(1024)),
		validation.Field(&c.Capacity, validation.Min(0)),
		validation.Field(&c.Eviction, validation.Required, validation.In(string(eviction.LRU), string(eviction.LFU), string(eviction.FIFO))),
		validation.Field(&c.StaleAfter, validation.Min(time.Duration(0))),
		validation.Field(&c.RefreshAhead,
			validation.Min(time.Duration(0)),
			validation.When(c.RefreshAhead > 0, validation.By(func(any) error {
				if c.StaleAfter <= 0 || c.RefreshAhead >= c.StaleAfter {
					return errors.New("must be shorter than a positive stale_after")
				}
				return nil
			})),
		),
		validation.Field(&c.WriteRevalidateDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.WriteQueueSize, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.Required, validation.By(func(any) error {
			_, err := logrus.ParseLevel(c.LogLevel)
			return err
		})),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
}

// Logger builds a logrus logger with the configured level and format.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Options are the subscription options of resource views.
func (c Config) Options() types.Options {
	return types.Options{
		RevalidateOnFocus:     c.RevalidateOnFocus,
		RevalidateOnReconnect: c.RevalidateOnReconnect,
	}
}

func (c Config) Staleness() expiration.Strategy {
	return expiration.New(c.StaleAfter)
}

// Refresh returns the refresh-ahead hook, nil when disabled.
func (c Config) Refresh() refresh.Hook {
	return refresh.New(c.StaleAfter, c.RefreshAhead)
}

func (c Config) EvictionPolicy() eviction.PolicyType {
	return eviction.PolicyType(c.Eviction)
}
