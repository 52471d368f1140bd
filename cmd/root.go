package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cache "github.com/krisalay/swrcache"
	"github.com/krisalay/swrcache/config"
	"github.com/krisalay/swrcache/engine"
	"github.com/krisalay/swrcache/fetch"
	"github.com/krisalay/swrcache/resource"
	"github.com/krisalay/swrcache/types"
	"github.com/krisalay/swrcache/writepolicy"
)

var (
	cfgFile  string
	cfg      *config.Config
	settings = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swrcache",
	Short: "Browse products, recipes and todos through a revalidating cache",
	Long: `swrcache talks to a dummyjson-shaped REST API through a
stale-while-revalidate cache: identical reads share one request, cached
pages are served instantly and writes trigger a revalidation of the lists
they touch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(settings, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("base-url", config.Default().BaseURL, "API base url | example: --base-url=http://localhost:9000")
	flags.String("log-level", config.Default().LogLevel, "log level: trace, debug, info, warn, error")
	flags.Duration("timeout", config.Default().HTTPTimeout, "HTTP timeout per request")

	_ = settings.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = settings.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = settings.BindPFlag("http_timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(productsCmd(), recipesCmd(), todosCmd(), demoCmd())
}

// app wires the cache stack from the loaded configuration.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	stats  *types.Stats
	cache  *cache.Coordinator
	client *resource.Client
	writes writepolicy.Policy
}

func newApp(cfg *config.Config, baseURL string) (*app, error) {
	log := cfg.Logger()
	entry := logrus.NewEntry(log)

	exec, err := fetch.New(baseURL, fetch.WithTimeout(cfg.HTTPTimeout), fetch.WithLogger(entry))
	if err != nil {
		return nil, err
	}

	stats := &types.Stats{}
	eng := engine.NewCacheEngine(cfg.Staleness(), cfg.Refresh(), exec, stats, entry)
	c := cache.NewCoordinator(cfg.Shards, cfg.Capacity, cfg.EvictionPolicy(), eng)

	return &app{
		cfg:    cfg,
		log:    log,
		stats:  stats,
		cache:  c,
		client: resource.NewClient(c, exec, cfg.Options(), entry),
		writes: writepolicy.NewDeferred(c, cfg.WriteRevalidateDelay, cfg.WriteQueueSize, entry),
	}, nil
}

func (a *app) Close() {
	a.writes.Close()
	a.cache.Close()
}

// settle waits until deferred revalidations have been issued.
func (a *app) settle(ctx context.Context) error {
	d, ok := a.writes.(*writepolicy.Deferred)
	if !ok {
		return nil
	}
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for d.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, cfg.BaseURL)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.HTTPTimeout+cfg.WriteRevalidateDelay)
		defer cancel()
		return fn(ctx, a, args)
	}
}

func failOn(err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return nil
}
