package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/bootstrap"
	"github.com/kjstillabower/clima-service/internal/config"
	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
	"github.com/kjstillabower/clima-service/internal/validation"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	country    string
	unit       string
	cacheDB    string
	configPath string
	verbose    bool
}

// newRootCmd creates the clima command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "clima",
		Short:         "Search cities and show their weather",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.country, "country", "BR", "ISO 3166-1 alpha-2 country hint sent to the geocoder")
	rootCmd.PersistentFlags().StringVar(&opts.unit, "unit", string(models.UnitCelsius), "Temperature unit: celsius or fahrenheit")
	rootCmd.PersistentFlags().StringVar(&opts.cacheDB, "cache-db", defaultCacheDB(), "SQLite file for cached responses; empty keeps the cache in memory")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Optional YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log provider calls to stderr")

	rootCmd.AddCommand(searchCommand(opts), weatherCommand(opts))
	return rootCmd
}

// defaultCacheDB places the cache under the user cache dir, or returns "" when there is none.
func defaultCacheDB() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clima", "cache.db")
}

// loadConfig reads --config when given, else the defaults, and applies the flags.
func (o *options) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if o.configPath != "" {
		c, err := config.LoadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Default()
	}

	country, err := validation.NormalizeCountry(o.country)
	if err != nil {
		return nil, fmt.Errorf("--country: %w", err)
	}
	cfg.GeocodeCountry = country

	unit, err := models.ParseUnit(o.unit)
	if err != nil {
		return nil, fmt.Errorf("--unit %q: %w", o.unit, err)
	}
	cfg.DefaultUnit = unit

	if o.cacheDB != "" {
		cfg.CacheBackend = config.BackendSQLite
		cfg.SQLitePath = o.cacheDB
	} else if o.configPath == "" {
		cfg.CacheBackend = config.BackendInMemory
	}
	return cfg, nil
}

// build wires the components for one command run. The caller closes them.
func (o *options) build() (*bootstrap.Components, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if o.verbose {
		l, err := observability.NewLogger()
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		logger = l
	}
	return bootstrap.Build(cfg, logger)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
