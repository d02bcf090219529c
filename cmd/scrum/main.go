// scrum tracks workers, tasks and sprints in a local SQLite database and
// serves the sprint dashboard API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"scrum/internal/config"
	"scrum/internal/storage/sqlite"
)

// Global flags.
var (
	flagConfig      string
	flagDB          string
	flagStrictNames bool
	flagLogLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "scrum",
	Short: "Sprint planning backed by a task dependency graph",
	Long: `scrum keeps workers, tasks, hour entries and sprints in one SQLite file.
Run "scrum serve" for the HTTP API or "scrum report" for sprint analytics.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "scrum.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to sqlite database file")
	rootCmd.PersistentFlags().BoolVar(&flagStrictNames, "strict-names", true, "reject duplicate worker, task and sprint names")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, reportCmd, orderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorPrefix.Render("error:"), err)
		os.Exit(1)
	}
}

// loadConfig merges defaults, the config file, SCRUM_* variables and the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = flagDB
	}
	if flags.Changed("strict-names") {
		cfg.StrictNames = flagStrictNames
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore loads the config and opens the database it names.
func openStore(cmd *cobra.Command) (*sqlite.Store, config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, nil, err
	}
	logger := newLogger(cfg)
	store, err := sqlite.Open(cfg.DBPath, logger, sqlite.Options{
		StrictNames: cfg.StrictNames,
		LockTimeout: cfg.LockTimeout,
	})
	if err != nil {
		return nil, cfg, logger, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	return store, cfg, logger, nil
}
