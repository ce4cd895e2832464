package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Taskboard/internal/config"
	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Task tracker with explainable priority ranking",
	Long: `Taskboard stores tasks and ranks them by a weighted blend of urgency,
importance, effort and dependencies. Four strategies are available:
Smart Balance, Deadline Driven, High Impact and Fastest Wins.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development.
		_ = godotenv.Load()

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
		// stdout carries command output such as rank's JSON.
		logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(eventsCmd)
}

func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(lc.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// taskStore is the store plus the migration hook both drivers provide.
type taskStore interface {
	store.Store
	Migrate(command string, logger *slog.Logger) error
}

func openStore(ctx context.Context, dc config.DatabaseConfig) (taskStore, error) {
	switch dc.Driver {
	case config.DriverPostgres:
		s, err := store.NewPostgresStore(ctx, dc.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(ctx, dc.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", dc.Driver)
	}
}

func newEngine(c *config.Config, l *slog.Logger) (*scoring.Engine, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(l, scoring.WithLocation(loc)), nil
}
