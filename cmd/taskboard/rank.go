package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

var (
	rankFile        string
	rankStrategy    string
	rankPendingOnly bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the priority ranking as JSON",
	Long: `Rank a JSON array of tasks (--file, "-" for stdin) or, without --file,
the tasks in the configured database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := resolveStrategy(rankStrategy)
		if err != nil {
			return err
		}

		var tasks []store.Task
		if rankFile != "" {
			tasks, err = readTasksFile(rankFile, cmd.InOrStdin())
		} else {
			tasks, err = loadStoredTasks(cmd.Context())
		}
		if err != nil {
			return err
		}

		engine, err := newEngine(cfg, logger)
		if err != nil {
			return err
		}
		return writeRanking(cmd.OutOrStdout(), engine, tasks, strategy, rankPendingOnly)
	},
}

func init() {
	rankCmd.Flags().StringVarP(&rankFile, "file", "f", "", "JSON file of tasks to rank")
	rankCmd.Flags().StringVarP(&rankStrategy, "strategy", "s", "", "strategy name or slug (default from config)")
	rankCmd.Flags().BoolVar(&rankPendingOnly, "pending-only", false, "omit completed tasks from the output")
}

func resolveStrategy(name string) (scoring.Strategy, error) {
	if name == "" {
		return cfg.DefaultStrategy()
	}
	return scoring.ParseStrategy(name)
}

func readTasksFile(path string, stdin io.Reader) ([]store.Task, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var tasks []store.LenientTask
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decode tasks from %s: %w", path, err)
	}
	return store.Tasks(tasks), nil
}

func loadStoredTasks(ctx context.Context) ([]store.Task, error) {
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	stored, err := db.ListTasks(ctx, store.TaskFilter{Limit: cfg.Scoring.MaxTasks})
	if err != nil {
		return nil, err
	}
	tasks := make([]store.Task, 0, len(stored))
	for _, t := range stored {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func writeRanking(w io.Writer, engine *scoring.Engine, tasks []store.Task, strategy scoring.Strategy, pendingOnly bool) error {
	ranked, err := engine.Rank(tasks, strategy)
	if err != nil {
		return err
	}
	if pendingOnly {
		ranked = scoring.PendingOnly(ranked)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}
