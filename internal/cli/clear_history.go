package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
)

var clearHistoryCmd = &cobra.Command{
	Use:   "clear-history [task_id]",
	Short: "Delete recovery history, optionally for a single task",
	Args:  cobra.MaximumNArgs(1),
	Run:   runClearHistory,
}

func init() {
	rootCmd.AddCommand(clearHistoryCmd)
}

func runClearHistory(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	// Direct SQL is fine here; the repo layer is built for the service path.
	var res int64
	if len(args) == 1 {
		out, err := db.ExecContext(ctx, "DELETE FROM recovery_history WHERE task_id = $1", args[0])
		if err != nil {
			slog.Error("Failed to clear history", "error", err)
			os.Exit(1)
		}
		res, _ = out.RowsAffected()
	} else {
		out, err := db.ExecContext(ctx, "DELETE FROM recovery_history")
		if err != nil {
			slog.Error("Failed to clear history", "error", err)
			os.Exit(1)
		}
		res, _ = out.RowsAffected()
	}

	fmt.Printf("Deleted %d recovery records\n", res)
}
