package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recovery outcomes per error type",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	rows, err := db.QueryContext(ctx, `
		SELECT error_type,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COALESCE(AVG(duration_ms), 0)
		FROM recovery_history
		GROUP BY error_type
		ORDER BY error_type`)
	if err != nil {
		slog.Error("Failed to query recovery history", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ERROR TYPE\tTOTAL\tRECOVERED\tAVG MS")

	for rows.Next() {
		var errorType string
		var total, recovered int64
		var avgMs float64
		if err := rows.Scan(&errorType, &total, &recovered, &avgMs); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.0f\n", errorType, total, recovered, avgMs)
	}
	_ = w.Flush()
}
