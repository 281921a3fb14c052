package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-mentor/internal/config"
	"github.com/sevigo/code-mentor/internal/db"
	"github.com/sevigo/code-mentor/internal/storage"
)

var (
	reportsJSON  bool
	reportsLimit int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Lists recently generated reports stored by the Code-Mentor service",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		dbConn, cleanup, err := db.NewDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer cleanup()

		store := storage.NewStore(dbConn.DB)
		reports, err := store.ListRecentReports(ctx, reportsLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve reports: %w", err)
		}

		if reportsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(reports)
		}

		if len(reports) == 0 {
			fmt.Println("No reports have been generated yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REPORT ID\tSTATUS\tLANGUAGE\tCOMMENTS\tCREATED")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				r.ReportID,
				r.Status,
				r.Language,
				r.CommentCount,
				r.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	reportsCmd.Flags().BoolVar(&reportsJSON, "json", false, "Output reports as JSON")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "Maximum number of reports to list")
	rootCmd.AddCommand(reportsCmd)
}
