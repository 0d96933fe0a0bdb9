package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/env-validator/internal/config"
	"github.com/jonathan/env-validator/internal/db"
	"github.com/jonathan/env-validator/internal/observability"
)

func newHistoryCommand() *cobra.Command {
	var (
		databaseURL string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded validation runs",
		Long: `Without arguments, lists the most recent validation runs stored in the run
history database. With a run id, shows that run's step timings and an issue summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID uuid.UUID
			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id %q: %w", args[0], err)
				}
				runID = id
			}

			if !cmd.Flags().Changed("db-url") {
				databaseURL = os.Getenv(config.EnvDatabaseURL)
			}
			if databaseURL == "" {
				return errors.New("run history needs a database: set --db-url or " + config.EnvDatabaseURL)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), dbConnectTimeout)
			database, err := db.Connect(ctx, databaseURL)
			cancel()
			if err != nil {
				return err
			}
			defer database.Close()

			if runID == uuid.Nil {
				runs, err := database.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			}
			return showRun(cmd.Context(), cmd.OutOrStdout(), database, runID)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "db-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	cmd.Flags().IntVarP(&limit, "limit", "n", db.DefaultListLimit, "Maximum number of runs to list")

	return cmd
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func printRuns(out io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tPROJECT\tENVIRONMENT\tSTATUS\tISSUES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Project, r.Environment, r.Status, r.IssueCount)
	}
	w.Flush()
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func showRun(ctx context.Context, out io.Writer, database *db.DB, runID uuid.UUID) error {
	run, err := database.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	fmt.Fprintf(out, "Run %s: %s / %s, task %s, %s with %d issues\n",
		run.ID, run.Project, run.Environment, run.TaskID, run.Status, run.IssueCount)

	steps, err := database.ListRunSteps(ctx, runID)
	if err != nil {
		return err
	}
	records, err := database.ListRecords(ctx, runID)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(out)
	printer.PrintStepTimings(steps)
	printer.PrintIssueSummary(records)
	return nil
}
