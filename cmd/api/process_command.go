package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanbaker/minutes/internal/app"
	"github.com/ethanbaker/minutes/internal/processing"
	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <meeting-id>",
		Short: "Process one meeting and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := ctx.build(runCtx)
			if err != nil {
				return err
			}
			defer shutdown(a)

			// Runs through the dispatcher so a shared lock is honoured
			var runErr error
			a.Dispatcher.OnDone = func(meetingID string, err error) {
				runErr = err
			}
			if err := a.Dispatcher.Dispatch(runCtx, args[0]); err != nil {
				return err
			}
			a.Dispatcher.Wait()
			if runErr != nil {
				return runErr
			}

			summary, err := a.Store.LatestSummary(runCtx, args[0])
			if err != nil {
				return err
			}
			decisions, err := a.Store.ListDecisions(runCtx, args[0])
			if err != nil {
				return err
			}
			items, err := a.Store.ListActionItems(runCtx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Summary:\n%s\n\n", summary.Text)
			fmt.Fprintf(out, "Decisions (%d):\n", len(decisions))
			for _, d := range decisions {
				fmt.Fprintf(out, "  - %s\n", d.Text)
			}
			fmt.Fprintf(out, "Action items (%d):\n", len(items))
			for _, item := range items {
				due := "no due date"
				if item.DueDate != nil {
					due = "due " + item.DueDate.Format("2006-01-02")
				}
				fmt.Fprintf(out, "  - [%s] %s (%s, %s)\n", item.Status, item.Task, item.Owner, due)
			}
			return nil
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reprocess every meeting with a retryable failed transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := ctx.build(runCtx)
			if err != nil {
				return err
			}
			defer shutdown(a)

			sweeper := a.Sweeper
			if sweeper == nil {
				if sweeper, err = processing.NewSweeper(a.Store, a.Dispatcher, a.Transcriber.MaxAttempts(), "@hourly"); err != nil {
					return err
				}
			}

			ids, err := sweeper.Sweep(runCtx)
			if err != nil {
				return err
			}
			a.Dispatcher.Wait()

			fmt.Fprintf(cmd.OutOrStdout(), "Reprocessed %d meeting(s)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
			}
			return nil
		},
	}
}

func shutdown(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Shutdown(ctx)
}
