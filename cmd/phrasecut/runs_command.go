package main

import (
	"fmt"
	"strconv"

	"phrasecut/config"

	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent clip runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			runs, err := svc.ListRuns(limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clip runs yet")
				return nil
			}

			colorize := isTerminal(cmd.OutOrStdout())
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.RunId,
					run.Query,
					colorStatus(run.Status, colorize),
					fmt.Sprintf("%d/%d", run.Succeeded, run.Total),
					strconv.Itoa(run.Failed),
					run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Query", "Status", "Done", "Failed", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the clips of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			run, err := svc.GetRun(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, run)
			}
			printRun(cmd.OutOrStdout(), run, isTerminal(cmd.OutOrStdout()))
			return nil
		},
	}
	show.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	cmd.AddCommand(show)
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <run-id>",
		Short: "Cut the failed clips of a run again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			local := config.Conf.Queue.Backend != config.QueueBackendAsynq
			if local {
				ctx.recoverStale()
			}
			if _, err = ctx.useConfiguredRunner(svc); err != nil {
				return err
			}

			runID := args[0]
			_, retried, err := svc.RetryFailed(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if !local {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d clips enqueued again\n", runID, retried)
				return nil
			}

			waitErr := svc.Wait(cmd.Context(), runID)
			run, err := svc.GetRun(runID)
			if err != nil {
				return err
			}
			printRun(cmd.OutOrStdout(), run, isTerminal(cmd.OutOrStdout()))
			return waitErr
		},
	}
}
