package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"phrasecut/config"
	"phrasecut/internal/appcore"
	"phrasecut/internal/clip"
	"phrasecut/internal/query"
	"phrasecut/internal/service"
	"phrasecut/internal/types"

	"github.com/spf13/cobra"
)

func newCutCommand(ctx *commandContext) *cobra.Command {
	var resultPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cut [text]",
		Short: "Cut a clip for every timestamp of every found phrase",
		Long: "Cut resolves the text (or loads a result saved by `query --out`) and extracts one clip per\n" +
			"timestamp. With the local backend it waits for the clips; with asynq it only enqueues them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}

			var result query.Result
			switch {
			case resultPath != "":
				if result, err = query.ReadResultFile(resultPath); err != nil {
					return err
				}
			case len(args) > 0:
				if result, err = svc.Query(strings.Join(args, " ")); err != nil {
					return err
				}
			default:
				return fmt.Errorf("pass text to resolve or --result")
			}

			local := config.Conf.Queue.Backend != config.QueueBackendAsynq
			var progress *progressObserver
			if local {
				ctx.recoverStale()
				if !jsonOut {
					progress = newProgressObserver(cmd.ErrOrStderr())
					svc.Observer = appcore.Combine(svc.Observer, progress)
				}
			}
			if _, err = ctx.useConfiguredRunner(svc); err != nil {
				return err
			}

			sub, err := svc.RunClips(cmd.Context(), result)
			if err != nil {
				return err
			}
			runID := sub.Run.RunId
			if !local {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d clips enqueued\n", runID, len(sub.Batch.Tasks))
				printDiagnostics(cmd.OutOrStdout(), sub.Batch.Diagnostics)
				return nil
			}

			if progress != nil {
				progress.setTotal(len(sub.Batch.Tasks))
			}
			waitErr := svc.Wait(cmd.Context(), runID)
			if progress != nil {
				progress.finish()
			}

			run, err := svc.GetRun(runID)
			if err != nil {
				return err
			}
			if jsonOut {
				if err = writeJSON(cmd, service.RunSubmission{Run: run, Batch: sub.Batch}); err != nil {
					return err
				}
				return waitErr
			}
			printRun(cmd.OutOrStdout(), run, isTerminal(cmd.OutOrStdout()))
			printDiagnostics(cmd.OutOrStdout(), sub.Batch.Diagnostics)
			return waitErr
		},
	}

	cmd.Flags().StringVarP(&resultPath, "result", "r", "", "Segmentation result file written by query --out")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the finished run as JSON")
	return cmd
}

func printRun(out io.Writer, run *types.ClipRun, colorize bool) {
	rows := make([][]string, 0, len(run.Tasks))
	for _, task := range run.Tasks {
		status := colorStatus(task.Status, colorize)
		if task.FailReason != "" {
			status += " " + task.FailReason
		}
		rows = append(rows, []string{
			strconv.Itoa(task.TaskIndex),
			task.Gram,
			task.Source,
			fmt.Sprintf("%.3f-%.3f", task.Start, task.End),
			task.Output,
			status,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Phrase", "Source", "Window", "Clip", "Status"},
			rows,
			[]columnAlignment{alignRight},
		))
	}
	fmt.Fprintf(out, "Run %s %s: %d succeeded, %d failed of %d (%s)\n",
		run.RunId, colorStatus(run.Status, colorize), run.Succeeded, run.Failed, run.Total, run.OutputDir)
}

func printDiagnostics(out io.Writer, diagnostics []clip.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}
	rows := make([][]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		rows = append(rows, []string{strconv.Itoa(d.Ordinal), d.Source, strconv.FormatFloat(d.Timestamp, 'f', -1, 64), d.Reason})
	}
	fmt.Fprintln(out, renderTable([]string{"Segment", "Source", "Timestamp", "Skipped because"}, rows, []columnAlignment{alignRight}))
}
