package main

import (
	"fmt"
	"sort"
	"strconv"

	"phrasecut/internal/subtitle"

	"github.com/spf13/cobra"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var jsonOut bool
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "index [subtitle files...]",
		Short: "Build phrase indices from subtitle files",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			if caseSensitive {
				svc.FoldCase = false
			}

			paths := append([]string(nil), args...)
			if dir != "" {
				found, err := subtitle.FindFiles(dir)
				if err != nil {
					return err
				}
				paths = append(paths, found...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no subtitle files given; pass paths or --dir")
			}

			report, buildErr := svc.BuildIndices(cmd.Context(), paths)
			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
				return buildErr
			}

			out := cmd.OutOrStdout()
			if len(report.Built) > 0 {
				rows := make([][]string, 0, len(report.Built))
				for _, src := range report.Built {
					rows = append(rows, []string{src.ID, strconv.Itoa(src.Grams), src.Path})
				}
				fmt.Fprintln(out, renderTable([]string{"Source", "Grams", "Subtitle"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			if len(report.Failed) > 0 {
				ids := make([]string, 0, len(report.Failed))
				for id := range report.Failed {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, []string{id, report.Failed[id]})
				}
				fmt.Fprintln(out, renderTable([]string{"Failed", "Reason"}, rows, nil))
			}
			fmt.Fprintf(out, "Indexed %d of %d sources into %s\n", len(report.Built), len(report.Built)+len(report.Failed), svc.IndexDir)
			return buildErr
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Index every .srt/.vtt file in this directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Keep letter case in index keys")
	return cmd
}
