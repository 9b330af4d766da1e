package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"phrasecut/internal/ngram"
	"phrasecut/internal/query"

	"github.com/spf13/cobra"
)

const maxListedTimestamps = 4

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var format string
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Split text into the longest phrases found in the indices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			if caseSensitive {
				svc.FoldCase = false
			}

			result, err := svc.Query(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if outPath != "" {
				if err = result.WriteFile(outPath); err != nil {
					return err
				}
			}

			switch strings.ToLower(format) {
			case "json":
				return result.Write(cmd.OutOrStdout(), query.EncodingJSON)
			case "yaml":
				return result.Write(cmd.OutOrStdout(), query.EncodingYAML)
			case "", "table":
				printResult(cmd.OutOrStdout(), result)
				if outPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Result written to %s\n", outPath)
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the result to a .json or .yaml file for cut --result")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match letter case exactly")
	return cmd
}

func printResult(out io.Writer, result query.Result) {
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Phrase", "Kind", "Tokens", "Sources"},
		segmentRows(result),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintf(out, "%d of %d segments found, %.0f%% of tokens covered\n",
		len(result.Found()), len(result.Segments), result.Coverage()*100)
}

func segmentRows(result query.Result) [][]string {
	rows := make([][]string, 0, len(result.Segments))
	for i, seg := range result.Segments {
		sources := "not found"
		if seg.Found {
			sources = formatMatches(seg.Matches)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			seg.Text,
			string(seg.Kind),
			fmt.Sprintf("%d-%d", seg.Span[0], seg.Span[1]),
			sources,
		})
	}
	return rows
}

func formatMatches(matches []ngram.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		stamps := m.Timestamps
		more := ""
		if len(stamps) > maxListedTimestamps {
			more = fmt.Sprintf(" +%d", len(stamps)-maxListedTimestamps)
			stamps = stamps[:maxListedTimestamps]
		}
		formatted := make([]string, 0, len(stamps))
		for _, ts := range stamps {
			formatted = append(formatted, strconv.FormatFloat(ts, 'f', -1, 64))
		}
		parts = append(parts, fmt.Sprintf("%s @ %s%s", m.Source, strings.Join(formatted, ", "), more))
	}
	return strings.Join(parts, "\n")
}
