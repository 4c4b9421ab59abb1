package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	From      string
	To        string
	OutFormat string
	OutDir    string // "-" writes the file to stdout
}

// ExportOutput is the JSON payload of the report command.
type ExportOutput struct {
	Kind string `json:"kind"`
	File string `json:"file"`
	Path string `json:"path,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	kinds := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:   "report <kind>",
		Short: "Export a sales, expense, tax or GST report",
		Long: fmt.Sprintf(`Build a report over an inclusive date range and write it as a file.

Kinds: %s

Dates are YYYY-MM-DD and are compared against the order's calendar day in
report.timezone. CSV files start with a UTF-8 byte order mark.

Examples:
  offpos report sales --from 2024-03-01 --to 2024-03-31
  offpos report gstr1 --from 2024-03-01 --to 2024-03-31 --out-format json
  offpos report tax --from 2024-03-01 --to 2024-03-31 --out-dir -`, strings.Join(kinds, ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "first day of the range (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day of the range (required)")
	cmd.Flags().StringVar(&opts.OutFormat, "out-format", "csv", "file format (csv|json)")
	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "o", "", `output directory (default report.export_dir, "-" for stdout)`)
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runReport(opts *ReportOptions, kindArg string, cmd *cobra.Command) error {
	kind, err := report.ParseKind(kindArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid report kind", err)
	}
	format, err := report.ParseFormat(opts.OutFormat)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid output format", err)
	}
	rng := report.Range{From: opts.From, To: opts.To}
	if err := rng.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid range", err)
	}

	return withApp(opts.RootOptions, func(a *app, restaurantID string) error {
		outDir := opts.OutDir
		if outDir == "" {
			outDir = a.cfg.Report.ExportDir
		}

		var sink report.Sink
		var path func(string) string
		if outDir == "-" {
			sink = report.SinkFunc(func(_ context.Context, content []byte, _, _ string) error {
				_, err := cmd.OutOrStdout().Write(content)
				return err
			})
		} else {
			dir := report.DirSink{Dir: outDir}
			sink, path = dir, dir.Path
		}

		name, err := a.reports.Export(cmd.Context(), restaurantID, kind, rng, format, sink)
		if err != nil {
			return operationError("export failed", err)
		}
		if path == nil {
			return nil
		}

		out := ExportOutput{Kind: string(kind), File: name, Path: path(name)}
		f := opts.formatter(cmd)
		return f.Result(out, func() {
			f.Printf("Wrote %s\n", out.Path)
		})
	})
}
