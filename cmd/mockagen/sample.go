package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mmrzaf/mockagen/internal/app"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/spf13/cobra"
)

func sampleCmd() *cobra.Command {
	var (
		rows   int
		seed   int64
		format string
	)

	cmd := &cobra.Command{
		Use:   "sample <document> [identifier...]",
		Short: "Print generated rows without writing to a target",
		Long: "Generate rows for the given identifiers of a document, or for every " +
			"identifier it binds when none are given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := documentService(documentsDir)
			if err != nil {
				return err
			}

			req := &domain.PreviewRequest{DocumentID: args[0], Columns: args[1:], Rows: rows}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			preview, err := svc.Preview(req)
			if err != nil {
				return err
			}
			return printPreview(preview, format)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", app.DefaultPreviewRows, "Number of rows")
	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Seed for RNG")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table|csv|json)")
	return cmd
}

func printPreview(p *app.Preview, format string) error {
	switch format {
	case "json":
		out := make([]map[string]domain.Value, 0, len(p.Rows))
		for _, row := range p.Rows {
			m := make(map[string]domain.Value, len(p.Columns))
			for i, col := range p.Columns {
				m[col] = row[i]
			}
			out = append(out, m)
		}
		return printJSON(out)

	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(p.Columns); err != nil {
			return err
		}
		for _, row := range p.Rows {
			if err := w.Write(rowStrings(row)); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()

	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, strings.ToUpper(strings.Join(p.Columns, "\t")))
		for _, row := range p.Rows {
			fmt.Fprintln(w, strings.Join(rowStrings(row), "\t"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "seed: %d\n", p.Seed)
		return nil

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func rowStrings(row []domain.Value) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = v.String()
	}
	return out
}
