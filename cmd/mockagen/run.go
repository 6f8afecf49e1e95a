package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/spf13/cobra"
)

type runFlags struct {
	documentID   string
	documentPath string
	targetID     string
	targetDSN    string
	targetKind   string
	targetDB     string
	seed         int64
	mode         string
	scale        float64
	counts       []string
	include      []string
	exclude      []string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.documentID, "doc", "", "Document ID")
	cmd.Flags().StringVar(&f.documentPath, "doc-path", "", "Document file path inside the documents directory")
	cmd.Flags().StringVar(&f.targetID, "target-id", "", "Target ID")
	cmd.Flags().StringVar(&f.targetDSN, "target", "", "Target DSN")
	cmd.Flags().StringVar(&f.targetKind, "target-kind", "", "Target kind (required with --target)")
	cmd.Flags().StringVar(&f.targetDB, "target-db", "", "Override the database of a postgres target")
	cmd.Flags().Int64VarP(&f.seed, "seed", "s", 0, "Seed for RNG")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Table mode (create|truncate|append)")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "Multiply every table's row count")
	cmd.Flags().StringSliceVar(&f.counts, "count", nil, "Row counts per table (table=rows)")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Only generate these tables")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Skip these tables")
}

func (f *runFlags) request(cmd *cobra.Command, st *stack) (*domain.RunRequest, error) {
	req := &domain.RunRequest{
		Mode:           f.mode,
		TargetDatabase: f.targetDB,
		IncludeTables:  f.include,
		ExcludeTables:  f.exclude,
	}

	switch {
	case f.documentPath != "":
		doc, err := st.docRepo.GetByPath(f.documentPath)
		if err != nil {
			return nil, err
		}
		req.Document = doc
	case f.documentID != "":
		req.DocumentID = f.documentID
	default:
		return nil, errors.New("either --doc or --doc-path required")
	}

	switch {
	case f.targetDSN != "":
		if f.targetKind == "" {
			return nil, errors.New("--target-kind required when using --target DSN")
		}
		req.Target = &domain.TargetConfig{ID: "inline", Name: "inline-target", Kind: f.targetKind, DSN: f.targetDSN}
	case f.targetID != "":
		req.TargetID = f.targetID
	default:
		return nil, errors.New("either --target-id or --target required")
	}

	if cmd.Flags().Changed("seed") {
		req.Seed = &f.seed
	}
	if cmd.Flags().Changed("scale") {
		req.Scale = &f.scale
	}

	if len(f.counts) > 0 {
		req.TableCounts = make(map[string]int64, len(f.counts))
		for _, c := range f.counts {
			name, n, ok := strings.Cut(c, "=")
			if !ok {
				return nil, fmt.Errorf("invalid count format: %s", c)
			}
			rows, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid rows value: %s", n)
			}
			req.TableCounts[name] = rows
		}
	}
	return req, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	var (
		startFlags runFlags
		async      bool
	)

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Generate data into a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			req, err := startFlags.request(cmd, st)
			if err != nil {
				return err
			}

			if async {
				run, err := st.svc.StartRun(req)
				if err != nil {
					return err
				}
				fmt.Printf("Run started: %s\n", run.ID)
				return waitForRun(st, run.ID)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := st.svc.Run(ctx, req)
			if run == nil {
				return err
			}
			fmt.Printf("Run %s (seed %d)\n", run.ID, run.Seed)
			return reportRun(run)
		},
	}
	startFlags.register(startCmd)
	startCmd.Flags().BoolVar(&async, "async", false, "Start in the background and poll for completion")

	var planFlags runFlags
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve a run without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			req, err := planFlags.request(cmd, st)
			if err != nil {
				return err
			}
			plan, err := st.svc.PlanRun(req)
			if err != nil {
				return err
			}
			return printYAML(plan)
		},
	}
	planFlags.register(planCmd)

	var (
		limit  int
		status string
		format string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.svc.ListRuns(limit, status)
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDOCUMENT\tTARGET\tSTATUS\tROWS\tSTARTED")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					shortID(r.ID), r.DocumentName, r.TargetName, r.Status,
					r.ProgressRowsGenerated, r.ProgressRowsTotal, r.StartedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.svc.GetRun(args[0])
			if err != nil {
				return err
			}
			return printYAML(run)
		},
	}

	var logLimit int
	logsCmd := &cobra.Command{
		Use:   "logs <run_id>",
		Short: "Show run logs, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			logs, err := st.svc.ListRunLogs(args[0], logLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, l := range logs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.CreatedAt.Local().Format(time.DateTime), strings.ToUpper(l.Level), l.Message)
			}
			return w.Flush()
		},
	}
	logsCmd.Flags().IntVar(&logLimit, "limit", 100, "Limit results")

	cmd.AddCommand(startCmd, planCmd, listCmd, showCmd, logsCmd)
	return cmd
}

func waitForRun(st *stack, id string) error {
	fmt.Println("Waiting for completion...")
	for {
		time.Sleep(time.Second)
		run, err := st.svc.GetRun(id)
		if err != nil {
			return err
		}
		if run.Status == domain.RunStatusPending || run.Status == domain.RunStatusRunning {
			fmt.Printf("  %s: %d/%d rows\n", run.ProgressCurrentTable, run.ProgressRowsGenerated, run.ProgressRowsTotal)
			continue
		}
		return reportRun(run)
	}
}

func reportRun(run *domain.Run) error {
	if run.Status != domain.RunStatusSuccess {
		fmt.Printf("Run failed: %s\n", run.Error)
		return errors.New("run failed")
	}

	fmt.Println("Run completed successfully")
	if len(run.Stats) == 0 {
		return nil
	}
	var stats domain.RunStats
	if err := json.Unmarshal(run.Stats, &stats); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS\tDURATION")
	for _, t := range stats.TableStats {
		fmt.Fprintf(w, "%s\t%d\t%.2fs\n", t.TableName, t.RowsGenerated, t.DurationSeconds)
	}
	fmt.Fprintf(w, "total\t%d\t%.2fs\n", stats.TotalRows, stats.DurationSeconds)
	return w.Flush()
}
