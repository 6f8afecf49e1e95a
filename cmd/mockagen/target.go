package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/infra/repos/targets"
	"github.com/mmrzaf/mockagen/internal/validation"
	"github.com/spf13/cobra"
)

func targetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Manage targets",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.targets.List()
			if err != nil {
				return err
			}
			list = targets.RedactTargets(list)

			if format == "json" {
				return printJSON(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tDSN")
			for _, t := range list {
				dsn := t.DSN
				if len(dsn) > 50 {
					dsn = dsn[:47] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Kind, dsn)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	var showRaw bool
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show target details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			t, err := st.targets.Get(args[0])
			if err != nil {
				return err
			}
			if !showRaw {
				t = targets.RedactTarget(t)
			}
			return printYAML(t)
		},
	}
	showCmd.Flags().BoolVar(&showRaw, "show-dsn", false, "Print the DSN without redaction")

	validateCmd := &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Validate a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				t   *domain.TargetConfig
				err error
			)
			repo := targets.NewFileRepository(targetsDir)
			if isPath(args[0]) {
				t, err = repo.GetByPath(args[0])
			} else {
				t, err = repo.Get(args[0])
			}
			if err != nil {
				return err
			}

			if err := validation.NewValidator().ValidateTarget(t); err != nil {
				fmt.Printf("Validation failed: %v\n", err)
				return err
			}
			fmt.Printf("Target '%s' is valid\n", t.Name)
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Connect to a target and report its capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStack()
			if err != nil {
				return err
			}
			defer st.Close()

			check, err := st.svc.TestTarget(args[0])
			if check == nil {
				return err
			}
			if format == "json" {
				if perr := printJSON(check); perr != nil {
					return perr
				}
				return err
			}
			printCheck(check)
			if err == nil && !check.OK {
				err = errors.New("target check failed")
			}
			return err
		},
	}
	checkCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	cmd.AddCommand(listCmd, showCmd, validateCmd, checkCmd)
	return cmd
}

func printCheck(c *domain.TargetCheck) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Target:\t%s\n", c.TargetID)
	fmt.Fprintf(w, "OK:\t%t\n", c.OK)
	fmt.Fprintf(w, "Latency:\t%dms\n", c.LatencyMS)
	if c.ServerVer != "" {
		fmt.Fprintf(w, "Server:\t%s\n", c.ServerVer)
	}
	fmt.Fprintf(w, "Create/Insert/Truncate:\t%t/%t/%t\n",
		c.Capabilities.CanCreate, c.Capabilities.CanInsert, c.Capabilities.CanTruncate)
	if c.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", c.Error)
	}
	_ = w.Flush()
}
