package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/mmrzaf/mockagen/internal/definitions"
	"github.com/mmrzaf/mockagen/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doc",
		Aliases: []string{"document"},
		Short:   "Inspect definition documents",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := newDocumentRepo(documentsDir)
			if err != nil {
				return err
			}
			list, err := repo.List()
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tVERSION\tDEFINITIONS\tTABLES\tINCLUDES")
			for _, d := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", d.ID, d.Name, d.Version, len(d.Definitions), len(d.Tables), len(d.Include))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document as loaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := newDocumentRepo(documentsDir)
			if err != nil {
				return err
			}
			doc, err := repo.Get(args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(doc)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Resolve and validate a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolveArg(args[0])
			if err != nil {
				fmt.Printf("Validation failed: %v\n", err)
				return err
			}
			fmt.Printf("Document '%s' is valid (%d identifiers, %d tables)\n",
				res.Document.ID, res.Bindings.Len(), len(res.Document.Tables))
			return nil
		},
	}

	depsCmd := &cobra.Command{
		Use:   "deps <id|path>",
		Short: "List identifiers in evaluation order with their dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolveArg(args[0])
			if err != nil {
				return err
			}
			order, err := validation.TopologicalSort(res.Bindings)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "IDENTIFIER\tDEPENDS ON")
			for _, id := range order {
				dg, err := res.Bindings.Get(id)
				if err != nil {
					return err
				}
				deps := "-"
				if len(dg.Deps) > 0 {
					deps = strings.Join(dg.Deps, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\n", id, deps)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(listCmd, showCmd, validateCmd, depsCmd)
	return cmd
}

// resolveArg loads a document by id from the documents directory, or by path
// with includes resolved against the file's own directory.
func resolveArg(arg string) (*definitions.Resolved, error) {
	if !isPath(arg) {
		svc, _, err := documentService(documentsDir)
		if err != nil {
			return nil, err
		}
		return svc.LoadDocument(arg)
	}

	svc, repo, err := documentService(filepath.Dir(arg))
	if err != nil {
		return nil, err
	}
	doc, err := repo.GetByPath(filepath.Base(arg))
	if err != nil {
		return nil, err
	}
	return svc.ResolveDocument(doc)
}
