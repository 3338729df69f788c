package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/acksell/electro/dynamodb/loader"
	"github.com/acksell/electro/dynamodb/registry"
	"github.com/acksell/electro/dynamodb/surface"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *App) typedefCommand() *cobra.Command {
	var output string
	var write bool
	cmd := &cobra.Command{
		Use:   "typedef <file>",
		Short: "Generate a type definition file for a schema",
		Long: `Generate type definitions for the items, enums and key shapes of a schema.
The result is printed unless -o names an output file or -w writes it next to the source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := loader.Resolve(args[0])
			if err != nil {
				return err
			}
			s, err := loader.Load(source)
			if err != nil {
				return err
			}
			out, err := surface.Typedef(s)
			if err != nil {
				return err
			}

			if write && output == "" {
				output = loader.OutputPath(source)
			}
			if output == "" {
				fmt.Fprint(a.out, out)
				return nil
			}
			if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return fmt.Errorf("writing type definitions: %w", err)
			}
			fmt.Fprintf(a.out, "Type definitions written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for the type definitions")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the type definitions next to the source file")
	return cmd
}

func (a *App) addCommand() *cobra.Command {
	var (
		e         registry.Entry
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Register a schema so its access patterns appear as commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := loader.Resolve(args[0])
			if err != nil {
				return err
			}
			s, err := loader.Load(source)
			if err != nil {
				return err
			}
			if s.RequiresTable && e.Table == "" {
				return fmt.Errorf("%s declares a model, a table is required (-t)", source)
			}

			e.Source = source
			if e.Label == "" {
				e.Label = s.Name
			}
			if err := a.reg.Add(e, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s %q as %s\n", s.Kind, s.Name, color.CyanString(e.Label))
			return nil
		},
	}
	cmd.Flags().StringVarP(&e.Label, "label", "l", "", "label for the instance (default: service or entity name)")
	cmd.Flags().StringVarP(&e.Table, "table", "t", "", "default table for the instance, required for models")
	cmd.Flags().StringVarP(&e.Endpoint, "endpoint", "e", "", "DynamoDB endpoint for the instance")
	cmd.Flags().StringVarP(&e.Region, "region", "r", "", "AWS region for the instance")
	cmd.Flags().BoolVar(&e.Local, "local", false, "serve the instance from the local store instead of DynamoDB")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "overwrite the label if it is already registered")
	return cmd
}

func (a *App) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <label>",
		Aliases: []string{"rm"},
		Short:   "Remove a registered instance",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, err := a.reg.Remove(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s\n", label)
			return nil
		},
	}
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered instances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.reg.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "No instances registered. Add one with 'electro add <file>'.")
				return nil
			}

			t := newTable(a.out, "LABEL", "KIND", "TABLE", "STORE", "SOURCE")
			for _, e := range entries {
				t.addRow(e.Label, a.kindOf(e), e.Table, store(e), e.Source)
			}
			t.render()
			return nil
		},
	}
}

// kindOf reports the kind of a loaded instance, or "?" for entries that did
// not load.
func (a *App) kindOf(e registry.Entry) string {
	for _, inst := range a.instances {
		if strings.EqualFold(inst.Label(), e.Label) {
			if inst.Schema.RequiresTable {
				return "model"
			}
			return inst.Schema.Kind.String()
		}
	}
	return "?"
}

func store(e registry.Entry) string {
	switch {
	case e.Local:
		return "local"
	case e.Endpoint != "":
		return e.Endpoint
	case e.Region != "":
		return "dynamodb (" + e.Region + ")"
	}
	return "dynamodb"
}
