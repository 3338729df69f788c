package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/acksell/electro/dynamodb/binder"
	"github.com/acksell/electro/dynamodb/filter"
	"github.com/acksell/electro/dynamodb/instance"
	"github.com/acksell/electro/dynamodb/surface"
	"github.com/spf13/cobra"
)

// surfaceCommands groups the nodes of every instance under one parent per
// verb, then one subcommand per label.
func (a *App) surfaceCommands(instances []*instance.Instance) []*cobra.Command {
	parents := []*cobra.Command{
		group("query", "Query the access patterns of registered instances"),
		group("scan", "Scan the entities of registered instances"),
		group("create", "Create items in registered instances"),
		group("patch", "Patch items in registered instances by key"),
		group("delete", "Delete items from registered instances by key"),
	}
	byVerb := map[surface.Verb]*cobra.Command{
		surface.VerbQuery:  parents[0],
		surface.VerbScan:   parents[1],
		surface.VerbCreate: parents[2],
		surface.VerbPatch:  parents[3],
		surface.VerbRemove: parents[4],
	}

	for _, inst := range instances {
		labels := make(map[surface.Verb]*cobra.Command)
		label := func(v surface.Verb) *cobra.Command {
			if c, ok := labels[v]; ok {
				return c
			}
			c := group(strings.ToLower(inst.Label()), fmt.Sprintf("%s %s (%s)", v, inst.Label(), inst.Schema.Kind))
			labels[v] = c
			byVerb[v].AddCommand(c)
			return c
		}

		for _, group := range groupNodes(inst.Nodes) {
			n := group[len(group)-1]
			var cmd *cobra.Command
			switch n.Verb {
			case surface.VerbQuery, surface.VerbScan:
				cmd = a.queryCommand(group)
			case surface.VerbCreate:
				cmd = a.createCommand(n)
			case surface.VerbPatch:
				cmd = a.patchCommand(n)
			case surface.VerbRemove:
				cmd = a.deleteCommand(n)
			default:
				continue
			}
			label(n.Verb).AddCommand(cmd)
		}
	}

	var out []*cobra.Command
	for _, p := range parents {
		if p.HasSubCommands() {
			out = append(out, p)
		}
	}
	return out
}

// group is a command that only holds subcommands. Unknown subcommands are
// reported as errors instead of falling back to help.
func group(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
}

// groupNodes collects consecutive nodes sharing verb and name. Query nodes
// of one access pattern arrive shortest permutation first.
func groupNodes(nodes []surface.Node) [][]surface.Node {
	var groups [][]surface.Node
	for _, n := range nodes {
		if l := len(groups); l > 0 {
			last := groups[l-1][0]
			if last.Verb == n.Verb && last.Name() == n.Name() {
				groups[l-1] = append(groups[l-1], n)
				continue
			}
		}
		groups = append(groups, []surface.Node{n})
	}
	return groups
}

type queryFlags struct {
	raw     bool
	params  bool
	table   string
	limit   int
	filters []string
	delete  bool
}

func (f *queryFlags) options() binder.Options {
	return binder.Options{
		Table:  f.table,
		Limit:  f.limit,
		Raw:    f.raw,
		DryRun: f.params,
		Delete: f.delete,
	}
}

// queryCommand serves every permutation of one access pattern. The longest
// permutation names the arguments; fewer arguments broaden the sort key.
func (a *App) queryCommand(group []surface.Node) *cobra.Command {
	full := group[len(group)-1]
	mandatory := 0
	for _, arg := range full.Args {
		if arg.Mandatory {
			mandatory++
		}
	}

	long := full.Description
	if len(group) > 1 {
		shapes := make([]string, len(group))
		for i, n := range group {
			shapes[i] = "  " + n.Use()
		}
		long += "\n\nKey shapes:\n" + strings.Join(shapes, "\n")
	}

	var f queryFlags
	cmd := &cobra.Command{
		Use:   full.Use(),
		Short: full.Description,
		Long:  long,
		Args:  cobra.RangeArgs(mandatory, len(full.Args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := full.KeyValues(args)
			if err != nil {
				return err
			}
			clauses, err := filter.CompileAll(full.Instance.Attributes(), f.filters)
			if err != nil {
				return err
			}
			opts := f.options()
			res, err := full.Binding.Invoke(cmd.Context(), kv, clauses, opts)
			if err != nil {
				return err
			}
			switch {
			case opts.DryRun:
				return a.printJSON(res.Params)
			case opts.Delete:
				return a.printJSON(res.Removed)
			}
			return a.printJSON(res.Items)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.raw, "raw", "r", false, "return items with their key and internal fields")
	flags.BoolVarP(&f.params, "params", "p", false, "print the request instead of running it")
	flags.StringVarP(&f.table, "table", "t", "", "override the table of the instance")
	flags.IntVarP(&f.limit, "limit", "l", 0, "limit the number of items returned")
	flags.StringArrayVarP(&f.filters, "filter", "f", nil, fmt.Sprintf(
		"filter expression <attribute>,<operation>,[value1],[value2]; attributes: %s",
		strings.Join(full.Instance.AttributeNames(), ", ")))
	if full.Deletable {
		flags.BoolVarP(&f.delete, "delete", "d", false, "delete the items the query returns")
	}
	return cmd
}

func (a *App) createCommand(n surface.Node) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   n.Name() + " <json>",
		Short: n.Description,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := decodeObject(args[0])
			if err != nil {
				return err
			}
			created, err := n.Actions.Create(cmd.Context(), item, binder.Options{Table: table})
			if err != nil {
				return err
			}
			return a.printJSON(created)
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "override the table of the instance")
	return cmd
}

func (a *App) patchCommand(n surface.Node) *cobra.Command {
	var table, set string
	cmd := &cobra.Command{
		Use:   n.Use(),
		Short: n.Description,
		Args:  cobra.ExactArgs(len(n.Args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := n.KeyValues(args)
			if err != nil {
				return err
			}
			attrs, err := decodeObject(set)
			if err != nil {
				return err
			}
			patched, err := n.Actions.Patch(cmd.Context(), kv, attrs, binder.Options{Table: table})
			if err != nil {
				return err
			}
			return a.printJSON(patched)
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "override the table of the instance")
	cmd.Flags().StringVarP(&set, "set", "s", "", "JSON object of attributes to set")
	cmd.MarkFlagRequired("set")
	return cmd
}

func (a *App) deleteCommand(n surface.Node) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   n.Use(),
		Short: n.Description,
		Args:  cobra.ExactArgs(len(n.Args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := n.KeyValues(args)
			if err != nil {
				return err
			}
			old, err := n.Actions.Remove(cmd.Context(), kv, binder.Options{Table: table})
			if err != nil {
				return err
			}
			return a.printJSON(old)
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "override the table of the instance")
	return cmd
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON object: %v", binder.ErrInvalidItem, err)
	}
	return obj, nil
}
