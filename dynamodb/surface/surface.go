// Package surface derives the invocable surface of a schema: one node per
// legal partial-key shape of every access pattern, plus scans and the
// mutations an entity declares. Nodes are descriptors only; the cli and
// server packages turn them into commands and routes.
package surface

import (
	"fmt"
	"strings"

	"github.com/acksell/electro/dynamodb/binder"
	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/permute"
	"github.com/acksell/electro/dynamodb/schema"
)

// Verb is what a node does when invoked.
type Verb string

const (
	VerbQuery  Verb = "query"
	VerbScan   Verb = "scan"
	VerbCreate Verb = "create"
	VerbPatch  Verb = "patch"
	VerbRemove Verb = "remove"
)

// Arg is a positional argument of a node.
type Arg struct {
	Name string
	// Mandatory is set for partition facets. Sort facets are optional but
	// can only be given in order.
	Mandatory bool
}

// Node is one invocable unit.
type Node struct {
	Service       string
	Instance      *schema.Instance
	AccessPattern string
	IndexID       string
	Verb          Verb
	Args          []Arg
	Permutation   permute.Permutation
	// Binding is set for query and scan nodes.
	Binding *binder.Binding
	// Actions is set for create, patch and remove nodes.
	Actions     *binder.Actions
	Filterable  bool
	Deletable   bool
	Description string
}

// Name is the command or route segment of the node.
func (n Node) Name() string {
	if n.AccessPattern != "" {
		return strings.ToLower(n.AccessPattern)
	}
	return strings.ToLower(n.Instance.Name)
}

// Use renders the command line shape: `name <pk> [sk]`.
func (n Node) Use() string {
	parts := []string{n.Name()}
	for _, a := range n.Args {
		if a.Mandatory {
			parts = append(parts, "<"+a.Name+">")
		} else {
			parts = append(parts, "["+a.Name+"]")
		}
	}
	return strings.Join(parts, " ")
}

// Route renders the chi pattern of the node below prefix.
func (n Node) Route(prefix string) string {
	parts := []string{"", strings.ToLower(prefix), n.Name()}
	for _, a := range n.Args {
		parts = append(parts, "{"+a.Name+"}")
	}
	return strings.Join(parts, "/")
}

// KeyValues maps positional values onto the node's arguments. Empty values
// are left out so the key broadens instead of matching an empty facet.
func (n Node) KeyValues(values []string) (map[string]any, error) {
	if len(values) > len(n.Args) {
		return nil, fmt.Errorf("%s takes at most %d argument(s), got %d", n.Name(), len(n.Args), len(values))
	}
	out := make(map[string]any, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		out[n.Args[i].Name] = v
	}
	return out, nil
}

// Synthesize builds the nodes of every binding in set. Nodes come in schema
// order: per instance its access patterns in index order with permutations
// from shortest to longest, then its scan, then create, patch and remove
// when declared. Identical input yields identical output.
func Synthesize(service string, set *binder.Set) ([]Node, error) {
	var nodes []Node
	var current *schema.Instance
	flush := func() {
		if current == nil || current.Kind != schema.KindEntity {
			return
		}
		nodes = append(nodes, actionNodes(service, set, current)...)
	}

	for _, b := range set.Bindings() {
		if b.Instance != current {
			flush()
			current = b.Instance
		}
		switch b.Verb {
		case engine.MethodQuery:
			qs, err := queryNodes(service, b)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, qs...)
		case engine.MethodScan:
			nodes = append(nodes, Node{
				Service:     service,
				Instance:    b.Instance,
				Verb:        VerbScan,
				Binding:     b,
				Filterable:  true,
				Deletable:   b.Instance.Can(schema.ActionRemove),
				Description: fmt.Sprintf("Scan %s items.", b.Instance.Name),
			})
		}
	}
	flush()
	return nodes, nil
}

func queryNodes(service string, b *binder.Binding) ([]Node, error) {
	perms, err := permute.ForIndex(b.Instance, b.Index.ID)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Query the entity %q by %q.", b.Instance.Name, b.Index.AccessPattern)
	if b.Instance.Kind == schema.KindCollection {
		desc = fmt.Sprintf("Query the collection %q.", b.Index.AccessPattern)
	}

	nodes := make([]Node, 0, len(perms))
	for _, p := range perms {
		nodes = append(nodes, Node{
			Service:       service,
			Instance:      b.Instance,
			AccessPattern: b.Index.AccessPattern,
			IndexID:       b.Index.ID,
			Verb:          VerbQuery,
			Args:          argsOf(p),
			Permutation:   p,
			Binding:       b,
			Filterable:    true,
			Deletable:     b.Instance.Kind == schema.KindEntity && b.Instance.Can(schema.ActionRemove),
			Description:   desc,
		})
	}
	return nodes, nil
}

func actionNodes(service string, set *binder.Set, inst *schema.Instance) []Node {
	actions, ok := set.Actions(inst.Name)
	if !ok {
		return nil
	}
	primary := inst.PrimaryIndex()
	full := permute.Permutation(primary.Facets())

	var nodes []Node
	if inst.Can(schema.ActionCreate) {
		nodes = append(nodes, Node{
			Service:     service,
			Instance:    inst,
			Verb:        VerbCreate,
			Actions:     actions,
			Description: fmt.Sprintf("Create a %s item.", inst.Name),
		})
	}
	for _, verb := range []Verb{VerbPatch, VerbRemove} {
		if !inst.Can(schema.Action(verb)) {
			continue
		}
		args := argsOf(full)
		for i := range args {
			args[i].Mandatory = true
		}
		nodes = append(nodes, Node{
			Service:     service,
			Instance:    inst,
			IndexID:     primary.ID,
			Verb:        verb,
			Args:        args,
			Permutation: full,
			Actions:     actions,
			Description: fmt.Sprintf(keyedDescriptions[verb], inst.Name),
		})
	}
	return nodes
}

var keyedDescriptions = map[Verb]string{
	VerbPatch:  "Patch a %s item by its full key.",
	VerbRemove: "Remove a %s item by its full key.",
}

func argsOf(p permute.Permutation) []Arg {
	args := make([]Arg, len(p))
	for i, f := range p {
		args[i] = Arg{Name: f.Name, Mandatory: f.Role == schema.RolePartition}
	}
	return args
}
