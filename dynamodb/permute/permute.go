// Package permute enumerates the facet prefixes an index can be queried by.
//
// For a facet chain p1 p2 s1 s2 the permutations are [p1 p2], [p1 p2 s1] and
// [p1 p2 s1 s2]: a prefix that would stop between two partition facets cannot
// address a partition and is skipped.
package permute

import (
	"github.com/acksell/electro/dynamodb/schema"
)

// Permutation is an ordered facet prefix of an index.
type Permutation []schema.Facet

// Names returns the facet names in order.
func (p Permutation) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

func (p Permutation) Len() int { return len(p) }

// Partition returns the partition facets of the permutation.
func (p Permutation) Partition() []schema.Facet {
	return p.byRole(schema.RolePartition)
}

// Sort returns the sort facets of the permutation.
func (p Permutation) Sort() []schema.Facet {
	return p.byRole(schema.RoleSort)
}

func (p Permutation) byRole(role schema.Role) []schema.Facet {
	var out []schema.Facet
	for _, f := range p {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// Enumerate returns the permutations of a facet chain ordered by length.
// Position i is skipped when facets i and i+1 are both partition facets.
func Enumerate(facets []schema.Facet) []Permutation {
	var perms []Permutation
	for i := range facets {
		if i+1 < len(facets) &&
			facets[i].Role == schema.RolePartition &&
			facets[i+1].Role == schema.RolePartition {
			continue
		}
		p := make(Permutation, i+1)
		copy(p, facets[:i+1])
		perms = append(perms, p)
	}
	return perms
}

// ForIndex enumerates the permutations of one index of an instance.
func ForIndex(inst *schema.Instance, id string) ([]Permutation, error) {
	facets, err := inst.FacetsForIndex(id)
	if err != nil {
		return nil, err
	}
	return Enumerate(facets), nil
}
