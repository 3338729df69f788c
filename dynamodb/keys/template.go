// Package keys composes physical key values from facet values.
//
// A Template is a key pattern using {facet} references:
//   - "PROFILE"              → constant
//   - "USER#{id}"            → composite with one facet
//   - "ORDER#{tenant}#{id}"  → multiple facets, supplied in order
//
// Templates without an explicit pattern are built with Default, which mirrors
// the layout "$<prefix>#<facet>_<value>#...".
package keys

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingFacet is returned when a facet required to render a key has no value.
var ErrMissingFacet = errors.New("missing facet value")

// Template is a parsed key pattern.
type Template struct {
	raw   string
	parts []part
}

type part struct {
	literal bool   // true if this is a literal string, false if facet reference
	value   string // the literal text or facet name
}

// facetRefRegex matches {facet} patterns, including empty braces for validation.
var facetRefRegex = regexp.MustCompile(`\{([^}]*)\}`)

// Parse parses a pattern string into a Template.
func Parse(raw string) (Template, error) {
	if raw == "" {
		return Template{}, fmt.Errorf("pattern cannot be empty")
	}

	t := Template{raw: raw}

	matches := facetRefRegex.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		t.parts = []part{{literal: true, value: raw}}
		return t, nil
	}

	seen := make(map[string]bool)
	lastEnd := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		ref := strings.TrimSpace(raw[match[2]:match[3]])

		if start > lastEnd {
			t.parts = append(t.parts, part{literal: true, value: raw[lastEnd:start]})
		}
		if ref == "" {
			return Template{}, fmt.Errorf("empty facet reference at position %d", start)
		}
		if seen[ref] {
			return Template{}, fmt.Errorf("facet %q referenced more than once", ref)
		}
		seen[ref] = true

		t.parts = append(t.parts, part{value: ref})
		lastEnd = end
	}

	if lastEnd < len(raw) {
		t.parts = append(t.parts, part{literal: true, value: raw[lastEnd:]})
	}

	return t, nil
}

// MustParse is like Parse but panics on an invalid pattern.
func MustParse(raw string) Template {
	t, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("keys.MustParse: %v", err))
	}
	return t
}

// Default builds the template used when a key declares no pattern:
// "$<prefix>#<facet>_{facet}#...". Facet labels are lower-cased.
func Default(prefix string, facets []string) Template {
	var b strings.Builder
	b.WriteString("$")
	b.WriteString(strings.ToLower(prefix))
	for _, f := range facets {
		b.WriteString("#")
		b.WriteString(strings.ToLower(f))
		b.WriteString("_{")
		b.WriteString(f)
		b.WriteString("}")
	}
	return MustParse(b.String())
}

// String returns the raw pattern.
func (t Template) String() string {
	return t.raw
}

// IsZero reports whether t is the zero Template.
func (t Template) IsZero() bool {
	return t.raw == ""
}

// IsConstant reports whether the pattern has no facet references.
func (t Template) IsConstant() bool {
	return len(t.parts) == 1 && t.parts[0].literal
}

// Facets returns the facet names referenced by the pattern, in order.
// For "ORDER#{tenant}#{id}" it returns ["tenant", "id"].
func (t Template) Facets() []string {
	var refs []string
	for _, p := range t.parts {
		if !p.literal {
			refs = append(refs, p.value)
		}
	}
	return refs
}

// Render composes the full key. Every facet must have a value.
func (t Template) Render(values map[string]any) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.literal {
			b.WriteString(p.value)
			continue
		}
		v, ok := lookup(values, p.value)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingFacet, p.value)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Prefix composes the key up to the first facet without a value. Literal text
// preceding that facet is kept so the prefix only matches keys whose supplied
// facets are complete. complete is true when every facet had a value.
func (t Template) Prefix(values map[string]any) (prefix string, complete bool) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.literal {
			b.WriteString(p.value)
			continue
		}
		v, ok := lookup(values, p.value)
		if !ok {
			return b.String(), false
		}
		b.WriteString(v)
	}
	return b.String(), true
}

func lookup(values map[string]any, name string) (string, bool) {
	v, ok := values[name]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}
