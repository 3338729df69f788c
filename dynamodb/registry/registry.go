// Package registry persists the instances added to electro: a label mapped
// to the schema source and the store it is queried against.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrLabelTaken is returned when adding a label already bound to another
// source without overwrite.
var ErrLabelTaken = errors.New("label already registered")

// Entry is one registered instance.
type Entry struct {
	Label    string `yaml:"-"`
	Source   string `yaml:"source"`
	Table    string `yaml:"table,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
	// Local instances are served from the local store instead of DynamoDB.
	Local bool `yaml:"local,omitempty"`
}

// Registry is a YAML file of entries keyed by label. Every call reads the
// file afresh; a missing file is an empty registry.
type Registry struct {
	path string
}

func Open(path string) *Registry {
	return &Registry{path: path}
}

func (r *Registry) Path() string { return r.path }

// List returns the entries sorted by label.
func (r *Registry) List() ([]Entry, error) {
	entries, err := r.read()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for label, e := range entries {
		e.Label = label
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Get looks up an entry, matching the label case-insensitively.
func (r *Registry) Get(label string) (Entry, bool, error) {
	entries, err := r.List()
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Label, label) {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Add registers e under e.Label. Re-adding the same source is a no-op unless
// overwrite is set; binding the label to another source requires overwrite.
func (r *Registry) Add(e Entry, overwrite bool) error {
	if e.Label == "" {
		return errors.New("label is required")
	}
	entries, err := r.read()
	if err != nil {
		return err
	}
	if existing, ok := entries[e.Label]; ok && !overwrite {
		if existing.Source == e.Source {
			return nil
		}
		return fmt.Errorf("%w: %s is associated with %s, remove it first or overwrite it", ErrLabelTaken, e.Label, existing.Source)
	}
	entries[e.Label] = e
	return r.write(entries)
}

// Remove deletes the entry matching label case-insensitively and returns the
// removed label, or "" if none matched.
func (r *Registry) Remove(label string) (string, error) {
	entries, err := r.read()
	if err != nil {
		return "", err
	}
	for name := range entries {
		if strings.EqualFold(name, label) {
			delete(entries, name)
			return name, r.write(entries)
		}
	}
	return "", nil
}

func (r *Registry) read() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", r.path, err)
	}
	return entries, nil
}

func (r *Registry) write(entries map[string]Entry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	enc.Close()

	header := []byte("# Managed by electro add/remove.\n")
	if err := os.WriteFile(r.path, append(header, buf.Bytes()...), 0o644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}
