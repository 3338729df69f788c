// Package loader reads schema sources from disk.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/acksell/electro/dynamodb/schema"
	"gopkg.in/yaml.v3"
)

// Extensions lists the accepted schema file extensions. JSON is read as YAML.
var Extensions = []string{".yaml", ".yml", ".json"}

// Read decodes the descriptor in a schema file. Unknown fields are rejected.
func Read(path string) (schema.Descriptor, error) {
	if !slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
		return schema.Descriptor{}, fmt.Errorf("%w: only files of type %s are allowed, got %s",
			schema.ErrSchemaInvalid, strings.Join(Extensions, ", "), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Descriptor{}, err
	}
	return Decode(data)
}

// Decode decodes a descriptor from YAML or JSON.
func Decode(data []byte) (schema.Descriptor, error) {
	var d schema.Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Descriptor{}, fmt.Errorf("%w: source is empty", schema.ErrSchemaInvalid)
		}
		return schema.Descriptor{}, fmt.Errorf("%w: %v", schema.ErrSchemaInvalid, err)
	}
	return d, nil
}

// Load reads and validates a schema file.
func Load(path string) (*schema.Schema, error) {
	d, err := Read(path)
	if err != nil {
		return nil, err
	}
	s, err := schema.Load(d)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// Resolve makes path absolute against the working directory and checks it
// exists.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("file %s does not exist", abs)
	}
	return abs, nil
}

// OutputPath is where typedef writes its declarations by default: next to the
// source with a .d.ts extension.
func OutputPath(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), base+".d.ts")
}
