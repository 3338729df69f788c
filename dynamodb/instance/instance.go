// Package instance opens registered schemas against their store and
// synthesizes their surface.
package instance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/acksell/electro/dynamodb/binder"
	"github.com/acksell/electro/dynamodb/ddbengine"
	"github.com/acksell/electro/dynamodb/ddbstore"
	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/loader"
	"github.com/acksell/electro/dynamodb/registry"
	"github.com/acksell/electro/dynamodb/schema"
	"github.com/acksell/electro/dynamodb/surface"
	"github.com/acksell/electro/dynamodb/table"
	"github.com/rs/zerolog"
)

// Options are defaults applied to every opened instance.
type Options struct {
	// DataDir holds local stores, one directory per label. Empty keeps local
	// stores in memory.
	DataDir  string
	Region   string
	Endpoint string
	Logger   zerolog.Logger
}

// Instance is a registered schema bound to its engine.
type Instance struct {
	Entry  registry.Entry
	Schema *schema.Schema
	Table  string
	Set    *binder.Set
	Nodes  []surface.Node

	store *ddbstore.Store
}

// Label names the instance in commands and routes.
func (i *Instance) Label() string { return i.Entry.Label }

// Close releases the local store, if any.
func (i *Instance) Close() error {
	if i.store == nil {
		return nil
	}
	return i.store.Close()
}

// Open loads the entry's schema and binds it to a local store or DynamoDB.
func Open(ctx context.Context, e registry.Entry, opts Options) (*Instance, error) {
	s, err := loader.Load(e.Source)
	if err != nil {
		return nil, err
	}
	return Bind(ctx, e, s, opts)
}

// Bind binds an already loaded schema.
func Bind(ctx context.Context, e registry.Entry, s *schema.Schema, opts Options) (*Instance, error) {
	if e.Label == "" {
		e.Label = s.Name
	}
	tableName := e.Table
	if tableName == "" {
		tableName = s.Table
	}
	if tableName == "" {
		if s.RequiresTable {
			return nil, fmt.Errorf("instance %s: models require a table", e.Label)
		}
		return nil, fmt.Errorf("instance %s: no table given and the schema declares none", e.Label)
	}

	inst := &Instance{Entry: e, Schema: s, Table: tableName}
	var eng engine.Engine
	if e.Local {
		def, err := table.FromSchema(tableName, s)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", e.Label, err)
		}
		storeOpts := ddbstore.StoreOptions{Logger: ddbstore.NewLogger(opts.Logger)}
		if opts.DataDir != "" {
			storeOpts.Path = filepath.Join(opts.DataDir, e.Label)
		} else {
			storeOpts.InMemory = true
		}
		store, err := ddbstore.New(storeOpts, def)
		if err != nil {
			return nil, fmt.Errorf("instance %s: open local store: %w", e.Label, err)
		}
		inst.store = store
		eng = store
	} else {
		client, err := ddbengine.NewClient(ctx, ddbengine.ClientOptions{
			Region:   firstOf(e.Region, opts.Region),
			Endpoint: firstOf(e.Endpoint, opts.Endpoint),
		})
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", e.Label, err)
		}
		eng = ddbengine.New(client)
	}

	inst.Set = binder.Bind(s, eng, binder.Defaults{
		Table:  tableName,
		Logger: opts.Logger.With().Str("label", e.Label).Logger(),
	})
	nodes, err := surface.Synthesize(e.Label, inst.Set)
	if err != nil {
		inst.Close()
		return nil, fmt.Errorf("instance %s: %w", e.Label, err)
	}
	inst.Nodes = nodes
	return inst, nil
}

// OpenAll opens every registered entry. Entries that fail are returned as
// errors and skipped; the rest are still opened.
func OpenAll(ctx context.Context, reg *registry.Registry, opts Options) ([]*Instance, []error) {
	entries, err := reg.List()
	if err != nil {
		return nil, []error{err}
	}
	var (
		out  []*Instance
		errs []error
	)
	for _, e := range entries {
		inst, err := Open(ctx, e, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("error loading %q: %w - remove it with 'electro remove' or re-add it with --overwrite", e.Label, err))
			continue
		}
		out = append(out, inst)
	}
	return out, errs
}

// CloseAll closes every instance and joins their errors.
func CloseAll(instances []*Instance) error {
	var errs []error
	for _, i := range instances {
		errs = append(errs, i.Close())
	}
	return errors.Join(errs...)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
