package ddbstore

import (
	"fmt"

	"github.com/acksell/electro/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
)

// Store is a local key-value engine backed by BadgerDB. It keeps the table
// and secondary index layout of DynamoDB so items written through it can be
// queried by the same access patterns.
type Store struct {
	db     *badger.DB
	tables map[string]*tableSchema
}

type tableSchema struct {
	definition table.TableDefinition
	gsis       map[string]*gsiSchema
}

func (t *tableSchema) encoder() *badgerKeyEncoder {
	return &badgerKeyEncoder{
		tableName: t.definition.Name,
		keyDefs:   t.definition.KeyDefinitions,
	}
}

type gsiSchema struct {
	tableName  string
	definition table.GSIDefinition
	tableKeys  table.PrimaryKeyDefinition
}

func (g *gsiSchema) encoder() *badgerKeyEncoder {
	return &badgerKeyEncoder{
		tableName: g.tableName,
		indexName: g.definition.Name,
		keyDefs:   g.definition.KeyDefinitions,
		tableKeys: g.tableKeys,
	}
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New creates a new BadgerDB-backed store holding the given tables.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		tables: make(map[string]*tableSchema),
	}
	for _, def := range defs {
		if err := s.addTable(def); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) addTable(def table.TableDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if def.KeyDefinitions.PartitionKey.Name == "" {
		return fmt.Errorf("table %s: partition key is required", def.Name)
	}
	if prev, ok := s.tables[def.Name]; ok {
		if prev.definition.KeyDefinitions != def.KeyDefinitions {
			return fmt.Errorf("table %s defined twice with different keys", def.Name)
		}
	}

	schema := &tableSchema{
		definition: def,
		gsis:       make(map[string]*gsiSchema),
	}
	for _, gsiDef := range def.GSIs {
		schema.gsis[gsiDef.Name] = &gsiSchema{
			tableName:  def.Name,
			definition: gsiDef,
			tableKeys:  def.KeyDefinitions,
		}
	}
	s.tables[def.Name] = schema
	return nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(tableName string) (*tableSchema, error) {
	if tableName == "" {
		return nil, fmt.Errorf("table name is required")
	}
	schema, ok := s.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", tableName)
	}
	return schema, nil
}

// Used in query/scan to get the appropriate key encoder based on table and index name.
func (s *Store) getBadgerKeyEncoder(tableName, indexName string) (*badgerKeyEncoder, error) {
	schema, err := s.getTable(tableName)
	if err != nil {
		return nil, err
	}
	if indexName == "" {
		return schema.encoder(), nil
	}
	gsi, ok := schema.gsis[indexName]
	if !ok {
		return nil, fmt.Errorf("GSI not found: %s", indexName)
	}
	return gsi.encoder(), nil
}
