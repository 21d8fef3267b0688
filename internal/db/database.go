package db

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/skshohagmiah/docquery/internal/storage"
)

// Store persists collections and their documents. storage.DocStorage
// implements it.
type Store interface {
	SaveCollection(name, schema string) error
	DropCollection(name string) error
	Collections() (map[string]string, error)
	Put(collection string, records []storage.Record) error
	// Remove deletes records and retires their ids
	Remove(collection string, records []storage.Record) error
	IsRetired(collection, id string) (bool, error)
	Len(collection string) (int64, error)
	Load(collection string, fn func(storage.Record) error) error
	Close() error
}

// Options configures a Database.
type Options struct {
	// Dir is the badger data directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps the badger store in memory only.
	InMemory bool
	Logger   logr.Logger
}

// Database is a set of named collections, optionally backed by a Store
type Database struct {
	store Store
	log   logr.Logger

	mu          sync.RWMutex
	collections map[string]*Collection
}

// Open opens a database. With neither Dir nor InMemory set, nothing is
// persisted.
func Open(opts Options) (*Database, error) {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	var (
		store Store
		err   error
	)
	switch {
	case opts.InMemory:
		store, err = storage.NewMemoryDocStorage()
	case opts.Dir != "":
		store, err = storage.NewDocStorage(opts.Dir)
	}
	if err != nil {
		return nil, err
	}

	d, err := NewWithStore(store, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return d, nil
}

// NewMemory creates a database that keeps everything in process memory
func NewMemory() *Database {
	d, _ := NewWithStore(nil, logr.Discard())
	return d
}

// NewWithStore creates a database over store and loads every collection
// it holds. A nil store keeps everything in process memory.
func NewWithStore(store Store, log logr.Logger) (*Database, error) {
	d := &Database{
		store:       store,
		log:         log,
		collections: make(map[string]*Collection),
	}
	if store == nil {
		return d, nil
	}

	if err := d.load(); err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	return d, nil
}

func (d *Database) load() error {
	metas, err := d.store.Collections()
	if err != nil {
		return err
	}

	for name, schema := range metas {
		var opts CollectionOptions
		if schema != "" {
			v, err := NewJSONSchemaValidator(schema)
			if err != nil {
				return fmt.Errorf("collection %s: %w", name, err)
			}
			opts.Validator = v
		}

		c := newCollection(name, opts, d.store, d.log)
		stored, err := d.store.Len(name)
		if err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
		if err := d.store.Load(name, c.restore); err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
		if int64(len(c.entries)) != stored {
			return fmt.Errorf("collection %s: loaded %d of %d stored records", name, len(c.entries), stored)
		}
		d.collections[name] = c
		d.log.V(1).Info("loaded collection", "collection", name, "documents", stored)
	}
	return nil
}

// Close closes the underlying store
func (d *Database) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// CreateCollection creates a collection explicitly. Only JSON Schema
// validators are persisted with the collection.
func (d *Database) CreateCollection(name string, opts CollectionOptions) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.collections[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	return d.create(name, opts)
}

// Collection returns the named collection, creating it on first use
func (d *Database) Collection(name string) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	d.mu.RLock()
	c, ok := d.collections[name]
	d.mu.RUnlock()
	if ok {
		return c, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c, nil
	}
	return d.create(name, CollectionOptions{})
}

// create registers a new collection. Callers hold d.mu.
func (d *Database) create(name string, opts CollectionOptions) (*Collection, error) {
	if d.store != nil {
		var schema string
		if v, ok := opts.Validator.(*JSONSchemaValidator); ok {
			schema = v.Source()
		}
		if err := d.store.SaveCollection(name, schema); err != nil {
			return nil, fmt.Errorf("failed to save collection %s: %w", name, err)
		}
	}

	c := newCollection(name, opts, d.store, d.log)
	d.collections[name] = c
	d.log.Info("created collection", "collection", name, "validated", opts.Validator != nil)
	return c, nil
}

// ListCollections returns the collection names in sorted order
func (d *Database) ListCollections() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.collections))
	for name := range d.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DropCollection removes a collection and all its documents. It reports
// whether the collection existed. Handles to the dropped collection reject
// further writes with ErrCollectionDropped.
func (d *Database) DropCollection(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		return false, nil
	}
	if d.store != nil {
		if err := d.store.DropCollection(name); err != nil {
			return false, fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
	}
	c.markDropped()
	delete(d.collections, name)
	d.log.Info("dropped collection", "collection", name)
	return true, nil
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, ":$") {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
