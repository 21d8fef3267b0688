package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/skshohagmiah/docquery/internal/document"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid key")
)

// Record is a stored document together with its insertion sequence number.
// Sequence numbers keep the collection's natural order across restarts.
type Record struct {
	Seq uint64
	Doc document.Document
}

type collectionMeta struct {
	Schema string `json:"schema,omitempty"`
}

// DocStorage provides low-level BadgerDB operations for document storage
type DocStorage struct {
	db *badger.DB
}

// NewDocStorage creates a new document storage instance
func NewDocStorage(path string) (*DocStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	// Tuned for small embedded datasets
	opts.NumVersionsToKeep = 1
	opts.ValueThreshold = 1024
	opts.BlockCacheSize = 64 << 20   // 64MB
	opts.IndexCacheSize = 32 << 20   // 32MB
	opts.MemTableSize = 16 << 20     // 16MB
	opts.ValueLogFileSize = 64 << 20 // 64MB
	opts.SyncWrites = true
	opts.CompactL0OnClose = false

	return open(opts)
}

// NewMemoryDocStorage creates a document storage that lives only in memory
func NewMemoryDocStorage() (*DocStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	opts.MemTableSize = 16 << 20
	opts.BlockCacheSize = 16 << 20
	opts.IndexCacheSize = 8 << 20

	return open(opts)
}

func open(opts badger.Options) (*DocStorage, error) {
	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &DocStorage{db: badgerDB}, nil
}

// Close closes the BadgerDB instance
func (ds *DocStorage) Close() error {
	return ds.db.Close()
}

// Set stores a value with the given key
func (ds *DocStorage) Set(key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	return ds.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Get retrieves a value by key
func (ds *DocStorage) Get(key string) ([]byte, error) {
	var data []byte

	err := ds.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}

	return data, err
}

// Scan iterates over all keys with the given prefix in key order
func (ds *DocStorage) Scan(prefix string, fn func(key string, value []byte) error) error {
	return ds.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())

			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			if err := fn(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of keys with the given prefix
func (ds *DocStorage) Count(prefix string) (int64, error) {
	var count int64

	err := ds.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// BatchSet stores multiple key-value pairs atomically
func (ds *DocStorage) BatchSet(items map[string][]byte) error {
	return ds.db.Update(func(txn *badger.Txn) error {
		for key, data := range items {
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// BatchDelete removes multiple keys atomically
func (ds *DocStorage) BatchDelete(keys []string) error {
	return ds.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetJSON stores a JSON-serializable value
func (ds *DocStorage) SetJSON(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return ds.Set(key, data)
}

// SaveCollection records a collection and its validator schema ("" for none)
func (ds *DocStorage) SaveCollection(name, schema string) error {
	return ds.SetJSON(makeMetaKey(name), collectionMeta{Schema: schema})
}

// Collections returns every recorded collection mapped to its schema
func (ds *DocStorage) Collections() (map[string]string, error) {
	out := make(map[string]string)
	prefix := metaPrefix
	err := ds.Scan(prefix, func(key string, value []byte) error {
		var meta collectionMeta
		if err := json.Unmarshal(value, &meta); err != nil {
			return fmt.Errorf("collection metadata %s: %w", key, err)
		}
		out[key[len(prefix):]] = meta.Schema
		return nil
	})
	return out, err
}

// DropCollection removes a collection's metadata, its documents and its
// retired ids
func (ds *DocStorage) DropCollection(name string) error {
	keys := []string{makeMetaKey(name)}
	collect := func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}
	if err := ds.Scan(makeCollectionPrefix(name), collect); err != nil {
		return err
	}
	if err := ds.Scan(makeRetiredPrefix(name), collect); err != nil {
		return err
	}
	return ds.BatchDelete(keys)
}

// Put writes records of a collection in a single transaction
func (ds *DocStorage) Put(collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	items := make(map[string][]byte, len(records))
	for _, rec := range records {
		data, err := EncodeDocument(rec.Doc)
		if err != nil {
			return err
		}
		items[makeKey(collection, rec.Seq)] = data
	}
	return ds.BatchSet(items)
}

// Remove deletes records of a collection and retires their ids in the same
// transaction
func (ds *DocStorage) Remove(collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return ds.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			if err := txn.Delete([]byte(makeKey(collection, rec.Seq))); err != nil {
				return err
			}
			if id := rec.Doc.ID(); id != "" {
				if err := txn.Set([]byte(makeRetiredKey(collection, id)), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// IsRetired reports whether id belonged to a removed record of collection
func (ds *DocStorage) IsRetired(collection, id string) (bool, error) {
	_, err := ds.Get(makeRetiredKey(collection, id))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Len returns the number of stored records of collection
func (ds *DocStorage) Len(collection string) (int64, error) {
	return ds.Count(makeCollectionPrefix(collection))
}

// Load streams a collection's records in insertion order
func (ds *DocStorage) Load(collection string, fn func(Record) error) error {
	prefix := makeCollectionPrefix(collection)
	return ds.Scan(prefix, func(key string, value []byte) error {
		seq, err := parseSeq(key[len(prefix):])
		if err != nil {
			return err
		}
		doc, err := DecodeDocument(value)
		if err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
		return fn(Record{Seq: seq, Doc: doc})
	})
}

// Helper functions

const metaPrefix = "meta:collection:"

func makeMetaKey(collection string) string {
	return metaPrefix + collection
}

// makeKey zero-pads seq so that key order is insertion order.
func makeKey(collection string, seq uint64) string {
	return fmt.Sprintf("doc:%s:%020d", collection, seq)
}

func makeCollectionPrefix(collection string) string {
	return fmt.Sprintf("doc:%s:", collection)
}

func makeRetiredKey(collection, id string) string {
	return makeRetiredPrefix(collection) + id
}

func makeRetiredPrefix(collection string) string {
	return fmt.Sprintf("retired:%s:", collection)
}

func parseSeq(suffix string) (uint64, error) {
	seq, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil || len(suffix) != 20 {
		return 0, fmt.Errorf("%w: bad sequence suffix %q", ErrInvalidKey, suffix)
	}
	return seq, nil
}
