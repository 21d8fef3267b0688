package db

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/skshohagmiah/docquery/internal/document"
	"github.com/skshohagmiah/docquery/internal/query"
	"github.com/skshohagmiah/docquery/internal/storage"
)

type entry struct {
	seq uint64
	doc document.Document
}

// Collection is a named set of documents kept in insertion order.
// Every read returns copies; stored documents are never handed out.
type Collection struct {
	name      string
	validator Validator
	store     Store
	log       logr.Logger

	mu      sync.RWMutex
	entries []*entry
	byID    map[string]*entry
	// ids removed during this session; the store remembers older ones
	retired map[string]struct{}
	nextSeq uint64
	dropped bool
}

func newCollection(name string, opts CollectionOptions, store Store, log logr.Logger) *Collection {
	return &Collection{
		name:      name,
		validator: opts.Validator,
		store:     store,
		log:       log.WithValues("collection", name),
		byID:      make(map[string]*entry),
		retired:   make(map[string]struct{}),
	}
}

// NewCollection creates a standalone in-memory collection.
func NewCollection(name string, opts CollectionOptions) *Collection {
	return newCollection(name, opts, nil, logr.Discard())
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// markDropped empties the collection and makes every later write fail
func (c *Collection) markDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropped = true
	c.entries = nil
	c.byID = make(map[string]*entry)
	c.retired = make(map[string]struct{})
}

// writable reports ErrCollectionDropped once the collection was dropped
// from its database. Callers hold c.mu.
func (c *Collection) writable() error {
	if c.dropped {
		return fmt.Errorf("%w: %s", ErrCollectionDropped, c.name)
	}
	return nil
}

// restore loads a persisted record. Only used while opening a database.
func (c *Collection) restore(rec storage.Record) error {
	id := rec.Doc.ID()
	if id == "" {
		return fmt.Errorf("%w: stored record %d has no _id", ErrInvalidDocument, rec.Seq)
	}
	if _, exists := c.byID[id]; exists {
		return fmt.Errorf("%w: stored _id %q", ErrDuplicateKey, id)
	}
	e := &entry{seq: rec.Seq, doc: rec.Doc}
	c.entries = append(c.entries, e)
	c.byID[id] = e
	if rec.Seq > c.nextSeq {
		c.nextSeq = rec.Seq
	}
	return nil
}

// Insert adds a document and returns its _id. A missing _id is generated;
// a caller-supplied _id must be a non-empty string that was never used in
// the collection, including by a deleted document.
func (c *Collection) Insert(doc document.Document) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return "", err
	}
	e, err := c.prepareInsert(doc)
	if err != nil {
		return "", err
	}
	if err := c.persist([]*entry{e}); err != nil {
		return "", err
	}
	c.add(e)

	c.log.V(1).Info("inserted document", "id", e.doc.ID())
	return e.doc.ID(), nil
}

// InsertMany inserts documents in order and returns their ids. It stops at
// the first failing document and returns a *BulkInsertError listing the
// documents inserted before it.
func (c *Collection) InsertMany(docs []document.Document) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return nil, err
	}
	var (
		batch   []*entry
		failure error
		failed  int
	)
	pending := make(map[string]bool, len(docs))
	for i, doc := range docs {
		e, err := c.prepareInsert(doc)
		if err == nil && pending[e.doc.ID()] {
			err = fmt.Errorf("%w: _id %q", ErrDuplicateKey, e.doc.ID())
		}
		if err != nil {
			failure, failed = err, i
			break
		}
		// sequence numbers must stay unique within the batch
		c.nextSeq = e.seq
		pending[e.doc.ID()] = true
		batch = append(batch, e)
	}

	if err := c.persist(batch); err != nil {
		c.nextSeq -= uint64(len(batch))
		return nil, err
	}

	ids := make([]string, len(batch))
	for i, e := range batch {
		c.add(e)
		ids[i] = e.doc.ID()
	}
	c.log.V(1).Info("inserted documents", "count", len(ids))

	if failure != nil {
		return ids, &BulkInsertError{Index: failed, InsertedIDs: ids, Err: failure}
	}
	return ids, nil
}

// prepareInsert copies and validates doc and reserves the next sequence
// number without committing it.
func (c *Collection) prepareInsert(doc document.Document) (*entry, error) {
	out := doc.Clone()
	if out == nil {
		out = make(document.Document)
	}

	raw, present := out[document.IDField]
	if !present {
		out[document.IDField] = uuid.New().String()
	} else if id, ok := raw.(string); !ok || id == "" {
		return nil, fmt.Errorf("%w: _id must be a non-empty string", ErrInvalidDocument)
	} else if err := c.checkID(id); err != nil {
		return nil, err
	}

	if err := c.validate(out); err != nil {
		return nil, err
	}
	return &entry{seq: c.nextSeq + 1, doc: out}, nil
}

// checkID rejects a caller-supplied _id held by a live document or by one
// deleted earlier
func (c *Collection) checkID(id string) error {
	if _, exists := c.byID[id]; exists {
		return fmt.Errorf("%w: _id %q", ErrDuplicateKey, id)
	}
	if _, gone := c.retired[id]; gone {
		return fmt.Errorf("%w: _id %q belonged to a deleted document", ErrDuplicateKey, id)
	}
	if c.store == nil {
		return nil
	}
	gone, err := c.store.IsRetired(c.name, id)
	if err != nil {
		return fmt.Errorf("failed to check _id %q: %w", id, err)
	}
	if gone {
		return fmt.Errorf("%w: _id %q belonged to a deleted document", ErrDuplicateKey, id)
	}
	return nil
}

func (c *Collection) add(e *entry) {
	c.entries = append(c.entries, e)
	c.byID[e.doc.ID()] = e
	if e.seq > c.nextSeq {
		c.nextSeq = e.seq
	}
}

func (c *Collection) validate(doc document.Document) error {
	if c.validator == nil {
		return nil
	}
	if err := c.validator.Validate(doc); err != nil {
		return fmt.Errorf("collection %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection) persist(entries []*entry) error {
	if c.store == nil || len(entries) == 0 {
		return nil
	}
	records := make([]storage.Record, len(entries))
	for i, e := range entries {
		records[i] = storage.Record{Seq: e.seq, Doc: e.doc}
	}
	if err := c.store.Put(c.name, records); err != nil {
		return fmt.Errorf("failed to persist documents: %w", err)
	}
	return nil
}

func (c *Collection) unpersist(entries []*entry) error {
	if c.store == nil || len(entries) == 0 {
		return nil
	}
	records := make([]storage.Record, len(entries))
	for i, e := range entries {
		records[i] = storage.Record{Seq: e.seq, Doc: e.doc}
	}
	if err := c.store.Remove(c.name, records); err != nil {
		return fmt.Errorf("failed to remove documents: %w", err)
	}
	return nil
}

// matching returns the entries matching m in insertion order, at most limit
// of them when limit > 0. Callers hold c.mu.
func (c *Collection) matching(m query.Matcher, limit int) []*entry {
	var out []*entry
	for _, e := range c.entries {
		if !m.Match(e.doc) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Find returns copies of the documents matching filter
func (c *Collection) Find(filter query.Filter, opts FindOptions) ([]document.Document, error) {
	m, err := query.Compile(filter)
	if err != nil {
		return nil, err
	}
	if opts.Skip < 0 {
		return nil, fmt.Errorf("%w: negative skip", query.ErrBadValue)
	}
	if opts.Limit != nil && *opts.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", query.ErrBadValue)
	}
	proj, err := compileProjection(opts.Projection)
	if err != nil {
		return nil, err
	}
	if err := validateSort(opts.Sort); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// without a sort the scan can stop once skip+limit documents matched
	limit := 0
	if len(opts.Sort) == 0 && opts.Limit != nil && *opts.Limit > 0 {
		limit = opts.Skip + *opts.Limit
	}

	var results []document.Document
	for _, e := range c.matching(m, limit) {
		results = append(results, e.doc)
	}
	sortResults(results, opts.Sort)
	results = paginate(results, opts.Skip, opts.Limit)

	out := make([]document.Document, len(results))
	for i, doc := range results {
		out[i] = proj.apply(doc)
	}
	return out, nil
}

// FindOne returns the first document matching filter, or nil when there
// is none
func (c *Collection) FindOne(filter query.Filter, opts FindOptions) (document.Document, error) {
	opts.Limit = Int(1)
	results, err := c.Find(filter, opts)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// FindByID returns a copy of the document with the given _id, or nil
func (c *Collection) FindByID(id string) (document.Document, error) {
	if id == "" {
		return nil, ErrInvalidDocument
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byID[id]
	if !ok {
		return nil, nil
	}
	return e.doc.Clone(), nil
}

// CountDocuments returns the number of documents matching filter
func (c *Collection) CountDocuments(filter query.Filter) (int64, error) {
	m, err := query.Compile(filter)
	if err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return int64(len(c.matching(m, 0))), nil
}

// UpdateOne applies update to the first document matching filter
func (c *Collection) UpdateOne(filter query.Filter, update query.Update, opts UpdateOptions) (*UpdateResult, error) {
	return c.update(filter, update, opts, 1)
}

// UpdateMany applies update to every document matching filter. Either all
// matched documents are updated or, on error, none is.
func (c *Collection) UpdateMany(filter query.Filter, update query.Update, opts UpdateOptions) (*UpdateResult, error) {
	return c.update(filter, update, opts, 0)
}

func (c *Collection) update(filter query.Filter, update query.Update, opts UpdateOptions, limit int) (*UpdateResult, error) {
	m, err := query.Compile(filter)
	if err != nil {
		return nil, err
	}
	if err := query.ValidateUpdate(update); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return nil, err
	}
	targets := c.matching(m, limit)
	if len(targets) == 0 {
		if !opts.Upsert {
			return &UpdateResult{}, nil
		}
		base, err := upsertBase(filter)
		if err != nil {
			return nil, err
		}
		doc, err := query.Apply(base, update)
		if err != nil {
			return nil, err
		}
		return c.upsert(doc)
	}

	return c.rewrite(targets, func(doc document.Document) (document.Document, bool, error) {
		return query.ApplyChanges(doc, update)
	})
}

// ReplaceOne replaces the whole of the first document matching filter,
// keeping its _id
func (c *Collection) ReplaceOne(filter query.Filter, replacement document.Document, opts UpdateOptions) (*UpdateResult, error) {
	m, err := query.Compile(filter)
	if err != nil {
		return nil, err
	}
	for key := range replacement {
		if len(key) > 0 && key[0] == '$' {
			return nil, fmt.Errorf("%w: replacement cannot contain operator %q", query.ErrBadValue, key)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return nil, err
	}
	targets := c.matching(m, 1)
	if len(targets) == 0 {
		if !opts.Upsert {
			return &UpdateResult{}, nil
		}
		doc := replacement.Clone()
		if doc == nil {
			doc = make(document.Document)
		}
		if _, ok := doc[document.IDField]; !ok {
			if id, ok := query.EqualityFields(filter)[document.IDField]; ok {
				doc[document.IDField] = id
			}
		}
		return c.upsert(doc)
	}

	return c.rewrite(targets, func(doc document.Document) (document.Document, bool, error) {
		out := replacement.Clone()
		if out == nil {
			out = make(document.Document)
		}
		if id, ok := out[document.IDField]; ok && !document.Equal(id, doc[document.IDField]) {
			return nil, false, fmt.Errorf("%w: _id", query.ErrImmutableField)
		}
		out[document.IDField] = doc[document.IDField]
		return out, !document.Equal(doc, out), nil
	})
}

// rewrite computes every new version first and commits only when all of
// them succeed. Callers hold c.mu.
func (c *Collection) rewrite(targets []*entry, fn func(document.Document) (document.Document, bool, error)) (*UpdateResult, error) {
	result := &UpdateResult{MatchedCount: int64(len(targets))}

	type change struct {
		target *entry
		doc    document.Document
	}
	var changes []change
	var staged []*entry
	for _, e := range targets {
		doc, changed, err := fn(e.doc)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", e.doc.ID(), err)
		}
		if !changed {
			continue
		}
		if err := c.validate(doc); err != nil {
			return nil, err
		}
		changes = append(changes, change{target: e, doc: doc})
		staged = append(staged, &entry{seq: e.seq, doc: doc})
	}

	if err := c.persist(staged); err != nil {
		return nil, err
	}
	for _, ch := range changes {
		ch.target.doc = ch.doc
	}
	result.ModifiedCount = int64(len(changes))

	c.log.V(1).Info("updated documents", "matched", result.MatchedCount, "modified", result.ModifiedCount)
	return result, nil
}

func (c *Collection) upsert(doc document.Document) (*UpdateResult, error) {
	e, err := c.prepareInsert(doc)
	if err != nil {
		return nil, err
	}
	if err := c.persist([]*entry{e}); err != nil {
		return nil, err
	}
	c.add(e)

	c.log.V(1).Info("upserted document", "id", e.doc.ID())
	return &UpdateResult{UpsertedCount: 1, UpsertedID: e.doc.ID()}, nil
}

// upsertBase builds the document an upsert starts from: the equality
// constraints of the filter.
func upsertBase(filter query.Filter) (document.Document, error) {
	eqs := query.EqualityFields(filter)
	paths := make([]string, 0, len(eqs))
	for path := range eqs {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	base := make(document.Document, len(eqs))
	for _, path := range paths {
		if err := document.SetPath(base, path, eqs[path]); err != nil {
			return nil, fmt.Errorf("upsert %q: %w", path, err)
		}
	}
	return base, nil
}

// DeleteOne removes the first document matching filter
func (c *Collection) DeleteOne(filter query.Filter) (*DeleteResult, error) {
	return c.delete(filter, 1)
}

// DeleteMany removes every document matching filter
func (c *Collection) DeleteMany(filter query.Filter) (*DeleteResult, error) {
	return c.delete(filter, 0)
}

func (c *Collection) delete(filter query.Filter, limit int) (*DeleteResult, error) {
	m, err := query.Compile(filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return nil, err
	}
	targets := c.matching(m, limit)
	if len(targets) == 0 {
		return &DeleteResult{}, nil
	}
	if err := c.unpersist(targets); err != nil {
		return nil, err
	}
	c.removeEntries(targets)

	c.log.V(1).Info("deleted documents", "count", len(targets))
	return &DeleteResult{DeletedCount: int64(len(targets))}, nil
}

func (c *Collection) removeEntries(targets []*entry) {
	gone := make(map[*entry]bool, len(targets))
	for _, e := range targets {
		gone[e] = true
		delete(c.byID, e.doc.ID())
		c.retired[e.doc.ID()] = struct{}{}
	}
	kept := c.entries[:0]
	for _, e := range c.entries {
		if !gone[e] {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(c.entries); i++ {
		c.entries[i] = nil
	}
	c.entries = kept
}

// Drop removes every document of the collection. Sequence numbers keep
// counting, so new documents still sort after removed ones, and the removed
// ids stay retired.
func (c *Collection) Drop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writable(); err != nil {
		return err
	}
	if err := c.unpersist(c.entries); err != nil {
		return err
	}
	c.removeEntries(c.entries)
	return nil
}

// Query returns a fluent query builder bound to this collection
func (c *Collection) Query() *QueryBuilder {
	qb := NewQueryBuilder(c.name)
	qb.coll = c
	return qb
}
