package db

import (
	"fmt"
	"sort"

	"github.com/skshohagmiah/docquery/internal/document"
	"github.com/skshohagmiah/docquery/internal/query"
)

// projection is a validated FindOptions.Projection.
type projection struct {
	include bool
	paths   []string
	keepID  bool
}

// compileProjection validates a projection. Inclusion and exclusion cannot
// be mixed, except for excluding _id from an inclusion.
func compileProjection(fields map[string]interface{}) (*projection, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	p := &projection{keepID: true}
	var includes, excludes []string
	for path, v := range fields {
		if _, err := document.SplitPath(path); err != nil {
			return nil, fmt.Errorf("projection %q: %w", path, err)
		}
		on, err := projectionFlag(v)
		if err != nil {
			return nil, fmt.Errorf("projection %q: %w", path, err)
		}
		if path == document.IDField {
			p.keepID = on
			continue
		}
		if on {
			includes = append(includes, path)
		} else {
			excludes = append(excludes, path)
		}
	}

	if len(includes) > 0 && len(excludes) > 0 {
		return nil, fmt.Errorf("%w: cannot mix inclusion and exclusion in projection", query.ErrBadValue)
	}

	p.include = len(includes) > 0 || (len(excludes) == 0 && p.keepID)
	p.paths = includes
	if !p.include {
		p.paths = excludes
	}
	sort.Strings(p.paths)

	for i := 1; i < len(p.paths); i++ {
		for j := 0; j < i; j++ {
			if document.PathsOverlap(p.paths[i], p.paths[j]) {
				return nil, fmt.Errorf("%w: projection paths %q and %q collide", query.ErrBadValue, p.paths[j], p.paths[i])
			}
		}
	}
	return p, nil
}

func projectionFlag(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if f, ok := document.ToFloat(v); ok {
		return f != 0, nil
	}
	return false, fmt.Errorf("%w: projection value must be 0, 1 or a boolean", query.ErrBadValue)
}

// apply returns a projected copy of doc.
func (p *projection) apply(doc document.Document) document.Document {
	if p == nil {
		return doc.Clone()
	}

	if !p.include {
		out := doc.Clone()
		for _, path := range p.paths {
			document.UnsetPath(out, path)
		}
		if !p.keepID {
			delete(out, document.IDField)
		}
		return out
	}

	out := make(document.Document, len(p.paths)+1)
	if id, ok := doc[document.IDField]; ok && p.keepID {
		out[document.IDField] = id
	}
	for _, path := range p.paths {
		if val, ok := document.Lookup(doc, path); ok {
			// paths never overlap, so SetPath cannot collide
			_ = document.SetPath(out, path, document.CloneValue(val))
		}
	}
	return out
}

func validateSort(opts []SortOption) error {
	for _, opt := range opts {
		if _, err := document.SplitPath(opt.Field); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
		switch opt.Direction {
		case "", SortAsc, SortDesc:
		default:
			return fmt.Errorf("%w: sort direction %q", query.ErrBadValue, opt.Direction)
		}
	}
	return nil
}

// sortResults sorts documents by the sort keys in order. The sort is
// stable, so ties keep insertion order. Absent fields sort as null.
func sortResults(results []document.Document, opts []SortOption) {
	if len(opts) == 0 {
		return
	}
	sort.SliceStable(results, func(i, j int) bool {
		for _, opt := range opts {
			a, _ := document.Lookup(results[i], opt.Field)
			b, _ := document.Lookup(results[j], opt.Field)
			c := document.SortCompare(a, b)
			if c == 0 {
				continue
			}
			if opt.Direction == SortDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// paginate applies skip then limit.
func paginate(results []document.Document, skip int, limit *int) []document.Document {
	if skip >= len(results) {
		return []document.Document{}
	}
	results = results[skip:]
	if limit != nil && *limit < len(results) {
		results = results[:*limit]
	}
	return results
}
