// Package shell implements an interactive prompt over a database. Each line
// is a command followed by JSON arguments, for example
//
//	use livres
//	find {"anneePublication": {"$gt": 1945}} {"titre": 1, "_id": 0}
//	update {"titre": "1984"} {"$set": {"disponible": false}}
package shell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/peterh/liner"

	"github.com/skshohagmiah/docquery/internal/db"
	"github.com/skshohagmiah/docquery/internal/document"
	"github.com/skshohagmiah/docquery/internal/query"
	"github.com/skshohagmiah/docquery/internal/storage"
)

// ErrQuit is returned by Exec for exit and quit.
var ErrQuit = errors.New("quit")

type command struct {
	usage string
	help  string
	// needsCollection reports whether a collection must be selected with use
	needsCollection bool
	run             func(s *Shell, c *db.Collection, args []interface{}) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":        {"help", "show this help", false, (*Shell).help},
		"use":         {"use <collection>", "select the current collection", false, nil},
		"collections": {"collections", "list collections", false, (*Shell).collections},
		"find":        {"find [filter] [projection] [options]", "list matching documents; options: sort, skip, limit", true, (*Shell).find},
		"findOne":     {"findOne [filter] [projection]", "show the first matching document", true, (*Shell).findOne},
		"count":       {"count [filter]", "count matching documents", true, (*Shell).count},
		"insert":      {"insert <document|[documents]>", "insert one or several documents", true, (*Shell).insert},
		"update":      {"update <filter> <update> [options]", "update the first match; options: upsert", true, (*Shell).updateOne},
		"updateMany":  {"updateMany <filter> <update> [options]", "update every match; options: upsert", true, (*Shell).updateMany},
		"replace":     {"replace <filter> <document> [options]", "replace the first match; options: upsert", true, (*Shell).replace},
		"delete":      {"delete <filter>", "delete the first match", true, (*Shell).deleteOne},
		"deleteMany":  {"deleteMany <filter>", "delete every match", true, (*Shell).deleteMany},
		"drop":        {"drop", "drop the current collection", true, (*Shell).drop},
		"exit":        {"exit", "leave the shell", false, nil},
	}
}

// Shell runs commands against a database
type Shell struct {
	db      *db.Database
	out     io.Writer
	current string
}

// New creates a shell writing results to out
func New(d *db.Database, out io.Writer) *Shell {
	return &Shell{db: d, out: out}
}

// Current returns the selected collection name
func (s *Shell) Current() string {
	return s.current
}

// Run reads commands from the terminal until exit or end of input. History
// is kept in historyFile when it is not empty.
func (s *Shell) Run(historyFile string) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintln(s.out, "Type help for the list of commands")
	for {
		input, err := line.Prompt(s.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if err := s.Exec(input); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "❌ Erreur : %v\n", err)
		}
	}
}

func (s *Shell) prompt() string {
	if s.current == "" {
		return "biblio> "
	}
	return "biblio:" + s.current + "> "
}

func complete(input string) []string {
	var out []string
	for name := range commands {
		if strings.HasPrefix(name, input) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Exec runs a single command line
func (s *Shell) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	name, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		name, rest = line[:i], strings.TrimSpace(line[i:])
	}

	switch name {
	case "exit", "quit":
		return ErrQuit
	case "use":
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return errors.New("usage: use <collection>")
		}
		s.current = rest
		fmt.Fprintf(s.out, "✅ Collection courante : %s\n", rest)
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, type help", name)
	}
	args, err := storage.DecodeValues([]byte(rest))
	if err != nil {
		return err
	}

	var c *db.Collection
	if cmd.needsCollection {
		if s.current == "" {
			return errors.New("no collection selected, run use <collection> first")
		}
		if c, err = s.db.Collection(s.current); err != nil {
			return err
		}
	}
	return cmd.run(s, c, args)
}

func (s *Shell) help(_ *db.Collection, _ []interface{}) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(s.out, "  %-40s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (s *Shell) collections(_ *db.Collection, _ []interface{}) error {
	for _, name := range s.db.ListCollections() {
		fmt.Fprintf(s.out, "  - %s\n", name)
	}
	return nil
}

func (s *Shell) find(c *db.Collection, args []interface{}) error {
	if err := maxArgs(args, 3); err != nil {
		return err
	}
	filter, err := docArg(args, 0, "filter")
	if err != nil {
		return err
	}
	opts, err := findOptions(args)
	if err != nil {
		return err
	}
	docs, err := c.Find(filter, opts)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.print(doc); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "%d document(s)\n", len(docs))
	return nil
}

func (s *Shell) findOne(c *db.Collection, args []interface{}) error {
	if err := maxArgs(args, 2); err != nil {
		return err
	}
	filter, err := docArg(args, 0, "filter")
	if err != nil {
		return err
	}
	opts, err := findOptions(args)
	if err != nil {
		return err
	}
	doc, err := c.FindOne(filter, opts)
	if err != nil {
		return err
	}
	if doc == nil {
		fmt.Fprintln(s.out, "null")
		return nil
	}
	return s.print(doc)
}

func (s *Shell) count(c *db.Collection, args []interface{}) error {
	if err := maxArgs(args, 1); err != nil {
		return err
	}
	filter, err := docArg(args, 0, "filter")
	if err != nil {
		return err
	}
	n, err := c.CountDocuments(filter)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, n)
	return nil
}

func (s *Shell) insert(c *db.Collection, args []interface{}) error {
	if len(args) != 1 {
		return errors.New("usage: insert <document|[documents]>")
	}
	if items, ok := document.AsSlice(args[0]); ok {
		docs := make([]document.Document, len(items))
		for i, item := range items {
			doc, ok := document.AsMap(item)
			if !ok {
				return fmt.Errorf("%w: element %d is not an object", db.ErrInvalidDocument, i)
			}
			docs[i] = doc
		}
		ids, err := c.InsertMany(docs)
		for _, id := range ids {
			fmt.Fprintf(s.out, "✅ %s\n", id)
		}
		return err
	}

	doc, err := docArg(args, 0, "document")
	if err != nil {
		return err
	}
	id, err := c.Insert(doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "✅ %s\n", id)
	return nil
}

func (s *Shell) updateOne(c *db.Collection, args []interface{}) error {
	return s.update(args, c.UpdateOne)
}

func (s *Shell) updateMany(c *db.Collection, args []interface{}) error {
	return s.update(args, c.UpdateMany)
}

func (s *Shell) update(args []interface{}, fn func(query.Filter, query.Update, db.UpdateOptions) (*db.UpdateResult, error)) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: update <filter> <update> [options]")
	}
	filter, err := docArg(args, 0, "filter")
	if err != nil {
		return err
	}
	update, err := docArg(args, 1, "update")
	if err != nil {
		return err
	}
	opts, err := updateOptions(args, 2)
	if err != nil {
		return err
	}
	res, err := fn(filter, update, opts)
	if err != nil {
		return err
	}
	s.printUpdate(res)
	return nil
}

func (s *Shell) replace(c *db.Collection, args []interface{}) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: replace <filter> <document> [options]")
	}
	filter, err := docArg(args, 0, "filter")
	if err != nil {
		return err
	}
	doc, err := docArg(args, 1, "document")
	if err != nil {
		return err
	}
	opts, err := updateOptions(args, 2)
	if err != nil {
		return err
	}
	res, err := c.ReplaceOne(filter, doc, opts)
	if err != nil {
		return err
	}
	s.printUpdate(res)
	return nil
}

func (s *Shell) deleteOne(c *db.Collection, args []interface{}) error {
	return s.delete(args, c.DeleteOne)
}

func (s *Shell) deleteMany(c *db.Collection, args []interface{}) error {
	return s.delete(args, c.DeleteMany)
}

func (s *Shell) delete(args []interface{}, fn func(query.Filter) (*db.DeleteResult, error)) error {
	if len(args) != 1 {
		return errors.New("usage: delete <filter>")
	}
	filter, err := docArg(args, 0, "filter")
	if err != nil {
		return err
	}
	res, err := fn(filter)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "deleted: %d\n", res.DeletedCount)
	return nil
}

func (s *Shell) drop(_ *db.Collection, _ []interface{}) error {
	dropped, err := s.db.DropCollection(s.current)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "dropped %s: %t\n", s.current, dropped)
	s.current = ""
	return nil
}

func (s *Shell) printUpdate(res *db.UpdateResult) {
	fmt.Fprintf(s.out, "matched: %d, modified: %d", res.MatchedCount, res.ModifiedCount)
	if res.UpsertedCount > 0 {
		fmt.Fprintf(s.out, ", upserted: %s", res.UpsertedID)
	}
	fmt.Fprintln(s.out)
}

// print writes doc as indented JSON, dates in the {"$date": ...} form
func (s *Shell) print(doc document.Document) error {
	data, err := storage.EncodeDocument(doc)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = s.out.Write(buf.Bytes())
	return err
}

func maxArgs(args []interface{}, n int) error {
	if len(args) > n {
		return fmt.Errorf("too many arguments: got %d, want at most %d", len(args), n)
	}
	return nil
}

// docArg returns args[i] as a document, or nil when it is absent
func docArg(args []interface{}, i int, what string) (document.Document, error) {
	if i >= len(args) || args[i] == nil {
		return nil, nil
	}
	doc, ok := document.AsMap(args[i])
	if !ok {
		return nil, fmt.Errorf("%s must be a JSON object", what)
	}
	return doc, nil
}

// findOptions reads the projection at args[1] and the options object at
// args[2]: {"sort": ["field", "-field"], "skip": n, "limit": n}
func findOptions(args []interface{}) (db.FindOptions, error) {
	var opts db.FindOptions
	projection, err := docArg(args, 1, "projection")
	if err != nil {
		return opts, err
	}
	if len(projection) > 0 {
		opts.Projection = projection
	}

	raw, err := docArg(args, 2, "options")
	if err != nil || raw == nil {
		return opts, err
	}
	for key, v := range raw {
		switch key {
		case "sort":
			fields, ok := document.AsSlice(v)
			if !ok {
				return opts, errors.New("sort must be an array of field names")
			}
			for _, f := range fields {
				name, ok := f.(string)
				if !ok || name == "" || name == "-" {
					return opts, fmt.Errorf("invalid sort field %v", f)
				}
				if strings.HasPrefix(name, "-") {
					opts.Sort = append(opts.Sort, db.SortOption{Field: name[1:], Direction: db.SortDesc})
				} else {
					opts.Sort = append(opts.Sort, db.SortOption{Field: name, Direction: db.SortAsc})
				}
			}
		case "skip":
			n, ok := document.ToInt(v)
			if !ok {
				return opts, errors.New("skip must be an integer")
			}
			opts.Skip = int(n)
		case "limit":
			n, ok := document.ToInt(v)
			if !ok {
				return opts, errors.New("limit must be an integer")
			}
			opts.Limit = db.Int(int(n))
		default:
			return opts, fmt.Errorf("unknown find option %q", key)
		}
	}
	return opts, nil
}

func updateOptions(args []interface{}, i int) (db.UpdateOptions, error) {
	var opts db.UpdateOptions
	raw, err := docArg(args, i, "options")
	if err != nil || raw == nil {
		return opts, err
	}
	for key, v := range raw {
		switch key {
		case "upsert":
			b, ok := v.(bool)
			if !ok {
				return opts, errors.New("upsert must be a boolean")
			}
			opts.Upsert = b
		default:
			return opts, fmt.Errorf("unknown update option %q", key)
		}
	}
	return opts, nil
}
