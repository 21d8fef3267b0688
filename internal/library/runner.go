package library

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/skshohagmiah/docquery/internal/db"
	"github.com/skshohagmiah/docquery/internal/document"
)

// DatabaseName is the name reported for the library database.
const DatabaseName = "bibliotheque"

// Scenario is one walkthrough step
type Scenario struct {
	Name  string
	Title string
	Run   func(r *Runner) error
}

// Scenarios returns the walkthrough in the order it is meant to run
func Scenarios() []Scenario {
	return []Scenario{
		{"connect", "Connexion et base de données", (*Runner).Connexion},
		{"create", "Création de collections", (*Runner).Creation},
		{"insert", "Insertion de documents", (*Runner).Insertion},
		{"read", "Lecture de documents", (*Runner).Lecture},
		{"filters", "Filtres basiques", (*Runner).FiltresBasiques},
		{"logic", "Filtres logiques", (*Runner).FiltresLogiques},
		{"regex", "Filtres avec expressions régulières", (*Runner).FiltresRegex},
		{"update", "Mise à jour de documents", (*Runner).MiseAJour},
		{"arrays", "Opérations sur les tableaux", (*Runner).Tableaux},
		{"delete", "Suppression de documents", (*Runner).Suppression},
	}
}

// Lookup returns the scenario with the given name
func Lookup(name string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Runner executes scenarios against a database and reports to out
type Runner struct {
	db  *db.Database
	out io.Writer
}

// NewRunner creates a scenario runner
func NewRunner(d *db.Database, out io.Writer) *Runner {
	return &Runner{db: d, out: out}
}

// RunAll runs every scenario in order and stops at the first error
func (r *Runner) RunAll() error {
	for _, s := range Scenarios() {
		r.printf("\n════════ %s ════════\n", s.Title)
		if err := s.Run(r); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

func (r *Runner) collection(name string) (*db.Collection, error) {
	return r.db.Collection(name)
}

// collections returns the livres, membres and emprunts collections
func (r *Runner) collections() (livres, membres, emprunts *db.Collection, err error) {
	if livres, err = r.collection(Livres); err != nil {
		return
	}
	if membres, err = r.collection(Membres); err != nil {
		return
	}
	emprunts, err = r.collection(Emprunts)
	return
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) section(emoji, title string) {
	r.printf("\n%s %s\n", emoji, title)
}

// list prints a count line and one line per document
func (r *Runner) list(label string, docs []document.Document, line func(document.Document) string) {
	r.printf("%s : %d\n", label, len(docs))
	for _, doc := range docs {
		r.printf("  - %s\n", line(doc))
	}
}

// field renders the value at path for display
func field(doc document.Document, path string) string {
	v, ok := document.Lookup(doc, path)
	if !ok || v == nil {
		return "N/A"
	}
	switch val := v.(type) {
	case time.Time:
		return val.Format("02/01/2006")
	case bool:
		if val {
			return "true"
		}
		return "false"
	}
	if items, ok := document.AsSlice(v); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

func titre(doc document.Document) string {
	return field(doc, "titre")
}

func personne(doc document.Document) string {
	return field(doc, "prenom") + " " + field(doc, "nom")
}

func length(doc document.Document, path string) int {
	v, _ := document.Lookup(doc, path)
	items, _ := document.AsSlice(v)
	return len(items)
}

// ignoreExists lets creation steps be rerun against a persisted database
func ignoreExists(err error) (bool, error) {
	if errors.Is(err, db.ErrCollectionExists) {
		return true, nil
	}
	return false, err
}
