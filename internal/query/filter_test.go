package query

import (
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skshohagmiah/docquery/internal/document"
)

func books() []document.Document {
	return []document.Document{
		{
			"titre":             "Le Petit Prince",
			"auteur":            "Antoine de Saint-Exupéry",
			"anneePublication":  1943,
			"genre":             "Fiction",
			"disponible":        true,
			"nombreExemplaires": 3,
			"emplacements":      []interface{}{"Rayon A", "Rayon B"},
			"tags":              []interface{}{"classique", "jeunesse", "philosophie"},
		},
		{
			"titre":             "1984",
			"auteur":            "George Orwell",
			"anneePublication":  1949,
			"genre":             "Science-fiction",
			"disponible":        true,
			"nombreExemplaires": 2,
			"tags":              []interface{}{"dystopie", "classique", "politique"},
		},
		{
			"titre":             "Harry Potter à l'école des sorciers",
			"auteur":            "J.K. Rowling",
			"anneePublication":  1997,
			"genre":             "Fantasy",
			"disponible":        false,
			"nombreExemplaires": 5,
		},
		{
			"titre":             "Le Seigneur des Anneaux",
			"auteur":            "J.R.R. Tolkien",
			"anneePublication":  1954,
			"genre":             "Fantasy",
			"disponible":        true,
			"nombreExemplaires": 3,
		},
		{
			"titre":             "Les Misérables",
			"auteur":            "Victor Hugo",
			"anneePublication":  1862,
			"genre":             "Roman",
			"disponible":        true,
			"nombreExemplaires": 4,
		},
	}
}

func titlesMatching(t *testing.T, docs []document.Document, filter Filter) []string {
	t.Helper()
	m, err := Compile(filter)
	require.NoError(t, err)

	var titles []string
	for _, d := range docs {
		if m.Match(d) {
			titles = append(titles, d["titre"].(string))
		}
	}
	sort.Strings(titles)
	return titles
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	for _, d := range append(books(), document.Document{}, nil) {
		ok, err := Matches(d, Filter{})
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "equality",
			filter: Filter{"genre": "Fantasy"},
			want:   []string{"Harry Potter à l'école des sorciers", "Le Seigneur des Anneaux"},
		},
		{
			name:   "gt",
			filter: Filter{"anneePublication": Filter{"$gt": 1950}},
			want:   []string{"Harry Potter à l'école des sorciers", "Le Seigneur des Anneaux"},
		},
		{
			name:   "gte",
			filter: Filter{"nombreExemplaires": Filter{"$gte": 4}},
			want:   []string{"Harry Potter à l'école des sorciers", "Les Misérables"},
		},
		{
			name:   "lt",
			filter: Filter{"anneePublication": Filter{"$lt": 1945}},
			want:   []string{"Le Petit Prince", "Les Misérables"},
		},
		{
			name:   "lte",
			filter: Filter{"nombreExemplaires": Filter{"$lte": 2}},
			want:   []string{"1984"},
		},
		{
			name:   "range",
			filter: Filter{"anneePublication": Filter{"$gte": 1940, "$lte": 1960}},
			want:   []string{"1984", "Le Petit Prince", "Le Seigneur des Anneaux"},
		},
		{
			name:   "ne",
			filter: Filter{"disponible": Filter{"$ne": true}},
			want:   []string{"Harry Potter à l'école des sorciers"},
		},
		{
			name:   "in",
			filter: Filter{"genre": Filter{"$in": []string{"Fantasy", "Fiction"}}},
			want:   []string{"Harry Potter à l'école des sorciers", "Le Petit Prince", "Le Seigneur des Anneaux"},
		},
		{
			name:   "nin",
			filter: Filter{"genre": Filter{"$nin": []interface{}{"Fantasy", "Fiction"}}},
			want:   []string{"1984", "Les Misérables"},
		},
		{
			name:   "exists",
			filter: Filter{"emplacements": Filter{"$exists": true}},
			want:   []string{"Le Petit Prince"},
		},
		{
			name:   "mismatched types never order",
			filter: Filter{"anneePublication": Filter{"$gt": "1900"}},
			want:   nil,
		},
		{
			name:   "array contains literal",
			filter: Filter{"tags": "classique"},
			want:   []string{"1984", "Le Petit Prince"},
		},
		{
			name:   "all",
			filter: Filter{"tags": Filter{"$all": []string{"classique", "dystopie"}}},
			want:   []string{"1984"},
		},
		{
			name:   "size",
			filter: Filter{"tags": Filter{"$size": 3}},
			want:   []string{"1984", "Le Petit Prince"},
		},
		{
			name:   "not",
			filter: Filter{"nombreExemplaires": Filter{"$not": Filter{"$gt": 3}}},
			want:   []string{"1984", "Le Petit Prince", "Le Seigneur des Anneaux"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titlesMatching(t, books(), tt.filter))
		})
	}
}

func TestScenarioGreaterThan1945(t *testing.T) {
	docs := []document.Document{
		{"titre": "1984", "anneePublication": 1949, "disponible": true},
		{"titre": "Le Petit Prince", "anneePublication": 1943, "disponible": true},
	}
	assert.Equal(t, []string{"1984"}, titlesMatching(t, docs, Filter{"anneePublication": Filter{"$gt": 1945}}))
}

func TestLogicalOperators(t *testing.T) {
	seeded := books()[:4]

	or := Filter{"$or": []interface{}{
		Filter{"genre": "Fantasy"},
		Filter{"anneePublication": Filter{"$lt": 1950}},
	}}
	assert.Equal(t, []string{
		"1984",
		"Harry Potter à l'école des sorciers",
		"Le Petit Prince",
		"Le Seigneur des Anneaux",
	}, titlesMatching(t, seeded, or))

	and := Filter{"$and": []interface{}{
		Filter{"anneePublication": Filter{"$gt": 1950}},
		Filter{"disponible": true},
	}}
	assert.Equal(t, []string{"Le Seigneur des Anneaux"}, titlesMatching(t, seeded, and))

	nor := Filter{"$nor": []interface{}{
		Filter{"genre": "Fantasy"},
		Filter{"genre": "Fiction"},
	}}
	assert.Equal(t, []string{"1984"}, titlesMatching(t, seeded, nor))

	implicit := Filter{"genre": "Fantasy", "disponible": true}
	assert.Equal(t, []string{"Le Seigneur des Anneaux"}, titlesMatching(t, seeded, implicit))

	nested := Filter{"$or": []interface{}{
		Filter{"$and": []interface{}{
			Filter{"genre": "Fantasy"},
			Filter{"disponible": true},
			Filter{"nombreExemplaires": Filter{"$gte": 3}},
		}},
		Filter{"anneePublication": Filter{"$lt": 1945}},
	}}
	assert.Equal(t, []string{"Le Petit Prince", "Le Seigneur des Anneaux"}, titlesMatching(t, seeded, nested))
}

func TestRegexOperators(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"case sensitive", Filter{"titre": Filter{"$regex": "Le"}}, []string{"Le Petit Prince", "Le Seigneur des Anneaux", "Les Misérables"}},
		{"anchored insensitive", Filter{"titre": Filter{"$regex": "^le ", "$options": "i"}}, []string{"Le Petit Prince", "Le Seigneur des Anneaux"}},
		{"suffix", Filter{"titre": Filter{"$regex": "s$", "$options": "i"}}, []string{"Harry Potter à l'école des sorciers", "Les Misérables"}},
		{"word boundary", Filter{"auteur": Filter{"$regex": `\bhugo\b`, "$options": "i"}}, []string{"Les Misérables"}},
		{"alternation", Filter{"auteur": Filter{"$regex": "Hugo|Orwell"}}, []string{"1984", "Les Misérables"}},
		{"digit", Filter{"titre": Filter{"$regex": `\d`}}, []string{"1984"}},
		{"regexp literal", Filter{"titre": regexp.MustCompile(`(?i)harry potter`)}, []string{"Harry Potter à l'école des sorciers"}},
		{"not regex", Filter{"titre": Filter{"$not": regexp.MustCompile(`^Le`)}}, []string{"1984", "Harry Potter à l'école des sorciers"}},
		{"non-string never matches", Filter{"anneePublication": Filter{"$regex": "19"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titlesMatching(t, books(), tt.filter))
		})
	}
}

func TestNestedPathsAndDates(t *testing.T) {
	membre := document.Document{
		"nom":             "Dupont",
		"dateInscription": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"adresse":         document.Document{"ville": "Paris", "rue": "15 rue de la Paix"},
	}

	ok, err := Matches(membre, Filter{"adresse.ville": "Paris"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(membre, Filter{"dateInscription": Filter{"$gte": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(membre, Filter{"adresse.ville.nom": "Paris"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Matches(membre, Filter{"telephone": Filter{"$exists": false}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(membre, Filter{"telephone": nil})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestElemMatch(t *testing.T) {
	emprunt := document.Document{
		"membreNom": "Dupont",
		"historique": []interface{}{
			document.Document{"action": "emprunt", "date": time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
			document.Document{"action": "retour", "date": time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)},
		},
		"notes": []interface{}{72, 85, 91},
	}

	ok, err := Matches(emprunt, Filter{"historique": Filter{"$elemMatch": Filter{
		"action": "retour",
		"date":   Filter{"$gte": time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
	}}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(emprunt, Filter{"historique": Filter{"$elemMatch": Filter{
		"action": "retour",
		"date":   Filter{"$lt": time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
	}}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Matches(emprunt, Filter{"notes": Filter{"$elemMatch": Filter{"$gte": 80, "$lt": 90}}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   error
	}{
		{"unknown field operator", Filter{"a": Filter{"$near": 1}}, ErrUnsupportedOperator},
		{"unknown top-level operator", Filter{"$where": "x"}, ErrUnsupportedOperator},
		{"unknown operator inside or", Filter{"$or": []interface{}{Filter{"a": Filter{"$foo": 1}}}}, ErrUnsupportedOperator},
		{"in needs array", Filter{"a": Filter{"$in": 1}}, ErrBadValue},
		{"or needs list", Filter{"$or": Filter{"a": 1}}, ErrBadValue},
		{"empty or", Filter{"$or": []interface{}{}}, ErrBadValue},
		{"bad regex", Filter{"a": Filter{"$regex": "("}}, ErrBadValue},
		{"options without regex", Filter{"a": Filter{"$options": "i"}}, ErrBadValue},
		{"size needs integer", Filter{"a": Filter{"$size": 1.5}}, ErrBadValue},
		{"not on literal", Filter{"a": Filter{"$not": 3}}, ErrBadValue},
		{"empty path segment", Filter{"a..b": 1}, ErrInvalidFieldPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.filter)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMatchesDoesNotMutate(t *testing.T) {
	doc := books()[0]
	before := doc.Clone()
	_, err := Matches(doc, Filter{"tags": Filter{"$all": []string{"classique"}}, "titre": regexp.MustCompile("Prince")})
	require.NoError(t, err)
	assert.Equal(t, before, doc)
}

func TestEqualityFields(t *testing.T) {
	filter := Filter{
		"titre":   "Le Comte de Monte-Cristo",
		"genre":   Filter{"$eq": "Roman"},
		"annee":   Filter{"$gt": 1800},
		"auteur":  regexp.MustCompile("Dumas"),
		"$and":    []interface{}{Filter{"langue": "Français"}},
		"$or":     []interface{}{Filter{"x": 1}},
		"adresse": Filter{"ville": "Paris"},
	}
	assert.Equal(t, document.Document{
		"titre":   "Le Comte de Monte-Cristo",
		"genre":   "Roman",
		"langue":  "Français",
		"adresse": document.Document{"ville": "Paris"},
	}, EqualityFields(filter))
}
