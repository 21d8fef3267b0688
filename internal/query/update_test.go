package query

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skshohagmiah/docquery/internal/document"
)

func TestSetIsPureAndResolvable(t *testing.T) {
	doc := document.Document{"titre": "1984", "adresse": document.Document{"ville": "Paris"}}
	before := doc.Clone()

	cases := map[string]interface{}{
		"disponible":    false,
		"adresse.ville": "Bordeaux",
		"a.b.c":         []interface{}{1, 2},
	}
	for path, v := range cases {
		out, err := Apply(doc, Update{"$set": document.Document{path: v}})
		require.NoError(t, err)

		got, ok := document.Lookup(out, path)
		require.True(t, ok, path)
		assert.True(t, document.Equal(v, got), path)
		assert.Equal(t, before, doc, "input must not change")
	}
}

func TestSetIsIdempotent(t *testing.T) {
	doc := document.Document{"n": 1}
	update := Update{"$set": document.Document{"langue": "Français"}}

	once, err := Apply(doc, update)
	require.NoError(t, err)
	twice, changed, err := ApplyChanges(once, update)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.False(t, changed)
}

func TestUnsetThenNotExists(t *testing.T) {
	for _, doc := range []document.Document{{"langue": "Français"}, {"titre": "1984"}} {
		out, err := Apply(doc, Update{"$unset": document.Document{"langue": ""}})
		require.NoError(t, err)

		ok, err := Matches(out, Filter{"langue": Filter{"$exists": false}})
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, changed, err := ApplyChanges(document.Document{"titre": "1984"}, Update{"$unset": document.Document{"langue": ""}})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestIncrement(t *testing.T) {
	doc := document.Document{"nombreExemplaires": 5}

	stepwise, err := Apply(doc, Update{"$inc": document.Document{"nombreExemplaires": 2}})
	require.NoError(t, err)
	stepwise, err = Apply(stepwise, Update{"$inc": document.Document{"nombreExemplaires": -3}})
	require.NoError(t, err)

	once, err := Apply(doc, Update{"$inc": document.Document{"nombreExemplaires": -1}})
	require.NoError(t, err)

	assert.Equal(t, once, stepwise)
	assert.Equal(t, 4, once["nombreExemplaires"])

	absent, err := Apply(document.Document{}, Update{"$inc": document.Document{"compteur": 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, absent["compteur"])

	float, err := Apply(doc, Update{"$inc": document.Document{"nombreExemplaires": 0.5}})
	require.NoError(t, err)
	assert.Equal(t, 5.5, float["nombreExemplaires"])
}

func TestIncrementKeepsValueInRange(t *testing.T) {
	out, err := Apply(document.Document{"n": uint(3)}, Update{"$inc": document.Document{"n": -5}})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), out["n"])

	out, err = Apply(document.Document{"n": uint8(250)}, Update{"$inc": document.Document{"n": 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(260), out["n"])

	out, err = Apply(document.Document{"n": int64(math.MaxInt64)}, Update{"$inc": document.Document{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, float64(math.MaxInt64)+1, out["n"])
}

func TestIncrementTypeMismatch(t *testing.T) {
	doc := document.Document{"titre": "1984"}
	_, err := Apply(doc, Update{"$inc": document.Document{"titre": 1}})
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Apply(doc, Update{"$inc": document.Document{"n": "1"}})
	require.ErrorIs(t, err, ErrBadValue)
}

func TestSetAndIncTogether(t *testing.T) {
	doc := document.Document{"titre": "Le Petit Prince", "disponible": false, "nombreExemplaires": 3}
	out, err := Apply(doc, Update{
		"$set": document.Document{"disponible": true},
		"$inc": document.Document{"nombreExemplaires": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["disponible"])
	assert.Equal(t, 4, out["nombreExemplaires"])
}

func TestPush(t *testing.T) {
	doc := document.Document{"livres": []interface{}{"Harry Potter"}}

	out, err := Apply(doc, Update{"$push": document.Document{"livres": "1984"}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Harry Potter", "1984"}, out["livres"])

	out, err = Apply(doc, Update{"$push": document.Document{"livres": document.Document{
		"$each": []interface{}{"Les Misérables", "Le Seigneur des Anneaux"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Harry Potter", "Les Misérables", "Le Seigneur des Anneaux"}, out["livres"])

	out, err = Apply(document.Document{}, Update{"$push": document.Document{"historique": document.Document{"action": "retour"}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{document.Document{"action": "retour"}}, out["historique"])

	assert.Equal(t, []interface{}{"Harry Potter"}, doc["livres"], "input must not change")
}

func TestPushWithSlice(t *testing.T) {
	doc := document.Document{"historique": []interface{}{1, 2, 3, 4, 5}}

	out, err := Apply(doc, Update{"$push": document.Document{"historique": document.Document{
		"$each":  []interface{}{6, 7, 8},
		"$slice": -3,
	}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{6, 7, 8}, out["historique"])

	out, err = Apply(doc, Update{"$push": document.Document{"historique": document.Document{
		"$each":  []interface{}{6},
		"$slice": 2,
	}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, 2}, out["historique"])

	out, err = Apply(doc, Update{"$push": document.Document{"historique": document.Document{
		"$each":  []interface{}{},
		"$slice": 0,
	}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, out["historique"])
}

func TestPushErrors(t *testing.T) {
	_, err := Apply(document.Document{"titre": "x"}, Update{"$push": document.Document{"titre": "y"}})
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Apply(document.Document{}, Update{"$push": document.Document{"a": document.Document{"$slice": 1}}})
	require.ErrorIs(t, err, ErrBadValue)

	_, err = Apply(document.Document{}, Update{"$push": document.Document{"a": document.Document{"$each": []interface{}{1}, "$sort": 1}}})
	require.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestAddToSet(t *testing.T) {
	doc := document.Document{"livres": []interface{}{"Harry Potter", "Les Misérables"}}

	out, changed, err := ApplyChanges(doc, Update{"$addToSet": document.Document{"livres": "Les Misérables"}})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, out["livres"], 2)

	out, changed, err = ApplyChanges(doc, Update{"$addToSet": document.Document{"livres": "1984"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []interface{}{"Harry Potter", "Les Misérables", "1984"}, out["livres"])

	out, err = Apply(doc, Update{"$addToSet": document.Document{"livres": document.Document{
		"$each": []interface{}{"1984", "Harry Potter", "1984"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Harry Potter", "Les Misérables", "1984"}, out["livres"])
}

func TestPull(t *testing.T) {
	doc := document.Document{
		"livres": []interface{}{"Le Petit Prince", "1984", "Le Petit Prince"},
		"historique": []interface{}{
			document.Document{"action": "emprunt", "livre": "Le Petit Prince"},
			document.Document{"action": "emprunt", "livre": "1984"},
			document.Document{"action": "retour", "livre": "Le Petit Prince"},
		},
		"notes": []interface{}{3, 7, 9},
	}

	out, err := Apply(doc, Update{"$pull": document.Document{"livres": "Le Petit Prince"}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"1984"}, out["livres"])

	out, err = Apply(doc, Update{"$pull": document.Document{"historique": document.Document{"livre": "Le Petit Prince"}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{document.Document{"action": "emprunt", "livre": "1984"}}, out["historique"])

	out, err = Apply(doc, Update{"$pull": document.Document{"notes": document.Document{"$gte": 7}}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{3}, out["notes"])

	out, changed, err := ApplyChanges(doc, Update{"$pull": document.Document{"absent": 1}})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NotContains(t, out, "absent")
}

func TestPullThenPushRestoresLength(t *testing.T) {
	doc := document.Document{"tags": []interface{}{"classique", "jeunesse", "philosophie"}}

	pulled, err := Apply(doc, Update{"$pull": document.Document{"tags": "jeunesse"}})
	require.NoError(t, err)
	pushed, err := Apply(pulled, Update{"$push": document.Document{"tags": "jeunesse"}})
	require.NoError(t, err)

	assert.Len(t, pushed["tags"], 3)
	assert.ElementsMatch(t, doc["tags"], pushed["tags"])
}

func TestPop(t *testing.T) {
	doc := document.Document{"livres": []interface{}{"a", "b", "c"}}

	last, err := Apply(doc, Update{"$pop": document.Document{"livres": 1}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, last["livres"])

	first, err := Apply(doc, Update{"$pop": document.Document{"livres": -1}})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"b", "c"}, first["livres"])

	empty, changed, err := ApplyChanges(document.Document{"livres": []interface{}{}}, Update{"$pop": document.Document{"livres": 1}})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []interface{}{}, empty["livres"])

	_, err = Apply(doc, Update{"$pop": document.Document{"livres": 0}})
	require.ErrorIs(t, err, ErrBadValue)
}

func TestUpdateErrors(t *testing.T) {
	doc := document.Document{"_id": "x", "titre": "1984", "adresse": "Paris"}

	tests := []struct {
		name   string
		update Update
		want   error
	}{
		{"empty", Update{}, ErrBadValue},
		{"unknown operator", Update{"$rename": document.Document{"a": "b"}}, ErrUnsupportedOperator},
		{"replacement document", Update{"titre": "x"}, ErrBadValue},
		{"operand not an object", Update{"$set": 1}, ErrBadValue},
		{"path through scalar", Update{"$set": document.Document{"adresse.ville": "Lyon"}}, ErrInvalidFieldPath},
		{"conflicting paths", Update{"$set": document.Document{"a": 1}, "$inc": document.Document{"a": 1}}, ErrConflictingUpdate},
		{"nested conflict", Update{"$set": document.Document{"a": 1, "a.b": 2}}, ErrConflictingUpdate},
		{"id change", Update{"$set": document.Document{"_id": "y"}}, ErrImmutableField},
		{"id unset", Update{"$unset": document.Document{"_id": ""}}, ErrImmutableField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := doc.Clone()
			out, err := Apply(doc, tt.update)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, out)
			assert.Equal(t, before, doc)
		})
	}
}

func TestSetSameIDAllowed(t *testing.T) {
	doc := document.Document{"_id": "x"}
	out, changed, err := ApplyChanges(doc, Update{"$set": document.Document{"_id": "x", "at": time.Unix(0, 0)}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "x", out.ID())
}

func TestBuilders(t *testing.T) {
	filter := NewFilter().
		Gte("anneePublication", 1940).
		Lte("anneePublication", 1960).
		In("genre", "Fiction", "Science-fiction").
		Build()

	assert.Equal(t, []string{"1984", "Le Petit Prince"}, titlesMatching(t, books(), filter))

	or := NewFilter().Or(Filter{"genre": "Fantasy"}, Filter{"anneePublication": Filter{"$lt": 1900}}).Build()
	assert.Equal(t, []string{"Harry Potter à l'école des sorciers", "Le Seigneur des Anneaux", "Les Misérables"},
		titlesMatching(t, books(), or))

	slice := -2
	update := NewUpdate().
		Set("disponible", false).
		Inc("nombreExemplaires", -1).
		PushEach("tags", []interface{}{"x", "y"}, &slice).
		Build()
	out, err := Apply(books()[1], update)
	require.NoError(t, err)
	assert.Equal(t, false, out["disponible"])
	assert.Equal(t, 1, out["nombreExemplaires"])
	assert.Equal(t, []interface{}{"x", "y"}, out["tags"])
}
