package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skshohagmiah/docquery/internal/document"
)

func createTestStorage(t *testing.T) *DocStorage {
	t.Helper()
	ds, err := NewDocStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func TestCodecRoundTrip(t *testing.T) {
	born := time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC)
	doc := document.Document{
		"_id":    "m1",
		"nom":    "Dupont",
		"age":    34,
		"note":   4.5,
		"actif":  true,
		"vide":   nil,
		"naiss":  born,
		"genres": []interface{}{"Roman", "Classique"},
		"adresse": document.Document{
			"ville": "Paris",
			"cp":    "75001",
		},
		"emprunts": []interface{}{
			document.Document{"livre": "l1", "date": born},
		},
	}

	data, err := EncodeDocument(doc)
	require.NoError(t, err)

	got, err := DecodeDocument(data)
	require.NoError(t, err)

	assert.Equal(t, int64(34), got["age"])
	assert.Equal(t, 4.5, got["note"])
	assert.Nil(t, got["vide"])
	assert.Contains(t, got, "vide")

	naiss, ok := got["naiss"].(time.Time)
	require.True(t, ok, "date should decode to time.Time")
	assert.True(t, naiss.Equal(born))

	adresse, ok := got["adresse"].(document.Document)
	require.True(t, ok)
	assert.Equal(t, "Paris", adresse["ville"])

	emprunts := got["emprunts"].([]interface{})
	first := emprunts[0].(document.Document)
	assert.IsType(t, time.Time{}, first["date"])

	assert.True(t, document.Equal(doc, got))
}

func TestDecodeDocumentErrors(t *testing.T) {
	_, err := DecodeDocument([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeDocument([]byte(`{"d":{"$date":"yesterday"}}`))
	assert.Error(t, err)
}

func TestDecodeValues(t *testing.T) {
	values, err := DecodeValues([]byte(` {"a": 1} [2.5, {"$date": "2024-01-15T00:00:00Z"}] "x"`))
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, document.Document{"a": int64(1)}, values[0])
	assert.Equal(t, []interface{}{2.5, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)}, values[1])
	assert.Equal(t, "x", values[2])

	values, err = DecodeValues([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = DecodeValues([]byte(`{"a": `))
	assert.Error(t, err)
}

func TestSetGet(t *testing.T) {
	ds := createTestStorage(t)

	require.NoError(t, ds.Set("k1", []byte("v1")))
	got, err := ds.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = ds.Get("k2")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.ErrorIs(t, ds.Set("", nil), ErrInvalidKey)
}

func TestRecordsPreserveInsertionOrder(t *testing.T) {
	ds := createTestStorage(t)

	// seq 10 sorts after seq 9 only with zero padding
	var records []Record
	for seq := uint64(1); seq <= 12; seq++ {
		records = append(records, Record{Seq: seq, Doc: document.Document{"n": int64(seq)}})
	}
	require.NoError(t, ds.Put("livres", records))
	require.NoError(t, ds.Put("membres", []Record{{Seq: 1, Doc: document.Document{"n": int64(99)}}}))

	var seqs []uint64
	err := ds.Load("livres", func(rec Record) error {
		assert.Equal(t, int64(rec.Seq), rec.Doc["n"])
		seqs = append(seqs, rec.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, seqs)

	count, err := ds.Len("livres")
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	require.NoError(t, ds.Remove("livres", []Record{records[1], records[9]}))
	count, err = ds.Len("livres")
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}

func TestRemoveRetiresIDs(t *testing.T) {
	ds := createTestStorage(t)

	rec := Record{Seq: 1, Doc: document.Document{"_id": "b1", "titre": "1984"}}
	require.NoError(t, ds.Put("livres", []Record{rec}))

	retired, err := ds.IsRetired("livres", "b1")
	require.NoError(t, err)
	assert.False(t, retired)

	require.NoError(t, ds.Remove("livres", []Record{rec}))
	retired, err = ds.IsRetired("livres", "b1")
	require.NoError(t, err)
	assert.True(t, retired)

	// retirement is per collection
	retired, err = ds.IsRetired("membres", "b1")
	require.NoError(t, err)
	assert.False(t, retired)

	// dropping the collection forgets its retired ids
	require.NoError(t, ds.DropCollection("livres"))
	retired, err = ds.IsRetired("livres", "b1")
	require.NoError(t, err)
	assert.False(t, retired)
}

func TestCollectionsMetadata(t *testing.T) {
	ds := createTestStorage(t)

	require.NoError(t, ds.SaveCollection("livres", ""))
	require.NoError(t, ds.SaveCollection("membres", `{"type":"object"}`))
	require.NoError(t, ds.Put("membres", []Record{{Seq: 1, Doc: document.Document{"nom": "A"}}}))

	cols, err := ds.Collections()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"livres": "", "membres": `{"type":"object"}`}, cols)

	require.NoError(t, ds.DropCollection("membres"))
	cols, err = ds.Collections()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"livres": ""}, cols)

	count, err := ds.Len("membres")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewDocStorage(dir)
	require.NoError(t, err)
	require.NoError(t, ds.SaveCollection("emprunts", ""))
	require.NoError(t, ds.Put("emprunts", []Record{{Seq: 7, Doc: document.Document{"_id": "e7"}}}))
	require.NoError(t, ds.Close())

	ds, err = NewDocStorage(dir)
	require.NoError(t, err)
	defer ds.Close()

	var loaded []Record
	require.NoError(t, ds.Load("emprunts", func(rec Record) error {
		loaded = append(loaded, rec)
		return nil
	}))
	require.Len(t, loaded, 1)
	assert.Equal(t, uint64(7), loaded[0].Seq)
	assert.Equal(t, "e7", loaded[0].Doc.ID())
}

func TestMemoryStorage(t *testing.T) {
	ds, err := NewMemoryDocStorage()
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.SaveCollection("livres", ""))
	require.NoError(t, ds.Put("livres", []Record{{Seq: 1, Doc: document.Document{"_id": "b1"}}}))

	cols, err := ds.Collections()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"livres": ""}, cols)

	count, err := ds.Len("livres")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
