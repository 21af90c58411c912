package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollection() *Collection {
	return NewCollection(
		Note{ID: "n1", Title: "One", Content: "<p>1</p>"},
		Note{ID: "n2", Title: "Two", Content: "<p>2</p>"},
		Note{ID: "n3", Title: "Three", Content: "<p>3</p>"},
	)
}

func TestCollection_NewCollectionCopies(t *testing.T) {
	src := []Note{{ID: "n1", Title: "One"}}
	c := NewCollection(src...)
	src[0].Title = "changed"
	assert.Equal(t, "One", c.At(0).Title)

	out := c.Notes()
	out[0].Title = "changed again"
	assert.Equal(t, "One", c.At(0).Title)
}

func TestCollection_EditsReturnNewCollections(t *testing.T) {
	c := sampleCollection()

	t.Run("replace", func(t *testing.T) {
		next := c.Replace(1, Note{ID: "n2", Title: "Deux"})
		assert.NotSame(t, c, next)
		assert.Equal(t, "Two", c.At(1).Title)
		assert.Equal(t, "Deux", next.At(1).Title)
	})

	t.Run("append", func(t *testing.T) {
		next := c.Append(Note{ID: "n4", Title: "Four"})
		assert.Equal(t, 3, c.Len())
		require.Equal(t, 4, next.Len())
		assert.Equal(t, "n4", next.At(3).ID)
	})

	t.Run("remove", func(t *testing.T) {
		next := c.Remove(0)
		assert.Equal(t, 3, c.Len())
		require.Equal(t, 2, next.Len())
		assert.Equal(t, "n2", next.At(0).ID)
		assert.Equal(t, "n3", next.At(1).ID)
	})
}

func TestCollection_NilSafe(t *testing.T) {
	var c *Collection
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, []Note{}, c.Notes())
	assert.Equal(t, -1, c.Index("n1"))
	assert.Empty(t, c.IDs())
	assert.Equal(t, 1, c.Append(Note{ID: "x"}).Len())
}

func TestCollection_IndexAndEqual(t *testing.T) {
	c := sampleCollection()
	assert.Equal(t, 2, c.Index("n3"))
	assert.Equal(t, -1, c.Index("missing"))

	assert.True(t, c.Equal(sampleCollection()))
	assert.False(t, c.Equal(c.Remove(2)))
	assert.False(t, c.Equal(c.Replace(0, Note{ID: "n1", Title: "Uno"})))
}

func TestCollection_JSONRoundTrip(t *testing.T) {
	data, err := sampleCollection().MarshalJSON()
	require.NoError(t, err)

	var decoded Collection
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, sampleCollection().Equal(&decoded))

	empty, err := NewCollection().MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
