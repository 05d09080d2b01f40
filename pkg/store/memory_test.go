package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Load(t *testing.T) {
	t.Run("initializes and persists on first load", func(t *testing.T) {
		m := NewMemoryStore(quietLogger())

		doc := m.Load()
		assert.Empty(t, doc.Clients)
		assert.NotEmpty(t, m.Raw())
	})

	t.Run("resets corrupt data", func(t *testing.T) {
		m := NewMemoryStore(quietLogger())
		m.SetRaw([]byte("][garbage"))

		doc := m.Load()
		assert.Empty(t, doc.Loans)
		_, err := decodeDocument(m.Raw())
		assert.NoError(t, err)
	})

	t.Run("returns independent copies", func(t *testing.T) {
		m := NewMemoryStore(quietLogger())
		require.NoError(t, m.Save(sampleDocument()))

		first := m.Load()
		first.Clients[0].Name = "changed"

		second := m.Load()
		assert.Equal(t, "Ana", second.Clients[0].Name)
	})
}

func TestMemoryStore_FailWrites(t *testing.T) {
	m := NewMemoryStore(quietLogger())
	require.NoError(t, m.Save(sampleDocument()))
	before := m.Raw()

	quota := errors.New("quota exceeded")
	m.FailWrites(quota)

	doc := sampleDocument()
	doc.Clients[0].Name = "Beto"
	err := m.Save(doc)
	assert.ErrorIs(t, err, quota)
	assert.Equal(t, before, m.Raw(), "failed save must leave stored data untouched")

	m.FailWrites(nil)
	assert.NoError(t, m.Save(doc))
}

func TestMemoryStore_SaveAfterClose(t *testing.T) {
	m := NewMemoryStore(quietLogger())
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Save(sampleDocument()), ErrStoreClosed)
}
