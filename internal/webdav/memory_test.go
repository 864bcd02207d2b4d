package webdav

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Read(ctx, "/journal_app/journals.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Write(ctx, "/journal_app/journals.json", []byte("{}")))

	data, err := m.Read(ctx, "/journal_app/journals.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)
}

func TestMemoryRemoveRecursive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Write(ctx, "/journal_app/images/a.jpg", []byte("a")))
	require.NoError(t, m.Write(ctx, "/journal_app/images/b.jpg", []byte("b")))
	require.NoError(t, m.Write(ctx, "/journal_app/journals.json", []byte("{}")))

	require.NoError(t, m.Remove(ctx, "/journal_app/images"))

	_, err := m.Read(ctx, "/journal_app/images/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Read(ctx, "/journal_app/journals.json")
	assert.NoError(t, err)
}

func TestMemoryFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("disk full")
	m.WriteErrs["/journal_app/x"] = boom

	err := m.Write(ctx, "/journal_app/x", []byte("data"))
	assert.ErrorIs(t, err, boom)

	_, ok := m.Get("/journal_app/x")
	assert.False(t, ok)
}

func TestMemoryObservesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()

	assert.Error(t, m.Ping(ctx))
	_, err := m.Read(ctx, "/p")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNotFound, Classify(ErrNotFound))
	assert.Equal(t, KindAuth, Classify(ErrAuth))
	assert.Equal(t, KindUnreachable, Classify(ErrUnreachable))
	assert.Equal(t, KindTransient, Classify(errors.New("timeout")))

	assert.True(t, Fatal(ErrAuth))
	assert.True(t, Fatal(ErrUnreachable))
	assert.False(t, Fatal(ErrNotFound))
	assert.False(t, Fatal(errors.New("timeout")))
}
