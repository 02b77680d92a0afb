package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCollection_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	coll := NewFileCollection(path)
	ctx := context.Background()

	_, err := coll.Load(ctx, "rentacar")
	assert.Equal(t, ErrStateNotFound, err)

	require.NoError(t, coll.Save(ctx, "pickup", []byte("2024-06-10T10:00:00Z")))
	require.NoError(t, coll.Save(ctx, "rentacar", []byte(`{"token":"t1"}`)))

	reopened := NewFileCollection(path)
	got, err := reopened.Load(ctx, "pickup")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-10T10:00:00Z", string(got))

	got, err = reopened.Load(ctx, "rentacar")
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"t1"}`, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileCollection_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileCollection(path).Load(context.Background(), "pickup")
	assert.Error(t, err)
	assert.NotEqual(t, ErrStateNotFound, err)
}

func TestMemoryCollection(t *testing.T) {
	coll := NewMemoryCollection()
	ctx := context.Background()

	_, err := coll.Load(ctx, "k")
	assert.Equal(t, ErrStateNotFound, err)

	value := []byte("v1")
	require.NoError(t, coll.Save(ctx, "k", value))
	value[0] = 'x'

	got, err := coll.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}
