package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, f.Set(ctx, "@posts:posts", []byte("[]")))
	require.NoError(t, f.Set(ctx, "@posts:posts", []byte(`[{"id":"1"}]`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", entries[0].Name()[len(entries[0].Name())-5:])

	v, ok, err := f.Get(ctx, "@posts:posts")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, string(v))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{Kind: KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = Open(ctx, Options{Kind: KindFile, DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, b)

	_, err = Open(ctx, Options{Kind: "etcd"})
	assert.Error(t, err)
}
