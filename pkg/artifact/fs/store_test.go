package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutAndExists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewStore(Config{Dir: dir}, log.NewNopLogger())
	key := record.StorageKey{Region: "CA", District: 12, Year: 2023, DocID: 101}

	found, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, key, []byte("%PDF")))

	found, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)

	data, err := os.ReadFile(filepath.Join(dir, "CA", "12", "2023", "101.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestStoreExistsIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(Config{Dir: dir}, log.NewNopLogger())
	key := record.StorageKey{Region: "CA", District: 12, Year: 2023, DocID: 7}
	require.NoError(t, os.MkdirAll(s.Path(key), 0o755))

	found, err := s.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, found)
}
