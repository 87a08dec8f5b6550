package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

func TestFetchSaveRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	handle := domain.StorageHandle{Provider: Provider, Path: "books/macro.xlsx"}

	require.NoError(t, store.Save(context.Background(), handle, []byte("workbook-v1")))

	data, err := store.Fetch(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook-v1"), data)

	// saving again replaces the previous version
	require.NoError(t, store.Save(context.Background(), handle, []byte("workbook-v2")))
	data, err = store.Fetch(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook-v2"), data)
}

func TestFetch_Missing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Fetch(context.Background(), domain.StorageHandle{Path: "absent.xlsx"})
	require.Error(t, err)
	assert.True(t, errs.IsSheetNotFound(err))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	handle := domain.StorageHandle{Path: "macro.xlsx"}

	require.NoError(t, store.Save(context.Background(), handle, []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "macro.xlsx", entries[0].Name())
}

func TestResolve_AbsolutePathWins(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	store := NewStore(dir)

	abs := filepath.Join(other, "macro.xlsx")
	require.NoError(t, store.Save(context.Background(), domain.StorageHandle{Path: abs}, []byte("x")))

	_, err := os.Stat(abs)
	assert.NoError(t, err, "absolute paths bypass the base directory")
}
