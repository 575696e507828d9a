package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"proxykeeper/proxypool/model"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "proxies.json"))
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := newTestFileStore(t)

	proxies, err := store.ListProxies(context.Background())
	require.NoError(t, err)
	require.Empty(t, proxies)
}

func TestFileStore_Roundtrip(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	key1, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "1.2.3.4:8080", Status: model.StatusActive})
	require.NoError(t, err)
	key2, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "5.6.7.8:3128", Status: model.StatusActive})
	require.NoError(t, err)
	require.NotEqual(t, key1, key2)

	// 重新打开文件，确认落盘。
	reopened := NewFileStore(store.filePath)
	proxies, err := reopened.ListProxies(ctx)
	require.NoError(t, err)
	require.Len(t, proxies, 2)
	require.Equal(t, "1.2.3.4:8080", proxies[key1].Address)
}

func TestFileStore_PutWithKeyOverwrites(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	key, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "1.2.3.4:8080", LastChecked: 1})
	require.NoError(t, err)

	_, err = store.PutProxy(ctx, key, model.ProxyRecord{Address: "1.2.3.4:8080", LastChecked: 2})
	require.NoError(t, err)

	proxies, err := store.ListProxies(ctx)
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	require.EqualValues(t, 2, proxies[key].LastChecked)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	key, err := store.PutStable(ctx, "", model.StableRecord{Address: "1.2.3.4:8080"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteStable(ctx, key))
	require.NoError(t, store.DeleteStable(ctx, key))
	require.NoError(t, store.DeleteProxy(ctx, "never-existed"))
}

func TestFileStore_CollectionsAreIndependent(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	_, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "1.2.3.4:8080"})
	require.NoError(t, err)
	_, err = store.PutStable(ctx, "", model.StableRecord{Address: "1.2.3.4:8080"})
	require.NoError(t, err)

	proxies, err := store.ListProxies(ctx)
	require.NoError(t, err)
	stable, err := store.ListStable(ctx)
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	require.Len(t, stable, 1)
}
