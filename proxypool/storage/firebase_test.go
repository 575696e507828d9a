package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"proxykeeper/proxypool/model"
)

// rtdbDouble emulates the Firebase RTDB REST surface for one collection tree:
// GET <coll>.json, POST <coll>.json -> {"name": key}, PUT/DELETE <coll>/<key>.json.
type rtdbDouble struct {
	mu      sync.Mutex
	data    map[string]map[string]json.RawMessage // collection -> key -> record
	nextKey int
}

func newRTDBDouble() *rtdbDouble {
	return &rtdbDouble{data: make(map[string]map[string]json.RawMessage)}
}

func (d *rtdbDouble) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		defer d.mu.Unlock()

		path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
		parts := strings.SplitN(path, "/", 2)
		collection := parts[0]
		if d.data[collection] == nil {
			d.data[collection] = make(map[string]json.RawMessage)
		}

		switch {
		case r.Method == http.MethodGet && len(parts) == 1:
			if len(d.data[collection]) == 0 {
				fmt.Fprint(w, "null")
				return
			}
			_ = json.NewEncoder(w).Encode(d.data[collection])

		case r.Method == http.MethodPost && len(parts) == 1:
			var body json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&body)
			d.nextKey++
			key := fmt.Sprintf("-push%d", d.nextKey)
			d.data[collection][key] = body
			_ = json.NewEncoder(w).Encode(map[string]string{"name": key})

		case r.Method == http.MethodPut && len(parts) == 2:
			var body json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&body)
			d.data[collection][parts[1]] = body
			_, _ = w.Write(body)

		case r.Method == http.MethodDelete && len(parts) == 2:
			delete(d.data[collection], parts[1])
			fmt.Fprint(w, "null")

		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func newTestFirebaseStore(t *testing.T) (*FirebaseStore, *rtdbDouble) {
	t.Helper()
	double := newRTDBDouble()
	srv := httptest.NewServer(double.handler())
	t.Cleanup(srv.Close)
	return NewFirebaseStore(srv.URL), double
}

func TestFirebaseStore_EmptyCollectionIsNull(t *testing.T) {
	store, _ := newTestFirebaseStore(t)

	proxies, err := store.ListProxies(context.Background())
	require.NoError(t, err)
	require.Empty(t, proxies)

	stable, err := store.ListStable(context.Background())
	require.NoError(t, err)
	require.Empty(t, stable)
}

func TestFirebaseStore_CreateAssignsKey(t *testing.T) {
	store, _ := newTestFirebaseStore(t)
	ctx := context.Background()

	key, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "1.2.3.4:8080", Status: model.StatusActive})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	proxies, err := store.ListProxies(ctx)
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	require.Equal(t, "1.2.3.4:8080", proxies[key].Address)
}

func TestFirebaseStore_PutWithKeyOverwrites(t *testing.T) {
	store, _ := newTestFirebaseStore(t)
	ctx := context.Background()

	key, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "1.2.3.4:8080", LastChecked: 1})
	require.NoError(t, err)

	gotKey, err := store.PutProxy(ctx, key, model.ProxyRecord{Address: "1.2.3.4:8080", LastChecked: 2})
	require.NoError(t, err)
	require.Equal(t, key, gotKey)

	proxies, err := store.ListProxies(ctx)
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	require.EqualValues(t, 2, proxies[key].LastChecked)
}

func TestFirebaseStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := newTestFirebaseStore(t)
	ctx := context.Background()

	key, err := store.PutProxy(ctx, "", model.ProxyRecord{Address: "1.2.3.4:8080"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteProxy(ctx, key))
	// 再删一次：不存在的 key 不是错误。
	require.NoError(t, store.DeleteProxy(ctx, key))
	require.NoError(t, store.DeleteProxy(ctx, "never-existed"))

	proxies, err := store.ListProxies(ctx)
	require.NoError(t, err)
	require.Empty(t, proxies)
}

func TestFirebaseStore_StableRoundtrip(t *testing.T) {
	store, _ := newTestFirebaseStore(t)
	ctx := context.Background()

	rec := model.StableRecord{
		Address:     "1.2.3.4:8080",
		PromotedAt:  1700000000,
		OriginalKey: "-pushX",
		AgeSeconds:  612.5,
	}
	key, err := store.PutStable(ctx, "", rec)
	require.NoError(t, err)

	stable, err := store.ListStable(ctx)
	require.NoError(t, err)
	require.Equal(t, rec, stable[key])

	require.NoError(t, store.DeleteStable(ctx, key))
	stable, err = store.ListStable(ctx)
	require.NoError(t, err)
	require.Empty(t, stable)
}

func TestFirebaseStore_ReadErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewFirebaseStore(srv.URL)
	_, err := store.ListProxies(context.Background())
	require.Error(t, err)
}
