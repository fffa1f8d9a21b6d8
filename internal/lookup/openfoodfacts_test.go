package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]string)}
}

func (c *mapCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func TestLookupFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/8901030974328.json", r.URL.Path)
		w.Write([]byte(`{"status":1,"product":{"product_name":"Parle-G Gold","generic_name_en":"Glucose biscuits"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil, time.Hour)
	prefill, err := c.Lookup(context.Background(), "8901030974328")
	require.NoError(t, err)
	assert.Equal(t, "Parle-G Gold", prefill.Name)
	assert.Equal(t, "Glucose biscuits", prefill.Description)
}

func TestLookupFallsBackToCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":1,"product":{"product_name":"Tata Tea Gold","categories":"Beverages, Teas"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil, time.Hour)
	prefill, err := c.Lookup(context.Background(), "8901725164016")
	require.NoError(t, err)
	assert.Equal(t, "Beverages, Teas", prefill.Description)
}

func TestLookupUnknownBarcodeIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil, time.Hour)
	prefill, err := c.Lookup(context.Background(), "000")
	require.NoError(t, err)
	assert.Empty(t, prefill.Name)
	assert.Empty(t, prefill.Description)
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil, time.Hour)
	_, err := c.Lookup(context.Background(), "123")
	assert.Error(t, err)
}

func TestLookupUsesCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"status":1,"product":{"product_name":"Maggi Noodles","generic_name_en":"Instant noodles"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, newMapCache(), time.Hour)

	first, err := c.Lookup(context.Background(), "8901030724831")
	require.NoError(t, err)
	second, err := c.Lookup(context.Background(), "8901030724831")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, hits)
}
