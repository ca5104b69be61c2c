package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*NominatimResolver, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	r := NewNominatimResolver(Options{
		Endpoint:  srv.URL + "/search",
		UserAgent: "lademeter-test/1.0",
		Timeout:   5 * time.Second,
	})
	return r, &calls
}

func TestResolve_OK(t *testing.T) {
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/search", req.URL.Path)
		assert.Equal(t, "München", req.URL.Query().Get("q"))
		assert.Equal(t, "json", req.URL.Query().Get("format"))
		assert.Equal(t, "1", req.URL.Query().Get("limit"))
		assert.Equal(t, "lademeter-test/1.0", req.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"48.1371079","lon":"11.5753822","display_name":"München, Bayern, Deutschland"}]`))
	})

	c, err := r.Resolve(context.Background(), "  München ")
	require.NoError(t, err)
	assert.InDelta(t, 48.1371079, c.Lat, 1e-9)
	assert.InDelta(t, 11.5753822, c.Lon, 1e-9)

	// Second lookup of the same place is served from the cache.
	_, err = r.Resolve(context.Background(), "münchen")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestResolve_NotFound(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := r.Resolve(context.Background(), "Nirgendwo")
	require.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestResolve_ServerError(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := r.Resolve(context.Background(), "Berlin")
	require.ErrorIs(t, err, ErrNetwork)
}

func TestResolve_BadBody(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"error":"nope"}`))
	})

	_, err := r.Resolve(context.Background(), "Berlin")
	require.ErrorIs(t, err, ErrNetwork)
}

func TestResolve_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := NewNominatimResolver(Options{Endpoint: srv.URL, UserAgent: "t", Timeout: 20 * time.Millisecond})
	_, err := r.Resolve(context.Background(), "Berlin")
	require.ErrorIs(t, err, ErrNetwork)
}

func TestResolve_EmptyName(t *testing.T) {
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {})

	_, err := r.Resolve(context.Background(), "   ")
	require.ErrorIs(t, err, ErrPlaceNotFound)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestResolve_TLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"lat":"53.55","lon":"9.99","display_name":"Hamburg"}]`))
	}))
	defer srv.Close()

	strict := NewNominatimResolver(Options{Endpoint: srv.URL, UserAgent: "t", Timeout: 5 * time.Second})
	_, err := strict.Resolve(context.Background(), "Hamburg")
	require.ErrorIs(t, err, ErrNetwork)

	insecure := NewNominatimResolver(Options{
		Endpoint:           srv.URL,
		UserAgent:          "t",
		Timeout:            5 * time.Second,
		InsecureSkipVerify: true,
	})
	c, err := insecure.Resolve(context.Background(), "Hamburg")
	require.NoError(t, err)
	assert.InDelta(t, 53.55, c.Lat, 1e-9)
}
