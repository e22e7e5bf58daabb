package portal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/listing":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html></html>"))
		case "/archive.zip":
			w.Header().Set("Content-Type", "application/zip")
			w.Write([]byte{0x50, 0x4B})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, "test-agent", slog.Default())
	ctx := context.Background()

	t.Run("html listing", func(t *testing.T) {
		resp, err := client.Get(ctx, srv.URL+"/listing")
		require.NoError(t, err)
		assert.True(t, resp.IsHTML())
		assert.Equal(t, []byte("<html></html>"), resp.Body)
	})

	t.Run("direct archive", func(t *testing.T) {
		resp, err := client.Get(ctx, srv.URL+"/archive.zip")
		require.NoError(t, err)
		assert.False(t, resp.IsHTML())
		assert.Equal(t, []byte{0x50, 0x4B}, resp.Body)
	})

	t.Run("not found is a RequestError", func(t *testing.T) {
		_, err := client.Get(ctx, srv.URL+"/missing")
		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusNotFound, reqErr.Status)
		assert.Contains(t, reqErr.Error(), "status 404")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := client.Get(cancelled, srv.URL+"/listing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
