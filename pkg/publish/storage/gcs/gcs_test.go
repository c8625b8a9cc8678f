package gcs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCSBackend_EmptyBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")
}

func TestGCSBackend_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/o/present/summary.json"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"bucket":"test-bucket","name":"present/summary.json","etag":"CAE="}`))
		case strings.HasSuffix(r.URL.Path, "/o/missing/summary.json"):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
		}
	}))
	defer srv.Close()

	t.Setenv("STORAGE_EMULATOR_HOST", strings.TrimPrefix(srv.URL, "http://"))

	backend, err := New(context.Background(), Config{Bucket: "test-bucket"})
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	exists, err := backend.Exists(ctx, "present/summary.json")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = backend.Exists(ctx, "missing/summary.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = backend.Exists(ctx, "denied/summary.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage operation attrs failed")
}
