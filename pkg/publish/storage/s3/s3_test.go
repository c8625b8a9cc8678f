package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/summary-publish/pkg/publish"
)

// fakeS3 is a path-style S3 endpoint good enough for HEAD and PUT
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
	puts    int
	fail    map[string]int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: map[string][]byte{},
		headers: map[string]http.Header{},
		fail:    map[string]int{},
	}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/test-bucket/")
	if status, ok := f.fail[key]; ok {
		w.WriteHeader(status)
		return
	}

	switch r.Method {
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"stored"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		f.puts++
		if r.Header.Get("If-None-Match") == "*" {
			if _, ok := f.objects[key]; ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusPreconditionFailed)
				io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
				return
			}
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.headers[key] = r.Header.Clone()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestBackend(t *testing.T, fake *fakeS3, conditional bool) *Backend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	backend, err := New(context.Background(), Config{
		Region:           "ru-central1",
		Bucket:           "test-bucket",
		AccessKeyID:      "test-key",
		SecretAccessKey:  "test-secret",
		Endpoint:         srv.URL,
		UsePathStyle:     true,
		ConditionalWrite: conditional,
		MaxAttempts:      1,
	})
	require.NoError(t, err)
	return backend
}

func TestS3Backend_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(context.Background(), Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(context.Background(), Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", backend.bucket)
	})
}

func TestS3Backend_Exists(t *testing.T) {
	fake := newFakeS3()
	fake.objects["rec1/summary.json"] = []byte(`{}`)
	fake.fail["denied/summary.json"] = http.StatusForbidden
	backend := newTestBackend(t, fake, false)
	ctx := context.Background()

	exists, err := backend.Exists(ctx, "rec1/summary.json")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = backend.Exists(ctx, "missing/summary.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = backend.Exists(ctx, "denied/summary.json")
	require.Error(t, err)
	var storageErr *publish.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "head", storageErr.Op)
	assert.Equal(t, "denied/summary.json", storageErr.Key)
}

func TestS3Backend_PutIfNew(t *testing.T) {
	fake := newFakeS3()
	backend := newTestBackend(t, fake, false)

	data := []byte(`{"t":"Title","s":"<p>x</p>"}`)
	res, err := backend.PutIfNew(context.Background(), "rec1/summary.json", data, publish.PutOptions{
		ContentType:  publish.BlobContentType,
		CacheControl: publish.BlobCacheControl,
		Metadata:     map[string]string{"record-id": "rec1", "content-type": publish.MetadataKind},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", res.ETag)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, data, fake.objects["rec1/summary.json"])
	h := fake.headers["rec1/summary.json"]
	assert.Equal(t, publish.BlobContentType, h.Get("Content-Type"))
	assert.Equal(t, publish.BlobCacheControl, h.Get("Cache-Control"))
	assert.Equal(t, "rec1", h.Get("X-Amz-Meta-Record-Id"))
	assert.Equal(t, publish.MetadataKind, h.Get("X-Amz-Meta-Content-Type"))
	assert.Empty(t, h.Get("If-None-Match"))
}

func TestS3Backend_PutIfNew_Failure(t *testing.T) {
	fake := newFakeS3()
	fake.fail["rec1/summary.json"] = http.StatusInternalServerError
	backend := newTestBackend(t, fake, false)

	_, err := backend.PutIfNew(context.Background(), "rec1/summary.json", []byte(`{}`), publish.PutOptions{})
	require.Error(t, err)
	var storageErr *publish.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "put", storageErr.Op)
	assert.False(t, errors.Is(err, publish.ErrObjectExists))
}

func TestS3Backend_ConditionalWrite(t *testing.T) {
	fake := newFakeS3()
	backend := newTestBackend(t, fake, true)
	ctx := context.Background()

	_, err := backend.PutIfNew(ctx, "rec1/summary.json", []byte(`{"v":1}`), publish.PutOptions{})
	require.NoError(t, err)

	_, err = backend.PutIfNew(ctx, "rec1/summary.json", []byte(`{"v":2}`), publish.PutOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, publish.ErrObjectExists))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []byte(`{"v":1}`), fake.objects["rec1/summary.json"])
	assert.Equal(t, 2, fake.puts)
}
