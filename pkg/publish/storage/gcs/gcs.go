package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tendant/summary-publish/pkg/publish"
)

const backendName = "gcs"

// Config holds configuration for the GCS backend.
type Config struct {
	Bucket           string
	ConditionalWrite bool // Write with a DoesNotExist precondition
}

// Backend implements publish.ObjectStore on Google Cloud Storage.
type Backend struct {
	client      *storage.Client
	bucket      string
	conditional bool
}

// New creates a GCS-backed object store. Credentials come from ADC unless
// client options say otherwise; STORAGE_EMULATOR_HOST is honoured by the SDK.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &Backend{
		client:      client,
		bucket:      cfg.Bucket,
		conditional: cfg.ConditionalWrite,
	}, nil
}

// Close releases the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// Exists reads the object attributes.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.Bucket(b.bucket).Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, &publish.StorageError{Backend: backendName, Key: key, Op: "attrs", Err: err}
}

// PutIfNew writes the object in one request.
func (b *Backend) PutIfNew(ctx context.Context, key string, data []byte, opts publish.PutOptions) (*publish.PutResult, error) {
	obj := b.client.Bucket(b.bucket).Object(key)
	if b.conditional {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.CacheControl = opts.CacheControl
	w.Metadata = opts.Metadata
	// Single-request upload for small blobs.
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, b.putError(key, err)
	}
	if err := w.Close(); err != nil {
		return nil, b.putError(key, err)
	}

	etag := ""
	if attrs := w.Attrs(); attrs != nil {
		etag = attrs.Etag
	}
	return &publish.PutResult{ETag: etag, Size: int64(len(data))}, nil
}

func (b *Backend) putError(key string, err error) error {
	var apiErr *googleapi.Error
	if b.conditional && errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		err = publish.ErrObjectExists
	}
	return &publish.StorageError{Backend: backendName, Key: key, Op: "put", Err: err}
}
