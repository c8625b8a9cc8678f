package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Object attributes attached to every summary write
const (
	BlobContentType  = "application/json; charset=utf-8"
	BlobCacheControl = "public, max-age=86400"
	MetadataKind     = "reader-summary"
)

// Publisher runs the validate, build, check and write pipeline
type Publisher struct {
	store      ObjectStore
	cdnBaseURL string
	logger     *slog.Logger
}

// Option represents a functional option for configuring the Publisher
type Option func(*Publisher)

// WithObjectStore sets the storage backend
func WithObjectStore(store ObjectStore) Option {
	return func(p *Publisher) {
		p.store = store
	}
}

// WithCDNBaseURL sets the public base URL objects are served from
func WithCDNBaseURL(baseURL string) Option {
	return func(p *Publisher) {
		p.cdnBaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a Publisher with the given options
func New(options ...Option) (*Publisher, error) {
	p := &Publisher{}
	for _, option := range options {
		option(p)
	}

	if p.store == nil {
		return nil, errors.New("object store is required")
	}
	if p.cdnBaseURL == "" {
		return nil, errors.New("CDN base URL is required")
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "publisher")

	return p, nil
}

// CDNURL returns the public URL for a storage key
func (p *Publisher) CDNURL(key string) string {
	return p.cdnBaseURL + "/" + key
}

// Publish stores the summary for req unless one already exists.
// Validation failures are returned as *ValidationError; everything else is a
// server-side failure.
func (p *Publisher) Publish(ctx context.Context, req *PublishRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if err := ValidateRecordID(req.RecordID); err != nil {
		return nil, err
	}

	blob := BuildBlob(req)
	key := ObjectKey(req.RecordID)
	result := &Result{
		RecordID: req.RecordID,
		Key:      key,
		CDNURL:   p.CDNURL(key),
	}

	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		p.logger.InfoContext(ctx, "Object already exists, skipping upload", "record_id", req.RecordID, "key", key)
		result.Skipped = true
		return result, nil
	}

	data, err := blob.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize summary blob: %w", err)
	}

	put, err := p.store.PutIfNew(ctx, key, data, PutOptions{
		ContentType:  BlobContentType,
		CacheControl: BlobCacheControl,
		Metadata: map[string]string{
			"record-id":    req.RecordID,
			"content-type": MetadataKind,
		},
	})
	if errors.Is(err, ErrObjectExists) {
		// Lost a race with a concurrent writer under conditional writes.
		p.logger.InfoContext(ctx, "Object created concurrently, skipping upload", "record_id", req.RecordID, "key", key)
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Upload successful", "key", key, "size", put.Size, "etag", put.ETag)
	result.Size = put.Size
	result.ETag = put.ETag
	return result, nil
}
