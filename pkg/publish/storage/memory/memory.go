package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"github.com/tendant/summary-publish/pkg/publish"
)

// Object is a stored blob together with the attributes it was written with
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
	Metadata     map[string]string
	ETag         string
}

// Backend is an in-memory implementation of the publish.ObjectStore interface
type Backend struct {
	mu          sync.RWMutex
	objects     map[string]*Object
	conditional bool
}

// Option configures the memory backend
type Option func(*Backend)

// WithConditionalWrite makes PutIfNew refuse to overwrite an existing key
func WithConditionalWrite() Option {
	return func(b *Backend) {
		b.conditional = true
	}
}

// New creates a new in-memory storage backend
func New(opts ...Option) *Backend {
	b := &Backend{
		objects: make(map[string]*Object),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Exists reports whether key has been written
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[key]
	return exists, nil
}

// PutIfNew stores a copy of data under key
func (b *Backend) PutIfNew(ctx context.Context, key string, data []byte, opts publish.PutOptions) (*publish.PutResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; exists && b.conditional {
		return nil, &publish.StorageError{Backend: "memory", Key: key, Op: "put", Err: publish.ErrObjectExists}
	}

	sum := md5.Sum(data)
	metadata := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	obj := &Object{
		Data:         append([]byte(nil), data...),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		Metadata:     metadata,
		ETag:         hex.EncodeToString(sum[:]),
	}
	b.objects[key] = obj

	return &publish.PutResult{ETag: obj.ETag, Size: int64(len(data))}, nil
}

// Get returns a copy of the stored object
func (b *Backend) Get(key string) (*Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, publish.ErrObjectNotFound
	}
	cp := *obj
	cp.Data = append([]byte(nil), obj.Data...)
	return &cp, nil
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
