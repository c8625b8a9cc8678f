package fs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/summary-publish/pkg/publish"
)

// metaSuffix names the sidecar file holding object attributes
const metaSuffix = ".meta.json"

// Config options for the filesystem backend
type Config struct {
	BaseDir          string // Base directory for storing objects
	ConditionalWrite bool   // Refuse to overwrite existing objects
}

// Backend is a filesystem implementation of the publish.ObjectStore interface
type Backend struct {
	baseDir     string
	conditional bool
}

// attributes is the sidecar document written next to each object
type attributes struct {
	ContentType  string            `json:"content_type"`
	CacheControl string            `json:"cache_control"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ETag         string            `json:"etag"`
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:     filepath.Clean(config.BaseDir),
		conditional: config.ConditionalWrite,
	}, nil
}

func (b *Backend) path(key string) (string, error) {
	p := filepath.Join(b.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, b.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("key escapes base directory: %s", key)
	}
	return p, nil
}

// Exists reports whether the object file is present
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	p, err := b.path(key)
	if err != nil {
		return false, &publish.StorageError{Backend: "fs", Key: key, Op: "exists", Err: err}
	}

	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, &publish.StorageError{Backend: "fs", Key: key, Op: "exists", Err: err}
	}
	return true, nil
}

// PutIfNew writes the object and its attribute sidecar. Both are staged in
// temporary files and moved into place, so a failed write never leaves a
// partial object behind.
func (b *Backend) PutIfNew(ctx context.Context, key string, data []byte, opts publish.PutOptions) (*publish.PutResult, error) {
	wrap := func(err error) error {
		return &publish.StorageError{Backend: "fs", Key: key, Op: "put", Err: err}
	}

	p, err := b.path(key)
	if err != nil {
		return nil, wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, wrap(fmt.Errorf("failed to create directory: %w", err))
	}

	sum := md5.Sum(data)
	attrs := attributes{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		Metadata:     opts.Metadata,
		ETag:         hex.EncodeToString(sum[:]),
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, wrap(err)
	}

	tmp, err := writeTemp(filepath.Dir(p), data)
	if err != nil {
		return nil, wrap(fmt.Errorf("failed to write file: %w", err))
	}
	defer os.Remove(tmp)

	if b.conditional {
		// Link fails if the target exists, unlike Rename.
		err = os.Link(tmp, p)
		if errors.Is(err, os.ErrExist) {
			return nil, wrap(publish.ErrObjectExists)
		}
	} else {
		err = os.Rename(tmp, p)
	}
	if err != nil {
		return nil, wrap(fmt.Errorf("failed to place file: %w", err))
	}

	if err := writeFileAtomic(p+metaSuffix, raw); err != nil {
		os.Remove(p)
		return nil, wrap(fmt.Errorf("failed to write attributes: %w", err))
	}

	return &publish.PutResult{ETag: attrs.ETag, Size: int64(len(data))}, nil
}

// writeTemp writes data to a new temporary file in dir and returns its path
func writeTemp(dir string, data []byte) (string, error) {
	file, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	name := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(name)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := writeTemp(filepath.Dir(path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
