package publish

import "context"

// ObjectStore is the storage collaborator used by the Publisher
type ObjectStore interface {
	// Exists reports whether an object is stored under key. A missing object
	// is (false, nil); any other failure is a *StorageError.
	Exists(ctx context.Context, key string) (bool, error)

	// PutIfNew writes data under key. Unless the backend is configured for
	// conditional writes this is a plain overwrite; the caller checks Exists
	// first. Backends that enforce the condition return ErrObjectExists.
	PutIfNew(ctx context.Context, key string, data []byte, opts PutOptions) (*PutResult, error)
}

// Notifier delivers best-effort operator alerts. Implementations never return
// errors and never panic; delivery problems are only logged.
type Notifier interface {
	Notify(ctx context.Context, message string, fields map[string]string)
}
