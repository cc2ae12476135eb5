package store

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/firestore"
)

// Backend names reported by Open.
const (
	BackendMemory    = "memory"
	BackendSQL       = "sql"
	BackendFirestore = "firestore"
)

// OpenOptions selects a backend. Memory wins over SQL, SQL over Firestore.
type OpenOptions struct {
	Memory    bool
	Driver    string
	DSN       string
	ProjectID string
}

// Opened is a ready backend and the resource to release when done.
type Opened struct {
	Store   Store
	Backend string
	closer  io.Closer
}

// Close releases the backend's connection, if any.
func (o *Opened) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// Open connects to the backend described by opts. SQL schemas are migrated
// before returning.
func Open(ctx context.Context, opts OpenOptions) (*Opened, error) {
	switch {
	case opts.Memory:
		return &Opened{Store: NewMemoryStore(), Backend: BackendMemory}, nil

	case opts.Driver != "":
		db, err := OpenSQL(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		src, err := NewSQLSource(db, opts.Driver)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := src.Migrate(ctx); err != nil {
			src.Close()
			return nil, err
		}
		return &Opened{Store: src, Backend: BackendSQL, closer: src}, nil

	default:
		if opts.ProjectID == "" {
			return nil, fmt.Errorf("a project id is required for Firestore")
		}
		client, err := firestore.NewClient(ctx, opts.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		return &Opened{Store: NewFirestoreSource(client), Backend: BackendFirestore, closer: client}, nil
	}
}
