package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/portal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names. Each holds one nested bucket per scope.
	bucketPages      = []byte("pages")
	bucketPlacements = []byte("placements")
)

// DefaultFileName is the database file created inside the data directory
const DefaultFileName = "portal.db"

var errReadOnly = &types.StoreError{Op: "update", Err: errors.New("write requested inside a read-only transaction")}

type validator interface {
	validate() error
}

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	return OpenBoltStore(filepath.Join(dataDir, DefaultFileName))
}

// OpenBoltStore opens (or creates) the database at path
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPages, bucketPlacements} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Update runs fn in a read-write transaction
func (s *BoltStore) Update(ctx context.Context, fn TxFunc) error {
	if ambient, ok := TxFromContext(ctx); ok {
		if !ambient.Writable() {
			return errReadOnly
		}
		if err := fn(ctx, ambient); err != nil {
			return err
		}
		// Surface violations to the joined unit of work, not only at commit
		if v, ok := ambient.(validator); ok {
			return v.validate()
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	btx, err := s.db.Begin(true)
	if err != nil {
		return &types.StoreError{Op: "begin", Err: err}
	}
	tx := newBoltTx(btx)

	committed := false
	defer func() {
		if !committed {
			_ = btx.Rollback()
		}
	}()

	if err := fn(WithTx(ctx, tx), tx); err != nil {
		return err
	}
	if err := tx.validate(); err != nil {
		return err
	}

	committed = true
	if err := btx.Commit(); err != nil {
		return &types.StoreError{Op: "commit", Err: err}
	}
	return nil
}

// View runs fn in a read-only transaction
func (s *BoltStore) View(ctx context.Context, fn TxFunc) error {
	if ambient, ok := TxFromContext(ctx); ok {
		return fn(ctx, ambient)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	btx, err := s.db.Begin(false)
	if err != nil {
		return &types.StoreError{Op: "begin", Err: err}
	}
	defer btx.Rollback()

	tx := newBoltTx(btx)
	return fn(WithTx(ctx, tx), tx)
}
