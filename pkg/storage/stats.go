package storage

import (
	"context"

	"github.com/cuemby/portal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// Stats counts layout rows across all scopes
type Stats struct {
	Scopes     int
	Pages      int
	Placements int
}

// Stats walks both tables in a read transaction
func (s *BoltStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		pages := tx.Bucket(bucketPages)
		if err := pages.ForEachBucket(func(scope []byte) error {
			n := pages.Bucket(scope).Stats().KeyN
			if n > 0 {
				stats.Scopes++
			}
			stats.Pages += n
			return nil
		}); err != nil {
			return err
		}

		placements := tx.Bucket(bucketPlacements)
		return placements.ForEachBucket(func(scope []byte) error {
			stats.Placements += placements.Bucket(scope).Stats().KeyN
			return nil
		})
	})
	if err != nil {
		return Stats{}, &types.StoreError{Op: "stats", Err: err}
	}
	return stats, nil
}

// Ping checks that the database is open and readable
func (s *BoltStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketPages) == nil {
			return &types.StoreError{Op: "ping", Err: bolt.ErrBucketNotFound}
		}
		return nil
	})
}
