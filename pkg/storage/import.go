package storage

import (
	"context"
	"time"

	"github.com/cuemby/portal/pkg/types"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Import writes pages and their nested placements as given, in one
// transaction of its own, assigning fresh row ids. Uniqueness is not checked:
// layouts migrated from older systems may carry index ties, which the next
// swap or save on the affected scope repairs. Rows already stored are left
// alone, so importing into a populated scope can create ties too.
func (s *BoltStore) Import(ctx context.Context, pages []*types.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(btx *bolt.Tx) error {
		tx := newBoltTx(btx)
		now := time.Now().UTC()
		for _, page := range pages {
			if page.Scope == "" || page.PageID == "" {
				return types.Invalidf("imported page requires a scope and a page id")
			}

			pb, err := tx.scopeBucket(bucketPages, page.Scope, true)
			if err != nil {
				return err
			}
			if page.RowID, err = tx.nextID(bucketPages); err != nil {
				return err
			}
			if page.EntityID == "" {
				page.EntityID = uuid.NewString()
			}
			if page.Type == "" {
				page.Type = types.PageTypePortal
			}
			if page.CreatedAt.IsZero() {
				page.CreatedAt = now
			}
			page.UpdatedAt = now
			if err := put(pb, page.RowID, page); err != nil {
				return err
			}

			if len(page.Placements) == 0 {
				continue
			}
			wb, err := tx.scopeBucket(bucketPlacements, page.Scope, true)
			if err != nil {
				return err
			}
			for _, wp := range page.Placements {
				if wp.RowID, err = tx.nextID(bucketPlacements); err != nil {
					return err
				}
				wp.Scope = page.Scope
				wp.PageRowID = page.RowID
				wp.Location = types.NormalizeLocation(wp.Location)
				if err := put(wb, wp.RowID, wp); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
