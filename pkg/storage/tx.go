package storage

import (
	"cmp"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/portal/pkg/ordering"
	"github.com/cuemby/portal/pkg/types"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// boltTx adapts a bolt transaction to the Tx table interface. Rows written
// through it are remembered per scope so constraints can be checked before
// commit.
type boltTx struct {
	tx              *bolt.Tx
	dirtyPages      rowSet
	dirtyPlacements rowSet
}

func newBoltTx(tx *bolt.Tx) *boltTx {
	return &boltTx{
		tx:              tx,
		dirtyPages:      make(rowSet),
		dirtyPlacements: make(rowSet),
	}
}

func (t *boltTx) Writable() bool {
	return t.tx.Writable()
}

func (t *boltTx) OnCommit(fn func()) {
	t.tx.OnCommit(fn)
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// scopeBucket returns the per-scope bucket of table. Without create a
// missing scope yields a nil bucket and no error.
func (t *boltTx) scopeBucket(table []byte, scope string, create bool) (*bolt.Bucket, error) {
	root := t.tx.Bucket(table)
	if root == nil {
		return nil, &types.StoreError{Op: "open table", Err: fmt.Errorf("bucket %s missing", table)}
	}
	if !create {
		return root.Bucket([]byte(scope)), nil
	}
	b, err := root.CreateBucketIfNotExists([]byte(scope))
	if err != nil {
		return nil, &types.StoreError{Op: "create scope", Err: err}
	}
	return b, nil
}

func (t *boltTx) nextID(table []byte) (uint64, error) {
	id, err := t.tx.Bucket(table).NextSequence()
	if err != nil {
		return 0, &types.StoreError{Op: "next sequence", Err: err}
	}
	return id, nil
}

func put(b *bolt.Bucket, rowID uint64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &types.StoreError{Op: "marshal", Err: err}
	}
	if err := b.Put(itob(rowID), data); err != nil {
		return &types.StoreError{Op: "put", Err: err}
	}
	return nil
}

func pageOrder(a, b *types.Page) int {
	return cmp.Compare(a.RowID, b.RowID)
}

func placementOrder(a, b *types.Placement) int {
	return cmp.Compare(a.RowID, b.RowID)
}

// Page operations

func (t *boltTx) ListPages(scope string) ([]*types.Page, error) {
	b, err := t.scopeBucket(bucketPages, scope, false)
	if err != nil || b == nil {
		return nil, err
	}

	var pages []*types.Page
	err = b.ForEach(func(k, v []byte) error {
		var page types.Page
		if err := json.Unmarshal(v, &page); err != nil {
			return &types.StoreError{Op: "unmarshal page", Err: err}
		}
		pages = append(pages, &page)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ordering.Sort(pages, pageOrder)
	return pages, nil
}

func (t *boltTx) GetPage(scope, pageID string) (*types.Page, error) {
	pages, err := t.ListPages(scope)
	if err != nil {
		return nil, err
	}
	key := types.PageKey(pageID)
	for _, page := range pages {
		if page.Key() == key {
			return page, nil
		}
	}
	return nil, types.PageNotFound(scope, pageID)
}

// UpsertPage inserts page only when no row in its scope holds the same page
// id or the same index. Otherwise the row with the same page id is replaced,
// taking the requested index only if no other page holds it; a contested
// index is left as it was. When neither path applies (the index belongs to a
// different page and the page id is new) ErrConstraint is returned.
func (t *boltTx) UpsertPage(page *types.Page) error {
	if page.Scope == "" || page.PageID == "" {
		return types.Invalidf("page requires a scope and a page id")
	}

	pages, err := t.ListPages(page.Scope)
	if err != nil {
		return err
	}

	var sameID, holder *types.Page
	for _, p := range pages {
		if p.Key() == page.Key() {
			sameID = p
		}
		if p.Index == page.Index {
			holder = p
		}
	}

	b, err := t.scopeBucket(bucketPages, page.Scope, true)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	var origin *rowOrigin
	switch {
	case sameID == nil && holder == nil:
		id, err := t.nextID(bucketPages)
		if err != nil {
			return err
		}
		page.RowID = id
		if page.EntityID == "" {
			page.EntityID = uuid.NewString()
		}
		if page.CreatedAt.IsZero() {
			page.CreatedAt = now
		}
		page.UpdatedAt = now

	case sameID != nil:
		origin = pageOrigin(sameID)
		if holder != nil && holder.RowID != sameID.RowID {
			page.Index = sameID.Index
		}
		page.RowID = sameID.RowID
		page.EntityID = sameID.EntityID
		page.CreatedAt = sameID.CreatedAt
		page.UpdatedAt = now

	default:
		return fmt.Errorf("%w: index %d in scope %s is held by page %q", ErrConstraint, page.Index, page.Scope, holder.PageID)
	}

	if err := put(b, page.RowID, page); err != nil {
		return err
	}
	t.dirtyPages.add(page.Scope, page.RowID, origin)
	return nil
}

// UpdatePage replaces an existing page row. The entity id is immutable and
// is carried over from the stored row.
func (t *boltTx) UpdatePage(page *types.Page) error {
	b, err := t.scopeBucket(bucketPages, page.Scope, false)
	if err != nil {
		return err
	}
	var data []byte
	if b != nil {
		data = b.Get(itob(page.RowID))
	}
	if data == nil {
		return types.PageNotFound(page.Scope, page.PageID)
	}

	var stored types.Page
	if err := json.Unmarshal(data, &stored); err != nil {
		return &types.StoreError{Op: "unmarshal page", Err: err}
	}
	page.EntityID = stored.EntityID
	page.CreatedAt = stored.CreatedAt
	page.UpdatedAt = time.Now().UTC()

	if err := put(b, page.RowID, page); err != nil {
		return err
	}
	t.dirtyPages.add(page.Scope, page.RowID, pageOrigin(&stored))
	return nil
}

// DeletePage removes the page and every placement it owns
func (t *boltTx) DeletePage(scope, pageID string) error {
	page, err := t.GetPage(scope, pageID)
	if err != nil {
		return err
	}
	b, err := t.scopeBucket(bucketPages, scope, false)
	if err != nil {
		return err
	}
	if err := b.Delete(itob(page.RowID)); err != nil {
		return &types.StoreError{Op: "delete page", Err: err}
	}
	t.dirtyPages.remove(scope, page.RowID)

	placements, err := t.ListPagePlacements(scope, page.RowID)
	if err != nil {
		return err
	}
	for _, wp := range placements {
		if err := t.DeletePlacement(scope, wp.RowID); err != nil {
			return err
		}
	}
	return nil
}

// Placement operations

func (t *boltTx) ListPlacements(scope string) ([]*types.Placement, error) {
	b, err := t.scopeBucket(bucketPlacements, scope, false)
	if err != nil || b == nil {
		return nil, err
	}

	var placements []*types.Placement
	err = b.ForEach(func(k, v []byte) error {
		var wp types.Placement
		if err := json.Unmarshal(v, &wp); err != nil {
			return &types.StoreError{Op: "unmarshal placement", Err: err}
		}
		placements = append(placements, &wp)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ordering.Sort(placements, placementOrder)
	return placements, nil
}

func (t *boltTx) ListPagePlacements(scope string, pageRowID uint64) ([]*types.Placement, error) {
	all, err := t.ListPlacements(scope)
	if err != nil {
		return nil, err
	}
	var placements []*types.Placement
	for _, wp := range all {
		if wp.PageRowID == pageRowID {
			placements = append(placements, wp)
		}
	}
	return placements, nil
}

func (t *boltTx) GetPlacement(scope string, rowID uint64) (*types.Placement, error) {
	b, err := t.scopeBucket(bucketPlacements, scope, false)
	if err != nil {
		return nil, err
	}
	var data []byte
	if b != nil {
		data = b.Get(itob(rowID))
	}
	if data == nil {
		return nil, types.PlacementNotFound(scope, rowID)
	}

	var wp types.Placement
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, &types.StoreError{Op: "unmarshal placement", Err: err}
	}
	return &wp, nil
}

// InsertPlacement assigns a row id to wp and stores it. The owning page must
// exist in the same scope.
func (t *boltTx) InsertPlacement(wp *types.Placement) error {
	pages, err := t.scopeBucket(bucketPages, wp.Scope, false)
	if err != nil {
		return err
	}
	if pages == nil || pages.Get(itob(wp.PageRowID)) == nil {
		return &types.NotFoundError{Kind: "page", Key: fmt.Sprintf("%s/#%d", wp.Scope, wp.PageRowID)}
	}

	b, err := t.scopeBucket(bucketPlacements, wp.Scope, true)
	if err != nil {
		return err
	}
	id, err := t.nextID(bucketPlacements)
	if err != nil {
		return err
	}
	wp.RowID = id
	wp.Location = types.NormalizeLocation(wp.Location)

	if err := put(b, wp.RowID, wp); err != nil {
		return err
	}
	t.dirtyPlacements.add(wp.Scope, wp.RowID, nil)
	return nil
}

// UpdatePlacement replaces an existing placement row
func (t *boltTx) UpdatePlacement(wp *types.Placement) error {
	b, err := t.scopeBucket(bucketPlacements, wp.Scope, false)
	if err != nil {
		return err
	}
	var data []byte
	if b != nil {
		data = b.Get(itob(wp.RowID))
	}
	if data == nil {
		return types.PlacementNotFound(wp.Scope, wp.RowID)
	}
	var stored types.Placement
	if err := json.Unmarshal(data, &stored); err != nil {
		return &types.StoreError{Op: "unmarshal placement", Err: err}
	}
	wp.Location = types.NormalizeLocation(wp.Location)

	if err := put(b, wp.RowID, wp); err != nil {
		return err
	}
	t.dirtyPlacements.add(wp.Scope, wp.RowID, placementOrigin(&stored))
	return nil
}

func (t *boltTx) DeletePlacement(scope string, rowID uint64) error {
	b, err := t.scopeBucket(bucketPlacements, scope, false)
	if err != nil {
		return err
	}
	if b == nil || b.Get(itob(rowID)) == nil {
		return types.PlacementNotFound(scope, rowID)
	}
	if err := b.Delete(itob(rowID)); err != nil {
		return &types.StoreError{Op: "delete placement", Err: err}
	}
	t.dirtyPlacements.remove(scope, rowID)
	return nil
}

func (t *boltTx) DeleteScope(scope string) error {
	for _, table := range [][]byte{bucketPages, bucketPlacements} {
		root := t.tx.Bucket(table)
		if root == nil || root.Bucket([]byte(scope)) == nil {
			continue
		}
		if err := root.DeleteBucket([]byte(scope)); err != nil {
			return &types.StoreError{Op: "delete scope", Err: err}
		}
	}
	delete(t.dirtyPages, scope)
	delete(t.dirtyPlacements, scope)
	return nil
}
