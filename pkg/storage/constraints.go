package storage

import (
	"fmt"

	"github.com/cuemby/portal/pkg/types"
)

// rowOrigin records where a row sat before the transaction first wrote it.
// A nil origin marks a row inserted by the transaction.
type rowOrigin struct {
	index    int
	key      string // page id, case-folded
	page     uint64 // placement owner
	location string
}

// rowSet tracks written row ids per scope with their origin
type rowSet map[string]map[uint64]*rowOrigin

// add records a write. The first origin seen for a row is kept.
func (s rowSet) add(scope string, rowID uint64, origin *rowOrigin) {
	rows, ok := s[scope]
	if !ok {
		rows = make(map[uint64]*rowOrigin)
		s[scope] = rows
	}
	if _, seen := rows[rowID]; !seen {
		rows[rowID] = origin
	}
}

func (s rowSet) remove(scope string, rowID uint64) {
	delete(s[scope], rowID)
}

type placementSlot struct {
	page     uint64
	location string
	index    int
}

// validate checks every row written since the last successful validation
// against the rest of its scope. Only a row whose ordering key or page id
// moved is checked: ties left by old data do not block writes that keep a
// row where it was.
func (t *boltTx) validate() error {
	if !t.tx.Writable() {
		return nil
	}

	for scope, rows := range t.dirtyPages {
		if len(rows) == 0 {
			continue
		}
		pages, err := t.ListPages(scope)
		if err != nil {
			return err
		}
		byIndex := make(map[int][]uint64)
		byKey := make(map[string][]uint64)
		for _, p := range pages {
			byIndex[p.Index] = append(byIndex[p.Index], p.RowID)
			byKey[p.Key()] = append(byKey[p.Key()], p.RowID)
		}
		for _, p := range pages {
			origin, written := rows[p.RowID]
			if !written {
				continue
			}
			if (origin == nil || origin.index != p.Index) && len(byIndex[p.Index]) > 1 {
				return fmt.Errorf("%w: page index %d is not unique in scope %s", ErrConstraint, p.Index, scope)
			}
			if (origin == nil || origin.key != p.Key()) && len(byKey[p.Key()]) > 1 {
				return fmt.Errorf("%w: page id %q is not unique in scope %s", ErrConstraint, p.PageID, scope)
			}
		}
	}

	for scope, rows := range t.dirtyPlacements {
		if len(rows) == 0 {
			continue
		}
		placements, err := t.ListPlacements(scope)
		if err != nil {
			return err
		}
		slots := make(map[placementSlot]int)
		for _, wp := range placements {
			slots[slotOf(wp.PageRowID, wp.Location, wp.Index)]++
		}
		for _, wp := range placements {
			origin, written := rows[wp.RowID]
			if !written {
				continue
			}
			slot := slotOf(wp.PageRowID, wp.Location, wp.Index)
			if origin != nil && slotOf(origin.page, origin.location, origin.index) == slot {
				continue
			}
			if slots[slot] > 1 {
				return fmt.Errorf("%w: placement index %d is not unique in %s location of page #%d",
					ErrConstraint, wp.Index, wp.Location, wp.PageRowID)
			}
		}
	}

	t.dirtyPages = make(rowSet)
	t.dirtyPlacements = make(rowSet)
	return nil
}

func slotOf(page uint64, location string, index int) placementSlot {
	return placementSlot{page: page, location: location, index: index}
}

func pageOrigin(p *types.Page) *rowOrigin {
	return &rowOrigin{index: p.Index, key: p.Key()}
}

func placementOrigin(wp *types.Placement) *rowOrigin {
	return &rowOrigin{index: wp.Index, page: wp.PageRowID, location: wp.Location}
}
