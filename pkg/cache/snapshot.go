package cache

import (
	"time"

	"github.com/cuemby/portal/pkg/types"
)

// Snapshot is the frozen layout of one scope: its pages in index order,
// each carrying its placements in index order.
type Snapshot struct {
	scope    string
	pages    []*types.Page
	byKey    map[string]*types.Page
	loadedAt time.Time
}

// newSnapshot attaches placements to their pages. Both slices must already
// be in display order. Placements of a missing page are dropped.
func newSnapshot(scope string, pages []*types.Page, placements []*types.Placement) *Snapshot {
	s := &Snapshot{
		scope:    scope,
		pages:    pages,
		byKey:    make(map[string]*types.Page, len(pages)),
		loadedAt: time.Now(),
	}

	byRow := make(map[uint64]*types.Page, len(pages))
	for _, p := range pages {
		p.Placements = nil
		byRow[p.RowID] = p
		// First row wins on a legacy duplicate page id
		if _, ok := s.byKey[p.Key()]; !ok {
			s.byKey[p.Key()] = p
		}
	}
	for _, wp := range placements {
		if p, ok := byRow[wp.PageRowID]; ok {
			p.Placements = append(p.Placements, wp)
		}
	}
	return s
}

func (s *Snapshot) Scope() string { return s.scope }

// LoadedAt reports when the snapshot was read from the store
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Pages returns the shared page list. Callers must not modify it.
func (s *Snapshot) Pages() []*types.Page {
	return s.pages
}

// Page looks up a page by case-insensitive page id
func (s *Snapshot) Page(pageID string) (*types.Page, bool) {
	p, ok := s.byKey[types.PageKey(pageID)]
	return p, ok
}

// Clone returns a deep copy of every page and placement
func (s *Snapshot) Clone() []*types.Page {
	out := make([]*types.Page, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.Clone()
	}
	return out
}
