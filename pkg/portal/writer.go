package portal

import (
	"context"
	"errors"
	"strconv"

	"github.com/cuemby/portal/pkg/cache"
	"github.com/cuemby/portal/pkg/events"
	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/metrics"
	"github.com/cuemby/portal/pkg/ordering"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/cuemby/portal/pkg/types"
)

// Writer performs the ordering-sensitive layout writes. Each write runs in
// one store transaction, joining the caller's transaction when ctx carries
// one, and schedules cache invalidation and event delivery for after commit.
type Writer struct {
	store  storage.Store
	cache  *cache.Cache
	broker *events.Broker
}

// NewWriter creates a writer. broker may be nil.
func NewWriter(store storage.Store, c *cache.Cache, broker *events.Broker) *Writer {
	return &Writer{store: store, cache: c, broker: broker}
}

// afterCommit evicts the scope and publishes ev once tx commits
func (w *Writer) afterCommit(tx storage.Tx, ev *events.Event) {
	tx.OnCommit(func() {
		w.cache.Invalidate(ev.Scope)
		if w.broker != nil {
			w.broker.Publish(ev)
		}
	})
}

// translate turns a constraint violation into an optimistic conflict and
// counts conflicts per operation
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrConstraint) && !errors.Is(err, types.ErrConflict) {
		err = types.NewConflict(op, err)
	}
	if errors.Is(err, types.ErrConflict) {
		metrics.WriteConflicts.WithLabelValues(op).Inc()
	}
	return err
}

// EnsurePage returns the page, creating it at the end of the scope's order
// if it does not exist and un-hiding it if it was hidden.
//
// Two callers racing to create the same page outside any transaction both
// succeed: the loser's constraint violation is logged and the winner's row
// is returned. Inside a caller's transaction the violation is returned as an
// OptimisticConflictError, since the enclosing unit of work cannot continue.
func (w *Writer) EnsurePage(ctx context.Context, scope, pageID string) (*types.Page, error) {
	const op = "ensure_page"
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WriteDuration, op)

	ambient := storage.InTransaction(ctx)

	var (
		page    *types.Page
		existed bool
	)
	err := w.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		pages, err := tx.ListPages(scope)
		if err != nil {
			return err
		}
		existed = pagePosition(pages, pageID) >= 0
		page, err = w.ensurePage(tx, scope, pageID)
		return err
	})
	if err == nil {
		return page, nil
	}
	// Only a lost insert is swallowed; a failed un-hide is the caller's
	if !errors.Is(err, storage.ErrConstraint) || ambient || existed {
		return nil, translate(op, err)
	}

	logger := log.WithPage("writer", scope, pageID)
	logger.Warn().Err(err).Msg("Page created concurrently, using the existing row")
	metrics.RacesSwallowed.Inc()

	err = w.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		page, err = tx.GetPage(scope, pageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (w *Writer) ensurePage(tx storage.Tx, scope, pageID string) (*types.Page, error) {
	if scope == "" || pageID == "" {
		return nil, types.Invalidf("scope and page id are required")
	}

	pages, err := tx.ListPages(scope)
	if err != nil {
		return nil, err
	}

	key := types.PageKey(pageID)
	for _, p := range pages {
		if p.Key() != key {
			continue
		}
		if p.Hidden {
			p.Hidden = false
			if err := tx.UpdatePage(p); err != nil {
				return nil, err
			}
			w.afterCommit(tx, &events.Event{Type: events.EventPageUpdated, Scope: scope, PageID: p.PageID, Message: "page shown"})
		}
		return p, nil
	}

	page := types.NewPage(scope, pageID, ordering.Next(pages))
	if err := tx.UpsertPage(page); err != nil {
		return nil, err
	}
	w.afterCommit(tx, &events.Event{Type: events.EventPageCreated, Scope: scope, PageID: page.PageID})
	logger := log.WithPage("writer", scope, page.PageID)
	logger.Debug().Int("index", page.Index).Msg("Created page")
	return page, nil
}

// SavePlacements replaces the placements of a page with list, in list
// order. Entries with a zero RowID are inserted; stored rows missing from
// list are deleted. The entries of list are not modified; the saved copies
// are returned.
func (w *Writer) SavePlacements(ctx context.Context, scope, pageID string, list []*types.Placement) ([]*types.Placement, error) {
	const op = "save_placements"
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WriteDuration, op)

	seen := make(map[uint64]bool, len(list))
	saved := make([]*types.Placement, len(list))
	for i, wp := range list {
		if wp == nil {
			return nil, types.Invalidf("placement %d is nil", i)
		}
		if wp.RowID != 0 {
			if seen[wp.RowID] {
				return nil, types.Invalidf("placement %d appears more than once", wp.RowID)
			}
			seen[wp.RowID] = true
		}
		saved[i] = wp.Clone()
	}

	err := w.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		page, err := w.ensurePage(tx, scope, pageID)
		if err != nil {
			return err
		}

		stored, err := tx.ListPagePlacements(scope, page.RowID)
		if err != nil {
			return err
		}
		byID := make(map[uint64]*types.Placement, len(stored))
		for _, wp := range stored {
			byID[wp.RowID] = wp
		}

		ordering.Renumber(saved)
		for _, wp := range saved {
			wp.Scope = scope
			wp.PageRowID = page.RowID
			if wp.RowID != 0 {
				if _, ok := byID[wp.RowID]; !ok {
					return types.NewConflict(op, types.PlacementNotFound(scope, wp.RowID))
				}
			}
		}

		for _, wp := range stored {
			if !seen[wp.RowID] {
				if err := tx.DeletePlacement(scope, wp.RowID); err != nil {
					return err
				}
			}
		}
		for _, wp := range saved {
			if wp.RowID == 0 {
				err = tx.InsertPlacement(wp)
			} else {
				err = tx.UpdatePlacement(wp)
			}
			if err != nil {
				return err
			}
		}

		w.afterCommit(tx, &events.Event{
			Type:     events.EventPlacementsSaved,
			Scope:    scope,
			PageID:   page.PageID,
			Metadata: map[string]string{"count": strconv.Itoa(len(saved))},
		})
		return nil
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return saved, nil
}

// SwapPageIndexes exchanges the indexes of pages a and b. When both hold the
// same index every page of the scope is renumbered in display order
// instead, so the tie cannot survive the write.
func (w *Writer) SwapPageIndexes(ctx context.Context, scope, a, b string) error {
	const op = "swap_pages"
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WriteDuration, op)

	err := w.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		pages, err := tx.ListPages(scope)
		if err != nil {
			return err
		}
		ia, ib := pagePosition(pages, a), pagePosition(pages, b)
		if ia < 0 {
			return types.PageNotFound(scope, a)
		}
		if ib < 0 {
			return types.PageNotFound(scope, b)
		}

		changed := ordering.Swap(pages, ia, ib)
		for _, p := range changed {
			if err := tx.UpdatePage(p); err != nil {
				return err
			}
		}
		if len(changed) > 0 {
			w.afterCommit(tx, &events.Event{
				Type:     events.EventPagesSwapped,
				Scope:    scope,
				PageID:   pages[ia].PageID,
				Metadata: map[string]string{"other": pages[ib].PageID, "changed": strconv.Itoa(len(changed))},
			})
		}
		return nil
	})
	return translate(op, err)
}

func pagePosition(pages []*types.Page, pageID string) int {
	key := types.PageKey(pageID)
	for i, p := range pages {
		if p.Key() == key {
			return i
		}
	}
	return -1
}
