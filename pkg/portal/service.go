package portal

import (
	"context"
	"strconv"
	"strings"

	"github.com/cuemby/portal/pkg/cache"
	"github.com/cuemby/portal/pkg/events"
	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/metrics"
	"github.com/cuemby/portal/pkg/ordering"
	"github.com/cuemby/portal/pkg/registry"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/cuemby/portal/pkg/types"
)

// Option configures a Service
type Option func(*Service)

// WithAuthorizer sets the permission check used by ListPlacements
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.authz = a }
}

// WithScopeResolver sets the parent lookup used for permission fallback
func WithScopeResolver(r ScopeResolver) Option {
	return func(s *Service) { s.scopes = r }
}

// WithRegistry sets the widget catalogue. With validate, AddPlacement
// rejects names the registry does not know.
func WithRegistry(reg *registry.Registry, validate bool) Option {
	return func(s *Service) {
		s.registry = reg
		s.validateNames = validate
	}
}

// WithBroker publishes committed changes on broker
func WithBroker(b *events.Broker) Option {
	return func(s *Service) { s.broker = b }
}

// Service exposes the page and placement operations used by the rendering
// and admin layers
type Service struct {
	store         storage.Store
	cache         *cache.Cache
	writer        *Writer
	registry      *registry.Registry
	validateNames bool
	authz         Authorizer
	scopes        ScopeResolver
	broker        *events.Broker
}

// NewService wires a service over store and c
func NewService(store storage.Store, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cache:    c,
		registry: registry.New(),
		authz:    AllowAll{},
		scopes:   FlatScopes{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = NewWriter(store, c, s.broker)
	return s
}

// Writer returns the ordering-sensitive writer used by the service
func (s *Service) Writer() *Writer {
	return s.writer
}

// Registry returns the widget catalogue
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// ListPages returns copies of the scope's pages in index order
func (s *Service) ListPages(ctx context.Context, scope string, includeHidden bool) ([]*types.Page, error) {
	snap, err := s.cache.Get(ctx, scope)
	if err != nil {
		return nil, err
	}

	pages := make([]*types.Page, 0, len(snap.Pages()))
	for _, p := range snap.Pages() {
		if p.Hidden && !includeHidden {
			continue
		}
		pages = append(pages, p.Clone())
	}
	return pages, nil
}

// GetPage returns a copy of one page with its placements
func (s *Service) GetPage(ctx context.Context, scope, pageID string) (*types.Page, error) {
	return s.cache.Editable(ctx, scope, pageID)
}

// EditablePages returns a private deep copy of every page in the scope
func (s *Service) EditablePages(ctx context.Context, scope string) ([]*types.Page, error) {
	snap, err := s.cache.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

// ListPlacements returns the placements of a page that caller may see,
// grouped by location in index order
func (s *Service) ListPlacements(ctx context.Context, scope, pageID string, caller types.Caller) (map[string][]*types.Placement, error) {
	snap, err := s.cache.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	page, ok := snap.Page(pageID)
	if !ok {
		return nil, types.PageNotFound(scope, pageID)
	}
	return s.filterVisible(ctx, caller, page), nil
}

// EnsurePage returns the page, creating or un-hiding it as needed
func (s *Service) EnsurePage(ctx context.Context, scope, pageID string) (*types.Page, error) {
	return s.writer.EnsurePage(ctx, scope, pageID)
}

// CreatePage inserts a fully described page. A zero Index appends it after
// the scope's last page.
func (s *Service) CreatePage(ctx context.Context, page *types.Page) (*types.Page, error) {
	const op = "create_page"
	if page == nil || page.Scope == "" || page.PageID == "" {
		return nil, types.Invalidf("page requires a scope and a page id")
	}
	created := page.Clone()
	created.Placements = nil
	if created.Type == "" {
		created.Type = types.PageTypePortal
	}
	if created.Caption == "" {
		created.Caption = created.PageID
	}

	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		pages, err := tx.ListPages(created.Scope)
		if err != nil {
			return err
		}
		if pagePosition(pages, created.PageID) >= 0 {
			return types.Invalidf("page %s already exists in scope %s", created.PageID, created.Scope)
		}
		if created.Index == 0 {
			created.Index = ordering.Next(pages)
		}
		if err := tx.UpsertPage(created); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{Type: events.EventPageCreated, Scope: created.Scope, PageID: created.PageID})
		return nil
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return created, nil
}

// UpdatePage replaces the stored row of page, matched by scope and page
// id. Identity fields are kept from the stored row.
func (s *Service) UpdatePage(ctx context.Context, page *types.Page) error {
	const op = "update_page"
	if page == nil {
		return types.Invalidf("page is required")
	}
	row := page.Clone()
	row.Placements = nil

	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		stored, err := tx.GetPage(row.Scope, row.PageID)
		if err != nil {
			return err
		}
		row.RowID = stored.RowID
		row.PageID = stored.PageID
		if err := tx.UpdatePage(row); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{Type: events.EventPageUpdated, Scope: row.Scope, PageID: row.PageID})
		return nil
	})
	return translate(op, err)
}

// UpdatePageProperties replaces the whole property map of a page
func (s *Service) UpdatePageProperties(ctx context.Context, scope, pageID string, props map[string]string) error {
	return s.modifyPage(ctx, "update_properties", scope, pageID, func(p *types.Page) bool {
		p.Properties = make(map[string]string, len(props))
		for k, v := range props {
			p.Properties[k] = v
		}
		return true
	})
}

// HidePage marks a page hidden. Hiding a hidden page is a no-op.
func (s *Service) HidePage(ctx context.Context, scope, pageID string) error {
	return s.modifyPage(ctx, "hide_page", scope, pageID, func(p *types.Page) bool {
		if p.Hidden {
			return false
		}
		p.Hidden = true
		return true
	})
}

// ShowPage clears the hidden flag of a page
func (s *Service) ShowPage(ctx context.Context, scope, pageID string) error {
	return s.modifyPage(ctx, "show_page", scope, pageID, func(p *types.Page) bool {
		if !p.Hidden {
			return false
		}
		p.Hidden = false
		return true
	})
}

// modifyPage applies fn to the stored page and writes it back when fn
// reports a change
func (s *Service) modifyPage(ctx context.Context, op, scope, pageID string, fn func(*types.Page) bool) error {
	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		page, err := tx.GetPage(scope, pageID)
		if err != nil {
			return err
		}
		if !fn(page) {
			return nil
		}
		if err := tx.UpdatePage(page); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{Type: events.EventPageUpdated, Scope: scope, PageID: page.PageID, Message: op})
		return nil
	})
	return translate(op, err)
}

// DeletePage removes a page and all of its placements
func (s *Service) DeletePage(ctx context.Context, scope, pageID string) error {
	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.DeletePage(scope, pageID); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{Type: events.EventPageDeleted, Scope: scope, PageID: pageID})
		return nil
	})
	return translate("delete_page", err)
}

// DeleteScope removes every page and placement of a scope that no longer
// exists. Deleting an empty scope is a no-op.
func (s *Service) DeleteScope(ctx context.Context, scope string) error {
	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.DeleteScope(scope); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{Type: events.EventScopeDeleted, Scope: scope})
		return nil
	})
	if err != nil {
		return err
	}
	logger := log.WithScope("service", scope)
	logger.Info().Msg("Deleted scope layout")
	return nil
}

// AddPlacement places widget name on a page, creating the page if needed.
// With a nil index the widget goes after the last one in its location;
// otherwise it takes index and the widgets at or after it move down.
func (s *Service) AddPlacement(ctx context.Context, scope, pageID, name, location string, index *int) (*types.Placement, error) {
	const op = "add_placement"
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WriteDuration, op)

	name = strings.TrimSpace(name)
	location = types.NormalizeLocation(location)
	if name == "" {
		return nil, types.Invalidf("widget name is required")
	}
	if index != nil && *index < 1 {
		return nil, types.Invalidf("placement index must be at least 1, got %d", *index)
	}
	if err := s.checkWidget(name, location); err != nil {
		return nil, err
	}

	var wp *types.Placement
	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		page, err := s.writer.ensurePage(tx, scope, pageID)
		if err != nil {
			return err
		}
		siblings, err := locationPlacements(tx, scope, page.RowID, location)
		if err != nil {
			return err
		}

		// Shifting tied rows would keep them tied, so old ties are
		// resequenced before an explicit insert
		var repaired []*types.Placement
		if index != nil && ordering.HasTies(siblings) {
			repaired = ordering.Resequence(siblings)
		}
		idx, shifted := ordering.InsertAt(siblings, index)
		for _, other := range append(repaired, shifted...) {
			if err := tx.UpdatePlacement(other); err != nil {
				return err
			}
		}

		wp = &types.Placement{
			Scope:     scope,
			PageRowID: page.RowID,
			Name:      name,
			Location:  location,
			Index:     idx,
		}
		if err := tx.InsertPlacement(wp); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{
			Type:     events.EventPlacementAdded,
			Scope:    scope,
			PageID:   page.PageID,
			Metadata: map[string]string{"name": name, "location": location, "placement_id": strconv.FormatUint(wp.RowID, 10)},
		})
		return nil
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return wp, nil
}

func (s *Service) checkWidget(name, location string) error {
	if !s.validateNames {
		return nil
	}
	entry, ok := s.registry.Lookup(name)
	if !ok {
		return types.Invalidf("widget %q is not registered", name)
	}
	if !entry.Descriptor.AllowsLocation(location) {
		return types.Invalidf("widget %q cannot be placed in %s", name, location)
	}
	return nil
}

// locationPlacements returns the placements of one page location in index order
func locationPlacements(tx storage.Tx, scope string, pageRowID uint64, location string) ([]*types.Placement, error) {
	all, err := tx.ListPagePlacements(scope, pageRowID)
	if err != nil {
		return nil, err
	}
	var out []*types.Placement
	for _, wp := range all {
		if wp.Location == location {
			out = append(out, wp)
		}
	}
	return out, nil
}

// SavePlacements replaces the placements of a page with list
func (s *Service) SavePlacements(ctx context.Context, scope, pageID string, list []*types.Placement) ([]*types.Placement, error) {
	return s.writer.SavePlacements(ctx, scope, pageID, list)
}

// SwapPageIndexes exchanges the order of two pages
func (s *Service) SwapPageIndexes(ctx context.Context, scope, a, b string) error {
	return s.writer.SwapPageIndexes(ctx, scope, a, b)
}

// MovePlacement swaps a placement with its neighbour in the same location.
// Moving past either end is a no-op.
func (s *Service) MovePlacement(ctx context.Context, scope string, placementID uint64, dir types.Direction) error {
	const op = "move_placement"

	var step int
	switch dir {
	case types.DirectionUp:
		step = -1
	case types.DirectionDown:
		step = 1
	default:
		return types.Invalidf("unknown direction %q", dir)
	}

	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		wp, err := tx.GetPlacement(scope, placementID)
		if err != nil {
			return err
		}
		siblings, err := locationPlacements(tx, scope, wp.PageRowID, wp.Location)
		if err != nil {
			return err
		}

		pos := -1
		for i, other := range siblings {
			if other.RowID == wp.RowID {
				pos = i
				break
			}
		}
		j := ordering.Neighbor(len(siblings), pos, step)
		if pos < 0 || j < 0 {
			return nil
		}

		for _, changed := range ordering.Swap(siblings, pos, j) {
			if err := tx.UpdatePlacement(changed); err != nil {
				return err
			}
		}
		s.writer.afterCommit(tx, &events.Event{
			Type:     events.EventPlacementMoved,
			Scope:    scope,
			Metadata: map[string]string{"placement_id": strconv.FormatUint(placementID, 10), "direction": string(dir)},
		})
		return nil
	})
	return translate(op, err)
}

// DeletePlacement removes one placement. The indexes of the others are left
// as they are.
func (s *Service) DeletePlacement(ctx context.Context, scope string, placementID uint64) error {
	err := s.store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.DeletePlacement(scope, placementID); err != nil {
			return err
		}
		s.writer.afterCommit(tx, &events.Event{
			Type:     events.EventPlacementDeleted,
			Scope:    scope,
			Metadata: map[string]string{"placement_id": strconv.FormatUint(placementID, 10)},
		})
		return nil
	})
	return translate("delete_placement", err)
}

// RegisterWidgetFactory adds a widget name to the catalogue
func (s *Service) RegisterWidgetFactory(provider, name string, d registry.Descriptor) error {
	return s.registry.Register(provider, name, d)
}
