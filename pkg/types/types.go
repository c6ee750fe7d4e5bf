package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PageType tags what a page renders as
type PageType string

const (
	PageTypePortal PageType = "portal"
	PageTypeLink   PageType = "link"   // Action holds the link target
	PageTypeFolder PageType = "folder" // TargetFolder holds the child scope
)

// Well-known render regions. Any other string is accepted as a location.
const (
	LocationBody    = "body"
	LocationRight   = "right"
	LocationMenuBar = "menu-bar"
)

// DefaultPageID is the page used when a caller does not name one
const DefaultPageID = "portal.default"

// Page is a named, ordered dashboard page within a scope
type Page struct {
	RowID        uint64 // Store-assigned
	EntityID     string // Globally unique, immutable once created
	Scope        string
	PageID       string // Unique per scope, case-insensitive
	Index        int    // Ordering key, unique per scope
	Caption      string
	Hidden       bool
	Type         PageType
	Action       string // Target for link pages
	TargetFolder string // Child scope for folder pages
	Permanent    bool   // Callers refuse rename/hide/delete when set
	Properties   map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Placements is populated on snapshot pages only, in index order
	Placements []*Placement `json:"-"`
}

// NewPage returns a portal page with a fresh entity id
func NewPage(scope, pageID string, index int) *Page {
	now := time.Now().UTC()
	return &Page{
		EntityID:   uuid.NewString(),
		Scope:      scope,
		PageID:     pageID,
		Index:      index,
		Caption:    pageID,
		Type:       PageTypePortal,
		Properties: map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Key returns the case-folded page id used for lookups
func (p *Page) Key() string {
	return PageKey(p.PageID)
}

// PageKey folds a page id for case-insensitive comparison
func PageKey(pageID string) string {
	return strings.ToLower(pageID)
}

func (p *Page) GetIndex() int  { return p.Index }
func (p *Page) SetIndex(i int) { p.Index = i }

// Clone returns a deep copy of the page, including every placement
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Properties = cloneMap(p.Properties)
	if p.Placements != nil {
		c.Placements = make([]*Placement, len(p.Placements))
		for i, wp := range p.Placements {
			c.Placements[i] = wp.Clone()
		}
	}
	return &c
}

// Placement binds one widget instance to a page, a location and an index
type Placement struct {
	RowID           uint64 // Store-assigned, 0 until inserted
	PageRowID       uint64 // Owning page row
	Scope           string
	Name            string // Widget factory name
	Location        string // Render region
	Index           int    // Ordering key, unique within (page, location)
	Permanent       bool
	Properties      map[string]string
	Permission      string // Optional visibility gate
	PermissionScope string // Scope the permission is evaluated against
}

func (wp *Placement) GetIndex() int  { return wp.Index }
func (wp *Placement) SetIndex(i int) { wp.Index = i }

// Clone returns a deep copy of the placement
func (wp *Placement) Clone() *Placement {
	if wp == nil {
		return nil
	}
	c := *wp
	c.Properties = cloneMap(wp.Properties)
	return &c
}

// NormalizeLocation maps an empty location to the body region
func NormalizeLocation(location string) string {
	if location == "" {
		return LocationBody
	}
	return location
}

// Direction for moving a placement within its location
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Caller identifies who is reading a layout
type Caller struct {
	UserID string
	Admin  bool // Sees every placement regardless of permission gates
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
