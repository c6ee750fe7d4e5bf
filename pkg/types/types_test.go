package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	p := NewPage("/home", "Reports", 3)

	assert.NotEmpty(t, p.EntityID)
	assert.Equal(t, "/home", p.Scope)
	assert.Equal(t, "Reports", p.PageID)
	assert.Equal(t, "reports", p.Key())
	assert.Equal(t, 3, p.Index)
	assert.Equal(t, PageTypePortal, p.Type)
	assert.False(t, p.CreatedAt.IsZero())

	other := NewPage("/home", "Reports", 3)
	assert.NotEqual(t, p.EntityID, other.EntityID)
}

func TestPageClone(t *testing.T) {
	p := NewPage("/home", "portal.default", 1)
	p.Properties["theme"] = "dark"
	p.Placements = []*Placement{
		{RowID: 1, Name: "Wiki", Location: LocationBody, Index: 1, Properties: map[string]string{"webPartContainer": "a"}},
		{RowID: 2, Name: "Search", Location: LocationRight, Index: 1},
	}

	c := p.Clone()
	require.NotSame(t, p, c)
	assert.Equal(t, p.PageID, c.PageID)

	c.Properties["theme"] = "light"
	c.Placements[0].Properties["webPartContainer"] = "b"
	c.Placements[1].Index = 9
	c.Placements = append(c.Placements, &Placement{Name: "Extra"})

	assert.Equal(t, "dark", p.Properties["theme"])
	assert.Equal(t, "a", p.Placements[0].Properties["webPartContainer"])
	assert.Equal(t, 1, p.Placements[1].Index)
	assert.Len(t, p.Placements, 2)
}

func TestCloneNil(t *testing.T) {
	var p *Page
	var wp *Placement
	assert.Nil(t, p.Clone())
	assert.Nil(t, wp.Clone())

	bare := &Page{PageID: "x"}
	assert.Nil(t, bare.Clone().Placements)
	assert.Nil(t, bare.Clone().Properties)
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, LocationBody, NormalizeLocation(""))
	assert.Equal(t, LocationRight, NormalizeLocation(LocationRight))
	assert.Equal(t, "custom", NormalizeLocation("custom"))
	assert.Equal(t, "menu-bar", NormalizeLocation(LocationMenuBar))
}

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"conflict", NewConflict("save", errors.New("dup")), ErrConflict},
		{"page not found", PageNotFound("/home", "x"), ErrNotFound},
		{"placement not found", PlacementNotFound("/home", 7), ErrNotFound},
		{"validation", Invalidf("duplicate row id %d", 4), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestConflictError(t *testing.T) {
	cause := errors.New("constraint")
	err := NewConflict("swap pages", cause)

	var conflict *OptimisticConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "swap pages", conflict.Op)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), ConflictMessage)
	assert.Equal(t, ConflictMessage, (&OptimisticConflictError{}).Error())
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Op: "commit", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store commit failed: disk full", err.Error())
	assert.NotErrorIs(t, err, ErrConflict)
}
