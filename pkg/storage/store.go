package storage

import (
	"context"
	"errors"

	"github.com/cuemby/portal/pkg/types"
)

// ErrConstraint reports a write that would break a uniqueness rule: two pages
// sharing an index or page id in a scope, or two placements sharing an index
// within a page location.
var ErrConstraint = errors.New("unique constraint violation")

// TxFunc is a unit of work. The context it receives carries the transaction,
// so nested Update and View calls made with it join instead of starting anew.
type TxFunc func(ctx context.Context, tx Tx) error

// Store defines the interface for layout state storage
type Store interface {
	// Update runs fn in a read-write transaction. When ctx already carries
	// a writable transaction fn joins it and nothing is committed here.
	Update(ctx context.Context, fn TxFunc) error

	// View runs fn in a read-only transaction, or in the ambient one
	View(ctx context.Context, fn TxFunc) error

	Close() error
}

// Tx exposes the two layout tables inside one transaction
type Tx interface {
	Writable() bool

	// OnCommit registers fn to run after the outermost transaction commits.
	// It never runs on rollback.
	OnCommit(fn func())

	// Pages
	ListPages(scope string) ([]*types.Page, error)
	GetPage(scope, pageID string) (*types.Page, error)
	UpsertPage(page *types.Page) error
	UpdatePage(page *types.Page) error
	DeletePage(scope, pageID string) error

	// Placements
	ListPlacements(scope string) ([]*types.Placement, error)
	ListPagePlacements(scope string, pageRowID uint64) ([]*types.Placement, error)
	GetPlacement(scope string, rowID uint64) (*types.Placement, error)
	InsertPlacement(wp *types.Placement) error
	UpdatePlacement(wp *types.Placement) error
	DeletePlacement(scope string, rowID uint64) error

	// DeleteScope drops every page and placement of scope
	DeleteScope(scope string) error
}

type txKey struct{}

// WithTx returns a context carrying tx as the ambient transaction
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the ambient transaction, if any
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(Tx)
	return tx, ok && tx != nil
}

// InTransaction reports whether ctx carries an ambient transaction
func InTransaction(ctx context.Context) bool {
	_, ok := TxFromContext(ctx)
	return ok
}
