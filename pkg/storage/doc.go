/*
Package storage provides BoltDB-backed persistence for portal layouts.

The storage package implements the Store interface using bbolt. Two logical
tables are kept, each as a top-level bucket holding one nested bucket per
scope:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  pages/                                                    │
	│    <scope>/<row id, big endian uint64> → Page JSON         │
	│                                                            │
	│  placements/                                               │
	│    <scope>/<row id, big endian uint64> → Placement JSON    │
	│                                                            │
	│  Row ids come from NextSequence on the top-level bucket,   │
	│  so they are unique across scopes.                         │
	└────────────────────────────────────────────────────────────┘

# Transactions

Every operation runs inside a Tx obtained from Update or View. The context
handed to the unit of work carries the transaction; passing that context to
another Update or View joins the running transaction instead of opening a
second one (bbolt allows a single writer, so a nested Begin would deadlock).

	err := store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		page, err := tx.GetPage(scope, "portal.default")
		if err != nil {
			return err
		}
		page.Hidden = true
		if err := tx.UpdatePage(page); err != nil {
			return err
		}
		tx.OnCommit(func() { cache.Invalidate(scope) })
		return nil
	})

OnCommit callbacks are registered on the bolt transaction itself. They run
after the outermost transaction commits and never on rollback, even when the
function that registered them has long returned.

# Constraints

bbolt has no secondary indexes, so uniqueness is checked in Go:

  - page index unique per scope
  - page id unique per scope, case-insensitive
  - placement index unique per (page, location)

Rows written by a transaction are validated at the end of every Update,
including joined ones, and again right before commit. A violation returns an
error wrapping ErrConstraint and the transaction rolls back. Rows the
transaction never wrote are not checked, so ties left by older data only
surface once something rewrites them.

UpsertPage is the conditional insert-or-update used to create pages: insert
only when neither the page id nor the index is taken; otherwise replace the
row with the same page id, keeping its old index if another page holds the
requested one.
*/
package storage
