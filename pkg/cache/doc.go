/*
Package cache serves read-mostly scope layouts from memory.

Each scope is cached as an immutable Snapshot holding the scope's pages in
index order with their placements attached. A miss loads all pages and all
placements of the scope in one read transaction. Concurrent misses for the
same scope share one load.

Writers never update a snapshot. They register Invalidate as a commit hook
on their transaction, so an eviction happens only once the write is durable
and never for a rolled back write:

	store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		tx.OnCommit(func() { c.Invalidate(scope) })
		...
	})

Every Invalidate bumps the scope's generation. A load that started before the
bump finishes normally for its callers but is not installed, so a slow reader
cannot put back a layout that a writer has just replaced.

Reads made with a context that carries a transaction go straight to that
transaction and are never cached.

With a RedisNotifier, evictions are also published on a Redis channel and
evictions from other processes are applied locally.
*/
package cache
