/*
Package portal implements the page and widget placement operations of the
dashboard layout service.

A scope (a user, a group, a site) owns an ordered list of pages, and each
page owns placements of widgets in named locations such as "body" or
"right". Pages are ordered by an index unique within their scope;
placements by an index unique within their page location.

# Reads

Reads are served from the scope snapshot cache and always hand out copies:

	pages, _ := svc.ListPages(ctx, "group:42", false)
	grouped, _ := svc.ListPlacements(ctx, "group:42", "portal.default", caller)

ListPlacements drops placements gated by a permission the caller does not
hold. The permission is checked on the placement's permission scope (the
page's scope when unset), then on each parent scope until one grants it.

# Writes

Every write runs in one store transaction. Passing a context that already
carries a transaction joins it, so several operations commit or roll back
together:

	err := store.Update(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := svc.AddPlacement(ctx, scope, "home", "calendar", "", nil); err != nil {
			return err
		}
		return svc.SwapPageIndexes(ctx, scope, "home", "news")
	})

Cache eviction and event delivery are commit hooks, so nothing happens for a
write that rolls back.

A write that loses a race with another client fails with
types.OptimisticConflictError. Callers re-run the whole logical operation,
reads included, usually through Retry:

	err := portal.Retry(ctx, portal.DefaultRetryPolicy, func(ctx context.Context) error {
		return svc.SwapPageIndexes(ctx, scope, a, b)
	})

EnsurePage is the exception: outside a transaction, two callers creating
the same page at once both succeed and get the same row.
*/
package portal
