/*
Package types defines the layout data model shared by every portal package.

A scope (folder, project, workspace) owns a set of pages. Each page owns an
ordered list of placements, one per widget instance, grouped by the render
region ("location") they are drawn in:

	scope "/home"
	 ├── page "portal.default"  index 1
	 │    ├── body   : Wiki@1, Search@2
	 │    └── right  : Projects@1
	 └── page "reports"         index 2
	      └── body   : Query@1

# Ordering keys

Page.Index orders pages within a scope and is unique per scope.
Placement.Index orders placements within their location and is unique per
(page, location). Indexes are ordering keys, not positions: gaps are legal.

# Copying

Pages and placements handed out by the read cache are shared and must be
treated as read-only. Callers that intend to edit use Clone, which copies the
page, its properties and every placement.

# Errors

	OptimisticConflictError  lost a race on a uniqueness constraint; retry
	NotFoundError            scope, page or placement is gone
	ValidationError          inconsistent input (duplicate row ids, unknown widget)
	StoreError               anything else from storage; not retried

Each error matches its sentinel (ErrConflict, ErrNotFound, ErrValidation)
with errors.Is.
*/
package types
