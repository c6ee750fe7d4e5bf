package portal

import (
	"context"

	"github.com/cuemby/portal/pkg/types"
)

// maxScopeDepth bounds the parent walk in case a resolver returns a cycle
const maxScopeDepth = 64

// Authorizer decides whether caller holds permission on scope
type Authorizer interface {
	HasPermission(ctx context.Context, caller types.Caller, permission, scope string) bool
}

// ScopeResolver returns the parent of a scope, if it has one
type ScopeResolver interface {
	Parent(ctx context.Context, scope string) (string, bool)
}

// AllowAll grants every permission
type AllowAll struct{}

func (AllowAll) HasPermission(context.Context, types.Caller, string, string) bool { return true }

// FlatScopes treats every scope as a root
type FlatScopes struct{}

func (FlatScopes) Parent(context.Context, string) (string, bool) { return "", false }

// AuthorizerFunc adapts a function to Authorizer
type AuthorizerFunc func(ctx context.Context, caller types.Caller, permission, scope string) bool

func (f AuthorizerFunc) HasPermission(ctx context.Context, caller types.Caller, permission, scope string) bool {
	return f(ctx, caller, permission, scope)
}

// ParentMap resolves parents from a fixed child to parent map
type ParentMap map[string]string

func (m ParentMap) Parent(_ context.Context, scope string) (string, bool) {
	parent, ok := m[scope]
	return parent, ok && parent != ""
}

// visible reports whether caller may see wp. The permission is checked
// against the placement's permission scope, or the page scope when unset,
// then against each ancestor of that scope until one grants it.
func (s *Service) visible(ctx context.Context, caller types.Caller, pageScope string, wp *types.Placement) bool {
	if wp.Permission == "" || caller.Admin {
		return true
	}

	scope := wp.PermissionScope
	if scope == "" {
		scope = pageScope
	}

	seen := make(map[string]bool)
	for depth := 0; depth < maxScopeDepth && !seen[scope]; depth++ {
		if s.authz.HasPermission(ctx, caller, wp.Permission, scope) {
			return true
		}
		seen[scope] = true

		parent, ok := s.scopes.Parent(ctx, scope)
		if !ok {
			return false
		}
		scope = parent
	}
	return false
}

// filterVisible returns copies of the placements caller may see, grouped by
// location in index order
func (s *Service) filterVisible(ctx context.Context, caller types.Caller, page *types.Page) map[string][]*types.Placement {
	grouped := make(map[string][]*types.Placement)
	for _, wp := range page.Placements {
		if !s.visible(ctx, caller, page.Scope, wp) {
			continue
		}
		location := types.NormalizeLocation(wp.Location)
		grouped[location] = append(grouped[location], wp.Clone())
	}
	return grouped
}
