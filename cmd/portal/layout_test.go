package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuemby/portal/pkg/cache"
	"github.com/cuemby/portal/pkg/config"
	"github.com/cuemby/portal/pkg/metrics"
	"github.com/cuemby/portal/pkg/portal"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/cuemby/portal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLayouts = `
scope: group:42
pages:
  - id: home
    caption: Home
    widgets:
      - name: calendar
      - name: news
        location: right
      - name: tasks
  - id: reports
    hidden: true
---
scope: user:7
pages:
  - id: portal.default
`

func newTestService(t *testing.T) (*storage.BoltStore, *portal.Service) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, err := cache.New(store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return store, portal.NewService(store, c)
}

func TestDecodeLayouts(t *testing.T) {
	layouts, err := decodeLayouts(strings.NewReader(sampleLayouts))
	require.NoError(t, err)
	require.Len(t, layouts, 2)

	assert.Equal(t, "group:42", layouts[0].Scope)
	require.Len(t, layouts[0].Pages, 2)
	assert.True(t, layouts[0].Pages[1].Hidden)
	assert.Equal(t, "user:7", layouts[1].Scope)
}

func TestDecodeLayoutsErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "no layout documents found"},
		{"no scope", "pages:\n  - id: home\n", "layout has no scope"},
		{"unknown field", "scope: s\ncolour: red\n", "failed to parse layout"},
		{"page without id", "scope: s\npages:\n  - caption: x\n", "page 0 has no id"},
		{"duplicate page", "scope: s\npages:\n  - id: Home\n  - id: home\n", "listed twice"},
		{"widget without name", "scope: s\npages:\n  - id: home\n    widgets:\n      - location: body\n", "widget 0 has no name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeLayouts(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLayoutPagesIndexesPerLocation(t *testing.T) {
	layouts, err := decodeLayouts(strings.NewReader(sampleLayouts))
	require.NoError(t, err)

	pages := layouts[0].pages()
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Index)
	assert.Equal(t, 2, pages[1].Index)
	assert.Equal(t, "reports", pages[1].Caption)

	home := pages[0]
	require.Len(t, home.Placements, 3)
	assert.Equal(t, types.LocationBody, home.Placements[0].Location)
	assert.Equal(t, 1, home.Placements[0].Index)
	assert.Equal(t, types.LocationRight, home.Placements[1].Location)
	assert.Equal(t, 1, home.Placements[1].Index)
	assert.Equal(t, 2, home.Placements[2].Index)
}

func TestApplyAndExportRoundTrip(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsurePage(ctx, "group:42", "old")
	require.NoError(t, err)
	_, err = svc.EnsurePage(ctx, "group:42", "reports")
	require.NoError(t, err)

	layouts, err := decodeLayouts(strings.NewReader(sampleLayouts))
	require.NoError(t, err)
	l := layouts[0]

	err = store.Update(ctx, func(ctx context.Context, _ storage.Tx) error {
		return applyLayout(ctx, svc, l, false)
	})
	require.NoError(t, err)

	pages, err := svc.EditablePages(ctx, "group:42")
	require.NoError(t, err)
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.PageID
	}
	assert.Equal(t, []string{"home", "reports", "old"}, ids)
	assert.True(t, pages[1].Hidden)

	visible, err := svc.ListPages(ctx, "group:42", false)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	exported := layoutFromPages("group:42", pages[:2])
	assert.Equal(t, l.Pages, exported.Pages)

	err = store.Update(ctx, func(ctx context.Context, _ storage.Tx) error {
		return applyLayout(ctx, svc, l, true)
	})
	require.NoError(t, err)

	pages, err = svc.ListPages(ctx, "group:42", true)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.True(t, pages[1].Hidden)
}

func TestApplyRollsBackOnError(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	l := &Layout{Scope: "group:1", Pages: []LayoutPage{{ID: "home"}}}
	err := store.Update(ctx, func(ctx context.Context, _ storage.Tx) error {
		if err := applyLayout(ctx, svc, l, false); err != nil {
			return err
		}
		return types.Invalidf("abort")
	})
	require.ErrorIs(t, err, types.ErrValidation)

	pages, err := svc.ListPages(ctx, "group:1", true)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestWidgetProviders(t *testing.T) {
	providers := widgetProviders([]config.WidgetConfig{
		{Provider: "extra", Name: "weather"},
		{Name: "calendar", Locations: []string{"body"}},
		{Name: "news"},
	})
	require.Len(t, providers, 2)
	assert.Equal(t, "config", providers[0].Name())
	assert.Len(t, providers[0].Widgets(), 2)
	assert.Equal(t, []string{"body"}, providers[0].Widgets()["calendar"].Locations)
	assert.Equal(t, "extra", providers[1].Name())
}

func TestParseProperties(t *testing.T) {
	props, err := parseProperties([]string{"color=blue", " title =a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"color": "blue", "title": "a=b", "empty": ""}, props)

	_, err = parseProperties([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseProperties([]string{"=x"})
	assert.Error(t, err)
}

func TestHTTPErrorCodes(t *testing.T) {
	_, svc := newTestService(t)
	mux := newMux(svc, metrics.NewHealthChecker("test"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/scopes/group:9/pages/missing/placements", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/scopes/group:9/pages", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
