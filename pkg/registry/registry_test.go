package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	name    string
	widgets map[string]Descriptor
}

func (p staticProvider) Name() string                   { return p.name }
func (p staticProvider) Widgets() map[string]Descriptor { return p.widgets }

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("core", "Calendar", Descriptor{Title: "Calendar"}))

	e, ok := r.Lookup("calendar")
	require.True(t, ok)
	assert.Equal(t, "Calendar", e.Name)
	assert.Equal(t, "core", e.Provider)
	assert.Equal(t, "Calendar", e.Descriptor.Title)

	_, ok = r.Lookup("weather")
	assert.False(t, ok)
}

func TestRegisterSameProviderReplaces(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("core", "news", Descriptor{Title: "v1"}))
	require.NoError(t, r.Register("core", "NEWS", Descriptor{Title: "v2"}))

	e, ok := r.Lookup("news")
	require.True(t, ok)
	assert.Equal(t, "v2", e.Descriptor.Title)
	assert.Equal(t, []string{"NEWS"}, r.Names())
}

func TestRegisterCollisionDisablesLateProvider(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("core", "news", Descriptor{Title: "core news"}))
	require.NoError(t, r.Register("extras", "weather", Descriptor{}))

	err := r.Register("extras", "News", Descriptor{Title: "extras news"})
	require.ErrorIs(t, err, ErrNameTaken)

	assert.True(t, r.Disabled("extras"))
	assert.False(t, r.Disabled("core"))

	e, ok := r.Lookup("news")
	require.True(t, ok)
	assert.Equal(t, "core", e.Provider)

	_, ok = r.Lookup("weather")
	assert.False(t, ok, "registrations of the disabled provider are removed")

	err = r.Register("extras", "stocks", Descriptor{})
	assert.ErrorIs(t, err, ErrProviderDisabled)
	assert.Equal(t, []string{"news"}, r.Names())
}

func TestRegisterEmptyName(t *testing.T) {
	r := New()
	assert.Error(t, r.Register("core", "  ", Descriptor{}))
	assert.False(t, r.Disabled("core"))
}

func TestRegisterProvider(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterProvider(staticProvider{
		name: "core",
		widgets: map[string]Descriptor{
			"weather":  {},
			"Calendar": {},
			"news":     {Locations: []string{"body"}},
		},
	}))
	assert.Equal(t, []string{"Calendar", "news", "weather"}, r.Names())

	err := r.RegisterProvider(staticProvider{
		name:    "late",
		widgets: map[string]Descriptor{"a-first": {}, "weather": {}},
	})
	require.ErrorIs(t, err, ErrNameTaken)
	assert.True(t, r.Disabled("late"))
	assert.Equal(t, []string{"Calendar", "news", "weather"}, r.Names())
}

func TestDescriptorAllowsLocation(t *testing.T) {
	assert.True(t, Descriptor{}.AllowsLocation("right"))
	assert.True(t, Descriptor{Locations: []string{"body"}}.AllowsLocation("body"))
	assert.False(t, Descriptor{Locations: []string{"body"}}.AllowsLocation("right"))
}
