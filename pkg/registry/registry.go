package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrNameTaken is returned when a widget name is already held by another provider
	ErrNameTaken = errors.New("widget name already registered")

	// ErrProviderDisabled is returned for registrations from a provider that
	// lost a name collision
	ErrProviderDisabled = errors.New("widget provider disabled")
)

// Descriptor describes what a widget factory offers. Rendering is not
// modelled here.
type Descriptor struct {
	Title       string
	Description string
	Category    string
	// Locations the widget may be placed in; empty means any
	Locations []string
}

// AllowsLocation reports whether the widget may be placed in location
func (d Descriptor) AllowsLocation(location string) bool {
	return len(d.Locations) == 0 || slices.Contains(d.Locations, location)
}

// Provider contributes a set of widget factories at startup
type Provider interface {
	Name() string
	Widgets() map[string]Descriptor
}

// Entry is a registered widget factory
type Entry struct {
	Name       string
	Provider   string
	Descriptor Descriptor
}

// Registry maps widget factory names to descriptors. The first provider to
// register a name owns it; a later provider claiming the same name is
// disabled and loses everything it registered.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	disabled map[string]error
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries:  make(map[string]Entry),
		disabled: make(map[string]error),
	}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register records name for provider. Re-registering a name the provider
// already owns replaces its descriptor.
func (r *Registry) Register(provider, name string, d Descriptor) error {
	k := key(name)
	if k == "" {
		return fmt.Errorf("provider %s: widget name must not be empty", provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cause, ok := r.disabled[provider]; ok {
		return fmt.Errorf("%w: %s (%v)", ErrProviderDisabled, provider, cause)
	}

	if existing, ok := r.entries[k]; ok && existing.Provider != provider {
		err := fmt.Errorf("%w: %q is provided by %s, rejected from %s", ErrNameTaken, name, existing.Provider, provider)
		r.disable(provider, err)
		return err
	}

	r.entries[k] = Entry{Name: name, Provider: provider, Descriptor: d}
	return nil
}

// disable drops every entry owned by provider. Callers hold mu.
func (r *Registry) disable(provider string, cause error) {
	r.disabled[provider] = cause
	for k, e := range r.entries {
		if e.Provider == provider {
			delete(r.entries, k)
		}
	}
}

// RegisterProvider registers every widget of p in name order, stopping at
// the first failure
func (r *Registry) RegisterProvider(p Provider) error {
	widgets := p.Widgets()
	names := make([]string, 0, len(widgets))
	for name := range widgets {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := r.Register(p.Name(), name, widgets[name]); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the entry registered under name
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key(name)]
	return e, ok
}

// Names returns all registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(key(a), key(b))
	})
	return names
}

// Disabled reports whether provider lost a name collision
func (r *Registry) Disabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.disabled[provider]
	return ok
}
