package host

import "sync"

// Plugin describes one loaded plugin. Deactivated plugins keep their handlers
// registered but the permission layer treats them as invisible.
type Plugin struct {
	Name      string
	Activated bool
}

// Registration pairs a handler with the name of the plugin that owns it.
type Registration struct {
	Plugin  string
	Handler *Handler
}

// Registry is the process-wide handler registry. Registration order is
// preserved; consumers that need a deterministic display order sort by name
// themselves.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	entries []Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// RegisterPlugin adds or replaces a plugin entry.
func (r *Registry) RegisterPlugin(name string, activated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[name] = Plugin{Name: name, Activated: activated}
}

// SetActivated flips a plugin's activation flag. Returns false for unknown
// plugins.
func (r *Registry) SetActivated(name string, activated bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plugins[name]
	if !ok {
		return false
	}
	p.Activated = activated
	r.plugins[name] = p
	return true
}

// Plugin returns the plugin entry for name.
func (r *Registry) Plugin(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Register adds a handler owned by the named plugin. The plugin does not have
// to be registered; handlers of unresolvable plugins are simply invisible to
// snapshot consumers.
func (r *Registry) Register(plugin string, h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Registration{Plugin: plugin, Handler: h})
}

// Remove drops the handler with the given plugin and ID. Returns true when a
// handler was removed.
func (r *Registry) Remove(plugin, handlerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.Plugin == plugin && e.Handler.ID() == handlerID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Replace swaps the registered handler with the same plugin and ID for h,
// modelling a plugin hot-reload that recreates handler objects with default
// filters. Returns false when no matching handler is registered.
func (r *Registry) Replace(plugin string, h *Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.Plugin == plugin && e.Handler.ID() == h.ID() {
			r.entries[i] = Registration{Plugin: plugin, Handler: h}
			return true
		}
	}
	return false
}

// Handlers returns a copy of the registration list in registration order.
func (r *Registry) Handlers() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, len(r.entries))
	copy(out, r.entries)
	return out
}
