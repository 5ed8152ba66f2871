package host

import "sync"

// Handler is one registered command handler. The ID is stable while the
// handler stays registered, but a plugin reload destroys and recreates the
// handler object with fresh default filters.
//
// The filter chain is shared mutable state between the dispatcher, the
// permission layer and the reconciliation loop, so all access goes through
// View/Mutate under the handler's own lock.
type Handler struct {
	id          string
	description string

	mu      sync.Mutex
	filters []Filter
}

// NewHandler creates a handler with the given filter chain.
func NewHandler(id, description string, filters ...Filter) *Handler {
	return &Handler{id: id, description: description, filters: filters}
}

// ID returns the handler identifier.
func (h *Handler) ID() string { return h.id }

// Description returns the handler's free-text description.
func (h *Handler) Description() string { return h.description }

// View calls fn with the live filter chain under the handler lock. fn must not
// retain the slice or mutate the filters.
func (h *Handler) View(fn func(filters []Filter)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.filters)
}

// Mutate calls fn with the live filter chain under the handler lock and
// replaces the chain with fn's return value. fn may mutate filters in place
// and append new ones.
func (h *Handler) Mutate(fn func(filters []Filter) []Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filters = fn(h.filters)
}
