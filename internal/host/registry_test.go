package host

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryPluginLifecycle(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Plugin("music")
	require.False(t, ok)

	reg.RegisterPlugin("music", true)
	p, ok := reg.Plugin("music")
	require.True(t, ok)
	require.True(t, p.Activated)

	require.True(t, reg.SetActivated("music", false))
	p, _ = reg.Plugin("music")
	require.False(t, p.Activated)

	require.False(t, reg.SetActivated("ghost", true))
}

func TestRegistryHandlersPreserveOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", NewHandler("one", ""))
	reg.Register("b", NewHandler("two", ""))
	reg.Register("a", NewHandler("three", ""))

	entries := reg.Handlers()
	require.Len(t, entries, 3)
	require.Equal(t, "one", entries[0].Handler.ID())
	require.Equal(t, "two", entries[1].Handler.ID())
	require.Equal(t, "three", entries[2].Handler.ID())
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", NewHandler("one", ""))
	reg.Register("a", NewHandler("two", ""))

	require.True(t, reg.Remove("a", "one"))
	require.False(t, reg.Remove("a", "one"))

	entries := reg.Handlers()
	require.Len(t, entries, 1)
	require.Equal(t, "two", entries[0].Handler.ID())
}

func TestRegistryReplaceSwapsHandlerObject(t *testing.T) {
	reg := NewRegistry()
	old := NewHandler("play", "", NewCommandFilter("renamed"))
	reg.Register("music", old)

	fresh := NewHandler("play", "", NewCommandFilter("play", "p"))
	require.True(t, reg.Replace("music", fresh))

	entries := reg.Handlers()
	require.Len(t, entries, 1)
	require.Same(t, fresh, entries[0].Handler)

	require.False(t, reg.Replace("music", NewHandler("unknown", "")))
	require.False(t, reg.Replace("other", NewHandler("play", "")))
}

func TestHandlersReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", NewHandler("one", ""))

	entries := reg.Handlers()
	entries[0] = Registration{Plugin: "mutated", Handler: NewHandler("x", "")}

	require.Equal(t, "a", reg.Handlers()[0].Plugin)
}

func TestHandlerMutateReplacesChain(t *testing.T) {
	h := NewHandler("play", "plays music", NewCommandFilter("play"))
	require.Equal(t, "play", h.ID())
	require.Equal(t, "plays music", h.Description())

	h.Mutate(func(filters []Filter) []Filter {
		return append(filters, &PermissionFilter{Tier: TierAdmin})
	})

	var kinds []FilterKind
	h.View(func(filters []Filter) {
		for _, f := range filters {
			kinds = append(kinds, f.Kind())
		}
	})
	require.Equal(t, []FilterKind{FilterCommand, FilterPermission}, kinds)
}
