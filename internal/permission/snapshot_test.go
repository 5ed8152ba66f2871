package permission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keshon/server-warden/internal/host"
)

func TestSnapshotSkipsUnknownAndDeactivatedPlugins(t *testing.T) {
	reg := newTestRegistry()

	snap := Snapshot(reg)
	require.Contains(t, snap, "music")
	require.Contains(t, snap, "tasks")
	require.NotContains(t, snap, "ghost")
	require.NotContains(t, snap, "dormant")
}

func TestSnapshotActivatedPluginWithoutHandlersIsPresent(t *testing.T) {
	reg := host.NewRegistry()
	reg.RegisterPlugin("bare", true)
	reg.Register("bare", host.NewHandler("helper", "no command filter",
		&host.PermissionFilter{Tier: host.TierAdmin},
	))

	snap := Snapshot(reg)
	require.Contains(t, snap, "bare")
	require.Empty(t, snap["bare"])
}

func TestSnapshotClassifiesByFirstFilter(t *testing.T) {
	reg := host.NewRegistry()
	reg.RegisterPlugin("p", true)
	reg.Register("p", host.NewHandler("both", "",
		host.NewCommandGroupFilter("grp"),
		host.NewCommandFilter("cmd"),
	))

	snap := Snapshot(reg)
	require.Len(t, snap["p"], 1)
	d := snap["p"][0]
	require.Equal(t, KindCommandGroup, d.Kind)
	require.Equal(t, "grp", d.Name)
	require.True(t, d.IsGroup())
}

func TestSnapshotReadsTierAndAliases(t *testing.T) {
	reg := newTestRegistry()

	var play, stop Descriptor
	for _, d := range Snapshot(reg)["music"] {
		switch d.HandlerID {
		case "play":
			play = d
		case "stop":
			stop = d
		}
	}

	require.Equal(t, "play", play.Name)
	require.Equal(t, []string{"p"}, play.Aliases)
	require.True(t, play.HasTier)
	require.Equal(t, host.TierMember, play.Tier)

	require.Equal(t, "stop", stop.Name)
	require.False(t, stop.HasTier)
}

func TestSnapshotAliasesAreCopies(t *testing.T) {
	reg := newTestRegistry()

	d := Snapshot(reg)["music"][0]
	require.Equal(t, "play", d.HandlerID)
	d.Aliases[0] = "mutated"

	fresh := Snapshot(reg)["music"][0]
	require.Equal(t, []string{"p"}, fresh.Aliases)
}
