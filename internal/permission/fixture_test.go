package permission

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/server-warden/datastore"
	"github.com/keshon/server-warden/internal/host"
)

// newTestDatastore opens a datastore in a temp dir with autosave effectively
// disabled; tests drive persistence through Store mutations.
func newTestDatastore(t *testing.T, path string) *datastore.DataStore {
	t.Helper()
	ds, err := datastore.NewWithConfig(&datastore.Config{
		FilePath:         path,
		AutoSaveInterval: time.Hour,
		BackupCount:      0,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newTestDatastore(t, filepath.Join(t.TempDir(), "overrides.json")))
}

// newTestRegistry builds a registry with a mix of plugins:
//
//	music (activated): play (cmd, alias p, member), stop (cmd, no tier),
//	                   queue (group, alias q)
//	tasks (activated): task (group, admin)
//	dormant (deactivated): hidden
//	plus a handler owned by a never-registered plugin
func newTestRegistry() *host.Registry {
	reg := host.NewRegistry()
	reg.RegisterPlugin("music", true)
	reg.RegisterPlugin("tasks", true)
	reg.RegisterPlugin("dormant", false)

	reg.Register("music", host.NewHandler("play", "play a track",
		host.NewCommandFilter("play", "p"),
		&host.PermissionFilter{Tier: host.TierMember},
	))
	reg.Register("music", host.NewHandler("stop", "stop playback",
		host.NewCommandFilter("stop"),
	))
	reg.Register("music", host.NewHandler("queue", "queue controls",
		host.NewCommandGroupFilter("queue", "q"),
		&host.PermissionFilter{Tier: host.TierMember},
	))
	reg.Register("tasks", host.NewHandler("task", "task management",
		host.NewCommandGroupFilter("task"),
		&host.PermissionFilter{Tier: host.TierAdmin},
	))
	reg.Register("dormant", host.NewHandler("hidden", "",
		host.NewCommandFilter("hidden"),
	))
	reg.Register("ghost", host.NewHandler("orphan", "",
		host.NewCommandFilter("orphan"),
	))
	return reg
}

func newTestService(t *testing.T) (*Service, *host.Registry, *Store) {
	t.Helper()
	reg := newTestRegistry()
	store := newTestStore(t)
	return NewService(reg, store, host.TierMember, false), reg, store
}

// liveState reads a handler's first name-bearing and permission filters.
func liveState(h *host.Handler) (name string, aliases []string, tier host.Tier, hasTier bool, permCount int) {
	named := false
	h.View(func(filters []host.Filter) {
		for _, f := range filters {
			switch v := f.(type) {
			case host.NameBearing:
				if !named {
					named = true
					name = v.CommandName()
					aliases = append([]string(nil), v.AliasList()...)
				}
			case *host.PermissionFilter:
				if !hasTier {
					tier = v.Tier
					hasTier = true
				}
				permCount++
			}
		}
	})
	return
}

func findHandler(t *testing.T, reg *host.Registry, plugin, id string) *host.Handler {
	t.Helper()
	for _, e := range reg.Handlers() {
		if e.Plugin == plugin && e.Handler.ID() == id {
			return e.Handler
		}
	}
	t.Fatalf("handler %s:%s not registered", plugin, id)
	return nil
}
