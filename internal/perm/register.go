package perm

import "github.com/keshon/server-warden/internal/host"

// RegisterSelf registers the perm command group in the host registry under its
// own plugin, so the permission layer's handlers can be renamed, aliased and
// re-tiered like any other plugin's. The group defaults to admin-only.
func RegisterSelf(reg *host.Registry) {
	reg.RegisterPlugin(PluginName, true)
	reg.Register(PluginName, host.NewHandler(
		"perm",
		"manage command permissions, names and aliases",
		host.NewCommandGroupFilter("perm"),
		&host.PermissionFilter{Tier: host.TierAdmin},
	))
}
