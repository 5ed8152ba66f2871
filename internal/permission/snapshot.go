package permission

import "github.com/keshon/server-warden/internal/host"

// CommandKind distinguishes plain commands from command groups.
type CommandKind string

const (
	KindCommand      CommandKind = "command"
	KindCommandGroup CommandKind = "command_group"
)

// Descriptor is a point-in-time view of one registered handler. The value
// fields are copies; Handler() reaches the live object for mutation, which
// must always be re-resolved from a fresh snapshot rather than cached.
type Descriptor struct {
	Plugin      string
	HandlerID   string
	Kind        CommandKind
	Name        string
	Aliases     []string
	Tier        host.Tier
	HasTier     bool
	Description string

	handler *host.Handler
}

// Handler returns the live handler this descriptor was taken from.
func (d Descriptor) Handler() *host.Handler { return d.handler }

// IsGroup reports whether the handler is a command group.
func (d Descriptor) IsGroup() bool { return d.Kind == KindCommandGroup }

// Snapshot enumerates the registry and returns the command-bearing handlers of
// every activated plugin, in registration order. Handlers whose plugin is
// unknown or deactivated are skipped, as are handlers without a command or
// group filter. A handler carrying both classifies by the first match in its
// filter chain.
func Snapshot(reg *host.Registry) map[string][]Descriptor {
	out := make(map[string][]Descriptor)

	for _, entry := range reg.Handlers() {
		plugin, ok := reg.Plugin(entry.Plugin)
		if !ok || !plugin.Activated {
			continue
		}

		if _, ok := out[plugin.Name]; !ok {
			out[plugin.Name] = []Descriptor{}
		}

		d, ok := describe(plugin.Name, entry.Handler)
		if !ok {
			continue
		}
		out[plugin.Name] = append(out[plugin.Name], d)
	}

	return out
}

func describe(plugin string, h *host.Handler) (Descriptor, bool) {
	d := Descriptor{
		Plugin:      plugin,
		HandlerID:   h.ID(),
		Description: h.Description(),
		handler:     h,
	}
	found := false

	h.View(func(filters []host.Filter) {
		for _, f := range filters {
			if found {
				break
			}
			switch v := f.(type) {
			case *host.CommandFilter:
				d.Kind = KindCommand
				d.Name = v.Name
				d.Aliases = append([]string(nil), v.Aliases...)
				found = true
			case *host.CommandGroupFilter:
				d.Kind = KindCommandGroup
				d.Name = v.Name
				d.Aliases = append([]string(nil), v.Aliases...)
				found = true
			}
		}
		for _, f := range filters {
			if pf, ok := f.(*host.PermissionFilter); ok {
				d.Tier = pf.Tier
				d.HasTier = true
				break
			}
		}
	})

	return d, found
}
