package permission

import "github.com/keshon/server-warden/internal/host"

// Apply writes rec onto the live filter chain of h. Only set fields are
// applied; a record with nothing set is a no-op. Applying the same record
// twice leaves the filter chain in an identical state: names and aliases are
// replaced wholesale and the permission tier is written onto the existing
// permission filter, which is created at most once.
func Apply(h *host.Handler, rec Record) {
	if rec.IsZero() {
		return
	}

	h.Mutate(func(filters []host.Filter) []host.Filter {
		var nameFilter host.NameBearing
		var permFilter *host.PermissionFilter
		for _, f := range filters {
			switch v := f.(type) {
			case host.NameBearing:
				if nameFilter == nil {
					nameFilter = v
				}
			case *host.PermissionFilter:
				if permFilter == nil {
					permFilter = v
				}
			}
		}

		if nameFilter != nil {
			if rec.Name != nil {
				nameFilter.SetCommandName(*rec.Name)
				nameFilter.Invalidate()
			}
			if rec.Aliases != nil {
				nameFilter.SetAliases(NormalizeAliases(*rec.Aliases))
				nameFilter.Invalidate()
			}
		}

		if rec.Permission != nil {
			if permFilter != nil {
				permFilter.Tier = *rec.Permission
			} else {
				filters = append(filters, &host.PermissionFilter{Tier: *rec.Permission})
			}
		}

		return filters
	})
}
