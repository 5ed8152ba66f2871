package permission

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/keshon/server-warden/internal/host"
)

// PluginSummary is one row of the plugin listing.
type PluginSummary struct {
	Name          string `json:"name"`
	CommandCount  int    `json:"command_count"`
	GroupCount    int    `json:"group_count"`
	TotalCommands int    `json:"total_commands"`
}

// CommandInfo is one resolved command entry: override values take precedence
// over the live defaults, and the live name is kept for display.
type CommandInfo struct {
	Name         string      `json:"name"`
	OriginalName string      `json:"original_name"`
	Type         CommandKind `json:"type"`
	Handler      string      `json:"handler"`
	Permission   host.Tier   `json:"permission"`
	Aliases      []string    `json:"aliases"`
	IsGroup      bool        `json:"is_group"`
	Description  string      `json:"desc"`
}

// PluginCommands is the resolved command set of one plugin.
type PluginCommands struct {
	Commands []CommandInfo `json:"commands"`
	Groups   []CommandInfo `json:"groups"`
}

// BatchResult reports a batch permission change.
type BatchResult struct {
	Applied int `json:"applied_count"`
	Total   int `json:"total_count"`
}

// Service is the single facade over snapshot, store and applier, consumed by
// both the chat command surface and the admin web API. Every mutation is
// validated up front, persisted to the store first (durability commit) and
// then applied to the live filters (visible-effect commit); a crash between
// the two is healed by the next reconciliation tick.
type Service struct {
	reg         *host.Registry
	store       *Store
	defaultTier host.Tier
	logChanges  bool
}

// NewService returns a service over reg and store. defaultTier is reported
// for handlers with neither an override nor a live permission filter.
func NewService(reg *host.Registry, store *Store, defaultTier host.Tier, logChanges bool) *Service {
	if defaultTier == "" {
		defaultTier = host.TierMember
	}
	return &Service{reg: reg, store: store, defaultTier: defaultTier, logChanges: logChanges}
}

// ListPlugins returns every activated plugin with its command counts, sorted
// by name.
func (s *Service) ListPlugins() []PluginSummary {
	snapshot := Snapshot(s.reg)

	plugins := make([]PluginSummary, 0, len(snapshot))
	for name, descriptors := range snapshot {
		summary := PluginSummary{Name: name, TotalCommands: len(descriptors)}
		for _, d := range descriptors {
			if d.IsGroup() {
				summary.GroupCount++
			} else {
				summary.CommandCount++
			}
		}
		plugins = append(plugins, summary)
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins
}

// PluginCommands returns the resolved command set of one plugin, commands and
// groups each sorted by name. Unknown plugins yield ErrPluginNotFound.
func (s *Service) PluginCommands(plugin string) (*PluginCommands, error) {
	descriptors, ok := Snapshot(s.reg)[plugin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, plugin)
	}

	overrides, err := s.store.Overrides()
	if err != nil {
		return nil, err
	}
	perPlugin := overrides[plugin]

	out := &PluginCommands{Commands: []CommandInfo{}, Groups: []CommandInfo{}}
	for _, d := range descriptors {
		info := s.resolve(d, perPlugin[d.HandlerID])
		if info.IsGroup {
			out.Groups = append(out.Groups, info)
		} else {
			out.Commands = append(out.Commands, info)
		}
	}

	sort.Slice(out.Commands, func(i, j int) bool { return out.Commands[i].Name < out.Commands[j].Name })
	sort.Slice(out.Groups, func(i, j int) bool { return out.Groups[i].Name < out.Groups[j].Name })
	return out, nil
}

// resolve merges one override record over a descriptor's live defaults.
func (s *Service) resolve(d Descriptor, rec Record) CommandInfo {
	info := CommandInfo{
		Name:         d.Name,
		OriginalName: d.Name,
		Type:         d.Kind,
		Handler:      d.HandlerID,
		Permission:   s.defaultTier,
		Aliases:      d.Aliases,
		IsGroup:      d.IsGroup(),
		Description:  d.Description,
	}
	if d.HasTier {
		info.Permission = d.Tier
	}
	if rec.Permission != nil {
		info.Permission = *rec.Permission
	}
	if rec.Name != nil {
		info.Name = *rec.Name
	}
	if rec.Aliases != nil {
		info.Aliases = *rec.Aliases
	}
	if info.Aliases == nil {
		info.Aliases = []string{}
	}
	return info
}

// ResolveCommand finds a plugin's handler by its current display name against
// the live snapshot. Renaming a command therefore makes the old name stop
// resolving immediately.
func (s *Service) ResolveCommand(plugin, name string) (Descriptor, error) {
	descriptors, ok := Snapshot(s.reg)[plugin]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrPluginNotFound, plugin)
	}
	for _, d := range descriptors {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
}

// EffectiveAliases returns the alias list the alias add/remove commands edit:
// the stored override when one exists, the live alias set otherwise.
func (s *Service) EffectiveAliases(d Descriptor) ([]string, error) {
	rec, err := s.store.Record(d.Plugin, d.HandlerID)
	if err != nil {
		return nil, err
	}
	if rec.Aliases != nil {
		return append([]string(nil), *rec.Aliases...), nil
	}
	return append([]string(nil), d.Aliases...), nil
}

// SetPluginPermission batch-applies one tier to every handler of a plugin.
// Unknown plugins fail with ErrPluginNotFound and zero counts; otherwise every
// handler is patched and applied.
func (s *Service) SetPluginPermission(plugin, permission string) (BatchResult, error) {
	tier, ok := host.ParseTier(permission)
	if !ok {
		return BatchResult{}, fmt.Errorf("%w: %q", ErrInvalidPermission, permission)
	}

	descriptors, found := Snapshot(s.reg)[plugin]
	if !found {
		return BatchResult{}, fmt.Errorf("%w: %s", ErrPluginNotFound, plugin)
	}

	result := BatchResult{Total: len(descriptors)}
	for _, d := range descriptors {
		if err := s.store.SetPermission(plugin, d.HandlerID, tier); err != nil {
			return result, err
		}
		rec := Record{Permission: &tier}
		Apply(d.Handler(), rec)
		result.Applied++
	}

	if s.logChanges {
		log.Printf("[INFO] permission: plugin=%s set %d/%d handlers to %s", plugin, result.Applied, result.Total, tier)
	}
	return result, nil
}

// SetCommandPermission sets the tier of one handler, store first, live second.
func (s *Service) SetCommandPermission(plugin, handlerID, permission string) error {
	tier, ok := host.ParseTier(permission)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPermission, permission)
	}

	d, err := s.findHandler(plugin, handlerID)
	if err != nil {
		return err
	}
	if err := s.store.SetPermission(plugin, handlerID, tier); err != nil {
		return err
	}
	Apply(d.Handler(), Record{Permission: &tier})

	if s.logChanges {
		log.Printf("[INFO] permission: plugin=%s handler=%s tier=%s", plugin, handlerID, tier)
	}
	return nil
}

// SetCommandName renames one command or group, store first, live second.
func (s *Service) SetCommandName(plugin, handlerID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	d, err := s.findHandler(plugin, handlerID)
	if err != nil {
		return err
	}
	if err := s.store.SetName(plugin, handlerID, name); err != nil {
		return err
	}
	Apply(d.Handler(), Record{Name: &name})

	if s.logChanges {
		log.Printf("[INFO] permission: plugin=%s handler=%s renamed to %q", plugin, handlerID, name)
	}
	return nil
}

// SetCommandAliases replaces one handler's alias set wholesale, store first,
// live second. An empty list is a valid override meaning "no aliases".
func (s *Service) SetCommandAliases(plugin, handlerID string, aliases []string) error {
	for _, a := range aliases {
		if strings.TrimSpace(a) == "" {
			return ErrEmptyAlias
		}
	}
	normalized := NormalizeAliases(aliases)

	d, err := s.findHandler(plugin, handlerID)
	if err != nil {
		return err
	}
	if err := s.store.SetAliases(plugin, handlerID, normalized); err != nil {
		return err
	}
	Apply(d.Handler(), Record{Aliases: &normalized})

	if s.logChanges {
		log.Printf("[INFO] permission: plugin=%s handler=%s aliases=%v", plugin, handlerID, normalized)
	}
	return nil
}

func (s *Service) findHandler(plugin, handlerID string) (Descriptor, error) {
	descriptors, ok := Snapshot(s.reg)[plugin]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrPluginNotFound, plugin)
	}
	for _, d := range descriptors {
		if d.HandlerID == handlerID {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrCommandNotFound, handlerID)
}
