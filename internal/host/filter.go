// Package host models the command-dispatch framework this system reads and
// mutates: a process-wide registry of plugins and their command handlers, each
// handler carrying an ordered chain of polymorphic filters. The dispatcher
// consults these filters on every incoming message; the permission layer
// rewrites them in place.
package host

// Tier is the privilege level required to invoke a handler.
type Tier string

const (
	TierAdmin  Tier = "admin"
	TierMember Tier = "member"
)

// ParseTier validates a user-supplied tier string.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierAdmin, TierMember:
		return Tier(s), true
	}
	return "", false
}

// FilterKind discriminates the filter variants without type switches at every
// call site.
type FilterKind int

const (
	FilterCommand FilterKind = iota
	FilterCommandGroup
	FilterPermission
)

// Filter is one entry in a handler's filter chain.
type Filter interface {
	Kind() FilterKind
}

// NameBearing is implemented by filters that carry an invokable name and alias
// set. The dispatcher matches incoming messages against InvocationNames;
// mutating the name or aliases requires an Invalidate so the cached list is
// recomputed on next use.
type NameBearing interface {
	Filter
	CommandName() string
	SetCommandName(name string)
	AliasList() []string
	SetAliases(aliases []string)
	InvocationNames() []string
	Invalidate()
}

// CommandFilter matches a single command by name or alias.
type CommandFilter struct {
	Name    string
	Aliases []string

	compiled []string
}

// NewCommandFilter returns a command filter for name with optional aliases.
func NewCommandFilter(name string, aliases ...string) *CommandFilter {
	return &CommandFilter{Name: name, Aliases: aliases}
}

func (f *CommandFilter) Kind() FilterKind            { return FilterCommand }
func (f *CommandFilter) CommandName() string         { return f.Name }
func (f *CommandFilter) SetCommandName(name string)  { f.Name = name }
func (f *CommandFilter) AliasList() []string         { return f.Aliases }
func (f *CommandFilter) SetAliases(aliases []string) { f.Aliases = aliases }

// InvocationNames returns the full list of names this filter answers to,
// computing and caching it on first use.
func (f *CommandFilter) InvocationNames() []string {
	if f.compiled == nil {
		f.compiled = compileNames(f.Name, f.Aliases)
	}
	return f.compiled
}

// Invalidate drops the compiled name cache.
func (f *CommandFilter) Invalidate() { f.compiled = nil }

// CommandGroupFilter matches a command group by group name or alias.
type CommandGroupFilter struct {
	Name    string
	Aliases []string

	compiled []string
}

// NewCommandGroupFilter returns a group filter for name with optional aliases.
func NewCommandGroupFilter(name string, aliases ...string) *CommandGroupFilter {
	return &CommandGroupFilter{Name: name, Aliases: aliases}
}

func (f *CommandGroupFilter) Kind() FilterKind            { return FilterCommandGroup }
func (f *CommandGroupFilter) CommandName() string         { return f.Name }
func (f *CommandGroupFilter) SetCommandName(name string)  { f.Name = name }
func (f *CommandGroupFilter) AliasList() []string         { return f.Aliases }
func (f *CommandGroupFilter) SetAliases(aliases []string) { f.Aliases = aliases }

// InvocationNames returns the full list of names this group answers to,
// computing and caching it on first use.
func (f *CommandGroupFilter) InvocationNames() []string {
	if f.compiled == nil {
		f.compiled = compileNames(f.Name, f.Aliases)
	}
	return f.compiled
}

// Invalidate drops the compiled name cache.
func (f *CommandGroupFilter) Invalidate() { f.compiled = nil }

// PermissionFilter gates a handler behind a privilege tier.
type PermissionFilter struct {
	Tier Tier
}

func (f *PermissionFilter) Kind() FilterKind { return FilterPermission }

func compileNames(name string, aliases []string) []string {
	names := make([]string, 0, 1+len(aliases))
	names = append(names, name)
	names = append(names, aliases...)
	return names
}
