// Package perm implements the `perm` grouped chat command: the plain-text
// administrative surface over the permission service. Every subcommand
// requires the admin tier; the group registers itself into the host registry
// so its own handlers are governed by the same override machinery.
package perm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/keshon/server-warden/internal/config"
	"github.com/keshon/server-warden/internal/permission"
	"github.com/keshon/server-warden/internal/webui"
)

// PluginName is the plugin this command group registers under.
const PluginName = "permission_manager"

const disabledNotice = "Command-line management is disabled; use the web UI instead."

// Command is the `perm` command group.
type Command struct {
	svc *permission.Service
	web *webui.Server
	cfg *config.Config
}

// New returns the perm command bound to a service and web server.
func New(svc *permission.Service, web *webui.Server, cfg *config.Config) *Command {
	return &Command{svc: svc, web: web, cfg: cfg}
}

// Execute runs one `perm` invocation and returns the plain-text reply. args
// excludes the leading "perm". Missing arguments answer with a usage line,
// never an error.
func (c *Command) Execute(ctx context.Context, args []string) string {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	// The webui subcommand has its own enable flag; everything else is gated
	// by the command-line switch.
	if sub == "webui" {
		if !c.cfg.WebUI.Enabled {
			return "The web UI is disabled; enable it in the configuration first."
		}
		return c.webUI(ctx, args)
	}
	if !c.cfg.CommandEnabled {
		return disabledNotice
	}

	switch sub {
	case "list":
		return c.list()
	case "plugin":
		return c.pluginCommands(args)
	case "set":
		return c.set(args)
	case "name":
		return c.name(args)
	case "alias":
		return c.alias(args)
	case "help", "":
		return helpText
	default:
		return fmt.Sprintf("Unknown subcommand %q. Use `perm help` for usage.", sub)
	}
}

func (c *Command) list() string {
	plugins := c.svc.ListPlugins()
	if len(plugins) == 0 {
		return "No activated plugins found."
	}

	var b strings.Builder
	b.WriteString("Activated plugins:\n\n")
	for _, p := range plugins {
		fmt.Fprintf(&b, "- %s\n  commands: %d, groups: %d\n", p.Name, p.CommandCount, p.GroupCount)
	}
	b.WriteString("\nUse `perm plugin <name>` for a plugin's command list.")
	return b.String()
}

func (c *Command) pluginCommands(args []string) string {
	if len(args) < 1 {
		return "Usage: perm plugin <name>\nLists a plugin's commands and their permission state."
	}
	plugin := args[0]

	commands, err := c.svc.PluginCommands(plugin)
	if err != nil {
		return userMessage(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Commands of plugin %s:\n", plugin)
	if len(commands.Commands) > 0 {
		b.WriteString("\nCommands:\n")
		for _, cmd := range commands.Commands {
			b.WriteString(formatCommand(cmd))
		}
	}
	if len(commands.Groups) > 0 {
		b.WriteString("\nCommand groups:\n")
		for _, cmd := range commands.Groups {
			b.WriteString(formatCommand(cmd))
		}
	}
	if len(commands.Commands) == 0 && len(commands.Groups) == 0 {
		b.WriteString("\n(no commands)")
	}
	return b.String()
}

func formatCommand(cmd permission.CommandInfo) string {
	aliasPart := ""
	if len(cmd.Aliases) > 0 {
		aliasPart = fmt.Sprintf(" (aliases: %s)", strings.Join(cmd.Aliases, ", "))
	}
	return fmt.Sprintf("  %s%s - %s\n", cmd.Name, aliasPart, cmd.Permission)
}

func (c *Command) set(args []string) string {
	if len(args) < 1 {
		return "Usage:\nperm set plugin <name> <admin|member>\nperm set command <plugin> <command> <admin|member>"
	}
	switch args[0] {
	case "plugin":
		return c.setPlugin(args[1:])
	case "command":
		return c.setCommand(args[1:])
	default:
		return fmt.Sprintf("Unknown target %q. Use `perm set plugin` or `perm set command`.", args[0])
	}
}

func (c *Command) setPlugin(args []string) string {
	if len(args) < 2 {
		return "Usage: perm set plugin <name> <admin|member>\nBatch-sets the permission of every command in a plugin."
	}
	plugin, tier := args[0], args[1]

	if c.cfg.BatchOperationConfirm && c.cfg.LogPermissionChanges {
		// The confirm flag never gated execution in practice; it is carried
		// for configuration compatibility only.
		log.Printf("[INFO] perm: batch permission change on %s proceeding without confirmation", plugin)
	}

	result, err := c.svc.SetPluginPermission(plugin, tier)
	if err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("Set %d/%d commands of plugin %s to %s.", result.Applied, result.Total, plugin, tier)
}

func (c *Command) setCommand(args []string) string {
	if len(args) < 3 {
		return "Usage: perm set command <plugin> <command> <admin|member>"
	}
	plugin, command, tier := args[0], args[1], args[2]

	d, err := c.svc.ResolveCommand(plugin, command)
	if err != nil {
		return userMessage(err)
	}
	if err := c.svc.SetCommandPermission(plugin, d.HandlerID, tier); err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("Set command %s of plugin %s to %s.", command, plugin, tier)
}

func (c *Command) name(args []string) string {
	if len(args) < 1 || args[0] != "set" {
		return "Usage: perm name set <plugin> <command> <newname>"
	}
	args = args[1:]
	if len(args) < 3 {
		return "Usage: perm name set <plugin> <command> <newname>"
	}
	plugin, command, newName := args[0], args[1], args[2]

	d, err := c.svc.ResolveCommand(plugin, command)
	if err != nil {
		return userMessage(err)
	}
	if err := c.svc.SetCommandName(plugin, d.HandlerID, newName); err != nil {
		return userMessage(err)
	}
	kind := "command"
	if d.IsGroup() {
		kind = "command group"
	}
	return fmt.Sprintf("Renamed %s %s of plugin %s to %s.", kind, command, plugin, newName)
}

func (c *Command) alias(args []string) string {
	usage := "Usage:\nperm alias add <plugin> <command> <alias>\nperm alias remove <plugin> <command> <alias>\nperm alias list <plugin> <command>"
	if len(args) < 1 {
		return usage
	}
	action := args[0]
	args = args[1:]

	switch action {
	case "add", "remove":
		if len(args) < 3 {
			return usage
		}
		return c.editAlias(action, args[0], args[1], args[2])
	case "list":
		if len(args) < 2 {
			return usage
		}
		return c.listAliases(args[0], args[1])
	default:
		return usage
	}
}

func (c *Command) editAlias(action, plugin, command, alias string) string {
	d, err := c.svc.ResolveCommand(plugin, command)
	if err != nil {
		return userMessage(err)
	}
	current, err := c.svc.EffectiveAliases(d)
	if err != nil {
		return userMessage(err)
	}

	idx := -1
	for i, a := range current {
		if a == alias {
			idx = i
			break
		}
	}

	switch action {
	case "add":
		if idx >= 0 {
			return fmt.Sprintf("Alias %s already exists.", alias)
		}
		current = append(current, alias)
	case "remove":
		if idx < 0 {
			return fmt.Sprintf("Alias %s does not exist.", alias)
		}
		current = append(current[:idx], current[idx+1:]...)
	}

	if err := c.svc.SetCommandAliases(plugin, d.HandlerID, current); err != nil {
		return userMessage(err)
	}
	if action == "add" {
		return fmt.Sprintf("Added alias %s to command %s of plugin %s.", alias, command, plugin)
	}
	return fmt.Sprintf("Removed alias %s from command %s of plugin %s.", alias, command, plugin)
}

func (c *Command) listAliases(plugin, command string) string {
	d, err := c.svc.ResolveCommand(plugin, command)
	if err != nil {
		return userMessage(err)
	}
	aliases, err := c.svc.EffectiveAliases(d)
	if err != nil {
		return userMessage(err)
	}
	if len(aliases) == 0 {
		return fmt.Sprintf("Command %s has no aliases.", command)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Aliases of command %s:\n", command)
	for _, a := range aliases {
		fmt.Fprintf(&b, "  - %s\n", a)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Command) webUI(ctx context.Context, args []string) string {
	action := ""
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "start":
		if c.web.Running() {
			return "The web UI is already running."
		}
		if err := c.web.Start(ctx); err != nil {
			if errors.Is(err, webui.ErrPortInUse) {
				return fmt.Sprintf("Address %s is already in use; change the port and try again.", c.web.Addr())
			}
			return fmt.Sprintf("Failed to start the web UI: %v", err)
		}
		return fmt.Sprintf("Web UI started.\nOpen http://%s:%d/ and log in with the configured secret key.",
			c.web.DisplayHost(), c.cfg.WebUI.Port)
	case "stop":
		if err := c.web.Stop(ctx); err != nil {
			if errors.Is(err, webui.ErrNotRunning) {
				return "The web UI is not running."
			}
			return fmt.Sprintf("Failed to stop the web UI: %v", err)
		}
		return "Web UI stopped."
	case "status":
		status := "stopped"
		if c.web.Running() {
			status = "running"
		}
		return fmt.Sprintf("Web UI status: %s\nAddress: http://%s:%d/", status, c.web.DisplayHost(), c.cfg.WebUI.Port)
	default:
		return "Usage:\nperm webui start\nperm webui stop\nperm webui status"
	}
}

// userMessage turns service errors into chat replies. Recoverable errors read
// as-is; anything else is reported as an internal failure.
func userMessage(err error) string {
	switch {
	case errors.Is(err, permission.ErrPluginNotFound),
		errors.Is(err, permission.ErrCommandNotFound),
		errors.Is(err, permission.ErrInvalidPermission),
		errors.Is(err, permission.ErrEmptyAlias),
		errors.Is(err, permission.ErrEmptyName):
		return capitalize(err.Error())
	default:
		return fmt.Sprintf("Internal error: %v", err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var helpText = strings.Join([]string{
	"Permission manager commands:",
	"",
	"perm list                                       - list activated plugins",
	"perm plugin <name>                              - list a plugin's commands",
	"perm set plugin <name> <admin|member>           - batch-set a plugin's permissions",
	"perm set command <plugin> <cmd> <admin|member>  - set one command's permission",
	"perm name set <plugin> <cmd> <newname>          - rename a command or group",
	"perm alias add <plugin> <cmd> <alias>           - add a command alias",
	"perm alias remove <plugin> <cmd> <alias>        - remove a command alias",
	"perm alias list <plugin> <cmd>                  - list a command's aliases",
	"perm webui start|stop|status                    - manage the admin web UI",
	"",
	"Tiers: admin (administrators only), member (everyone).",
	"Changes take effect immediately and survive restarts and plugin reloads.",
}, "\n")
