// Package configcmder provides the config command for managing persistent
// glance configuration stored in the .glance/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent glance configuration.

Configuration is stored as config.toml in the .glance/ directory and
provides default values for command flags. CLI flags and GLANCE_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path,
  model.provider, model.name, model.base_url, model.timeout_seconds,
  context.history_limit, context.answer_preview,
  capture.cache_ttl_ms, capture.display,
  overlay.toggle_key, overlay.ask_key, overlay.auto_hide_seconds

Use subcommands to get, set, or list configuration values:
  glance config set <key> <value>    Set a configuration value
  glance config get <key>            Get a configuration value
  glance config list                 List all configuration values

Examples:
  glance config set model.provider anthropic
  glance config set overlay.toggle_key ctrl+g
  glance config get model.name
  glance config list`

const configShortDesc string = "Manage persistent glance configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
