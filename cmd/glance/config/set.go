package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file stored
in the .glance/ directory. Keys use dotted notation matching the TOML
section structure.

Valid keys:
  storage.sqlite_path,
  model.provider, model.name, model.base_url, model.timeout_seconds,
  context.history_limit, context.answer_preview,
  capture.cache_ttl_ms, capture.display,
  overlay.toggle_key, overlay.ask_key, overlay.auto_hide_seconds

Examples:
  glance config set model.provider anthropic
  glance config set model.name claude-haiku-4-5-20251001
  glance config set overlay.auto_hide_seconds 30`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")
			return runSet(args[0], args[1], glanceDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(key, value, glanceDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(glanceDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	err = cfger.SetConfigValue(key, value)
	if err != nil {
		return err
	}

	fmt.Printf("  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)
	return nil
}
