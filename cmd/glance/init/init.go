// Package initcmder provides the init command for creating the .glance/
// directory with its default config, prompts, and database.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/config"
	"github.com/glancelabs/glance/pkg/dotdir"
	"github.com/glancelabs/glance/pkg/prompt"
	"github.com/glancelabs/glance/pkg/store"
)

const initLongDesc string = `Initialize the .glance/ directory.

Creates the directory with a default config.toml and prompts.md and
migrates the SQLite database. Safe to re-run: existing files are kept,
except that --preset overwrites config.toml.

A preset is a provider name (openai, anthropic, ollama) or an http(s)
URL serving a config.toml.

Examples:
  glance init
  glance init --preset anthropic
  glance init --preset https://example.com/glance-config.toml`

const initShortDesc string = "Initialize the .glance/ directory"

type initCommander struct {
	preset     string
	sqlitePath string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")
			return cmder.run(cmd.OutOrStdout(), glanceDir)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset (openai, anthropic, ollama) or config.toml URL")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *initCommander) run(out io.Writer, glanceDir string) error {
	ddm := dotdir.NewManager()
	target, err := ddm.Target(glanceDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Glance directory:"),
		cliui.DimStyle.Render(target),
	)

	if err := cliui.Step(out, "Writing config.toml", func() error {
		return c.writeConfig(target)
	}); err != nil {
		return err
	}

	if err := cliui.Step(out, "Writing prompts.md", func() error {
		_, err := prompt.NewSource(target, zap.NewNop())
		return err
	}); err != nil {
		return err
	}

	dbPath, err := dbpathcmder.Resolve(c.sqlitePath, target)
	if err != nil {
		return err
	}

	if err := cliui.Step(out, "Migrating database", func() error {
		st, err := store.New(dbPath)
		if err != nil {
			return err
		}
		return st.Close()
	}); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Initialized %s\n", cliui.SuccessMark, cliui.DimStyle.Render(target))
	fmt.Fprintf(out, "\n  Next: store an API key with %s\n\n",
		cliui.NameStyle.Render("glance auth <provider>"),
	)
	return nil
}

// writeConfig writes config.toml into the target directory. Without a preset
// an existing file is left untouched; with one, the preset wins.
func (c *initCommander) writeConfig(target string) error {
	cfger, err := config.NewConfiger(target)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.preset != "" {
		cfg, err := c.presetConfig()
		if err != nil {
			return err
		}
		return cfger.SaveConfig(cfg)
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil {
		return nil
	}

	return cfger.SaveConfig(config.NewDefaultConfig())
}

func (c *initCommander) presetConfig() (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}
	return config.PresetConfig(c.preset)
}

// fetchRemoteConfig downloads and parses a config.toml from an http(s) URL.
func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
