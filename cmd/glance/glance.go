// Package glancecmder
package glancecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/glancelabs/glance/cmd/glance/ask"
	authcmder "github.com/glancelabs/glance/cmd/glance/auth"
	configcmder "github.com/glancelabs/glance/cmd/glance/config"
	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	historycmder "github.com/glancelabs/glance/cmd/glance/history"
	initcmder "github.com/glancelabs/glance/cmd/glance/init"
	maintaincmder "github.com/glancelabs/glance/cmd/glance/maintain"
	overlaycmder "github.com/glancelabs/glance/cmd/glance/overlay"
	versioncmder "github.com/glancelabs/glance/cmd/version"
)

const glanceLongDesc string = `Glance is a screen-aware AI assistant for your desktop.

Ask a question, glance captures your screen, sends both to a vision
model, and answers in place.

Get started:
  glance init              Create the .glance/ directory and defaults
  glance auth openai       Store an API key
  glance ask "question"    One-shot question about your screen
  glance overlay           Floating assistant panel`

const glanceShortDesc string = "Glance - screen-aware AI assistant"

func NewGlanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glance",
		Short: glanceShortDesc,
		Long:  glanceLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("glance-dir", "", "Override path to the .glance/ directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(overlaycmder.NewOverlayCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(maintaincmder.NewMaintainCmd())
	cmd.AddCommand(dbpathcmder.NewDBPathCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
