// Package maintaincmder provides the maintain command for database upkeep:
// stats, cleanup, export, and reset.
package maintaincmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/store"
)

const maintainLongDesc string = `Maintain the glance database.

Runs one maintenance action against the session database:

  --stats         show session, turn, token, and size counts
  --cleanup-days  delete sessions older than the given number of days
  --export        write all sessions with their turns as JSON ("-" for stdout)
  --reset         delete all sessions and turns, keeping stored API keys
  --reset-all     delete everything, including stored API keys

With no action flag, shows stats. Destructive actions prompt for
confirmation unless --yes is passed.

Examples:
  glance maintain --stats
  glance maintain --cleanup-days 30 --yes
  glance maintain --export sessions.json
  glance maintain --export -
  glance maintain --reset --yes`

const maintainShortDesc string = "Database upkeep: stats, cleanup, export, reset"

type maintainCommander struct {
	sqlitePath  string
	stats       bool
	cleanupDays uint
	export      string
	reset       bool
	resetAll    bool
	yes         bool
}

func NewMaintainCmd() *cobra.Command {
	cmder := &maintainCommander{}

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: maintainShortDesc,
		Long:  maintainLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")

			if err := cmder.checkSingleAction(cmd); err != nil {
				return err
			}

			dbPath, err := dbpathcmder.Resolve(cmder.sqlitePath, glanceDir)
			if err != nil {
				return err
			}

			st, err := store.New(dbPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case cmd.Flags().Changed("cleanup-days"):
				return cmder.runCleanup(ctx, out, st)
			case cmder.export != "":
				return cmder.runExport(ctx, out, st)
			case cmder.reset:
				return cmder.runReset(ctx, out, st, false)
			case cmder.resetAll:
				return cmder.runReset(ctx, out, st, true)
			default:
				return cmder.runStats(ctx, out, st)
			}
		},
	}

	cmd.Flags().BoolVar(&cmder.stats, "stats", false, "show database statistics")
	cmd.Flags().UintVar(&cmder.cleanupDays, "cleanup-days", 0, "delete sessions older than this many days")
	cmd.Flags().StringVar(&cmder.export, "export", "", `export sessions as JSON to a file ("-" for stdout)`)
	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "delete all sessions and turns, keeping API keys")
	cmd.Flags().BoolVar(&cmder.resetAll, "reset-all", false, "delete all sessions, turns, and API keys")
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "skip confirmation prompts")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "path to the sqlite database")

	return cmd
}

// checkSingleAction rejects combinations of action flags so a typo never
// runs something destructive alongside something harmless.
func (c *maintainCommander) checkSingleAction(cmd *cobra.Command) error {
	selected := 0
	if c.stats {
		selected++
	}
	if cmd.Flags().Changed("cleanup-days") {
		selected++
	}
	if c.export != "" {
		selected++
	}
	if c.reset {
		selected++
	}
	if c.resetAll {
		selected++
	}

	if selected > 1 {
		return errors.New("choose one of --stats, --cleanup-days, --export, --reset, --reset-all")
	}
	return nil
}

func (c *maintainCommander) runStats(ctx context.Context, out io.Writer, st *store.Store) error {
	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Database"))
	fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Path:    "), cliui.DimStyle.Render(st.Path()))
	fmt.Fprintf(out, "  %s %d (%d active)\n", cliui.KeyStyle.Render("Sessions:"), stats.TotalSessions, stats.ActiveSessions)
	fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Turns:   "), stats.TotalTurns)
	fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Tokens:  "), stats.TotalTokens)
	if len(stats.Providers) > 0 {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Keys:    "), strings.Join(stats.Providers, ", "))
	}
	fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Size:    "), formatBytes(stats.DBSizeBytes))

	return nil
}

func (c *maintainCommander) runCleanup(ctx context.Context, out io.Writer, st *store.Store) error {
	cutoff := time.Now().AddDate(0, 0, -int(c.cleanupDays))

	ok, err := c.confirm(out, fmt.Sprintf("Delete sessions older than %d days?", c.cleanupDays))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("Aborted."))
		return nil
	}

	res, err := st.CleanupBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Removed %d sessions and %d turns.\n", cliui.SuccessMark, res.Sessions, res.Turns)
	return nil
}

func (c *maintainCommander) runExport(ctx context.Context, out io.Writer, st *store.Store) error {
	if c.export == "-" {
		return st.Export(ctx, out)
	}

	f, err := os.Create(c.export)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}

	if err := st.Export(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	fmt.Fprintf(out, "  %s Exported sessions to %s\n", cliui.SuccessMark, cliui.DimStyle.Render(c.export))
	return nil
}

func (c *maintainCommander) runReset(ctx context.Context, out io.Writer, st *store.Store, wipeCredentials bool) error {
	prompt := "Delete all sessions and turns?"
	if wipeCredentials {
		prompt = "Delete all sessions, turns, and stored API keys?"
	}

	ok, err := c.confirm(out, prompt)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("Aborted."))
		return nil
	}

	var res store.CleanupResult
	if wipeCredentials {
		res, err = st.ClearAll(ctx)
	} else {
		res, err = st.Reset(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Removed %d sessions and %d turns.\n", cliui.SuccessMark, res.Sessions, res.Turns)
	if wipeCredentials {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("Stored API keys were removed too."))
	}
	return nil
}

// confirm prompts on stdin before destructive actions. --yes skips it.
func (c *maintainCommander) confirm(out io.Writer, prompt string) (bool, error) {
	if c.yes {
		return true, nil
	}

	fmt.Fprintf(out, "  %s %s [y/N] ", cliui.WarnStyle.Render("!"), prompt)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
