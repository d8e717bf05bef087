// Package historycmder provides the history command for browsing recorded
// sessions and replaying their turns.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/store"
)

const historyLongDesc string = `Browse recorded glance sessions.

Without arguments, lists recent sessions newest first. Pass a session ID
(the full ID or the short prefix shown in the listing) to replay that
session's questions and answers.

Examples:
  glance history
  glance history --limit 50
  glance history 3f2a81c9`

const historyShortDesc string = "Browse recorded sessions"

const shortIDLen = 8

type historyCommander struct {
	sqlitePath string
	limit      uint
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")

			dbPath, err := dbpathcmder.Resolve(cmder.sqlitePath, glanceDir)
			if err != nil {
				return err
			}

			st, err := store.New(dbPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if len(args) == 1 {
				return cmder.runShow(cmd.Context(), cmd.OutOrStdout(), st, args[0])
			}
			return cmder.runList(cmd.Context(), cmd.OutOrStdout(), st)
		},
	}

	cmd.Flags().UintVar(&cmder.limit, "limit", 20, "maximum number of sessions to list")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "path to the sqlite database")

	return cmd
}

func (c *historyCommander) runList(ctx context.Context, out io.Writer, st *store.Store) error {
	sessions, err := st.Sessions(ctx, int(c.limit))
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintf(out, "\n  %s\n\n",
			cliui.DimStyle.Render(`No sessions recorded yet. Try: glance ask "what is on my screen?"`))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Sessions"))

	for _, sess := range sessions {
		marker := " "
		if sess.Active() {
			marker = cliui.SuccessMark
		}

		fmt.Fprintf(out, "  %s %s  %s  %s %s\n",
			marker,
			cliui.NameStyle.Render(shortID(sess.ID)),
			sess.StartedAt.Format("2006-01-02 15:04"),
			sess.Name,
			cliui.DimStyle.Render(fmt.Sprintf("(%d turns, %d tokens)", sess.TurnCount, sess.TotalTokens)),
		)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Replay one with: glance history <session-id>"))
	return nil
}

func (c *historyCommander) runShow(ctx context.Context, out io.Writer, st *store.Store, id string) error {
	sess, err := findSession(ctx, st, id)
	if err != nil {
		return err
	}

	turns, err := st.TurnsForSession(ctx, sess.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s %s\n",
		cliui.KeyStyle.Render("Session:"),
		cliui.NameStyle.Render(shortID(sess.ID)),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, started %s)", sess.Name, sess.StartedAt.Format("2006-01-02 15:04"))),
	)
	if sess.TotalTokens > 0 {
		fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Tokens: "), sess.TotalTokens)
	}
	fmt.Fprintln(out)

	if len(turns) == 0 {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No turns recorded in this session."))
		return nil
	}

	for i, turn := range turns {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.KeyStyle.Render(turn.Question),
		)
		fmt.Fprintf(out, "     %s\n", cliui.DimStyle.Render(turn.Timestamp.Format("2006-01-02 15:04:05")))

		rendered, err := cliui.RenderMarkdown(turn.Answer.Markdown())
		if err != nil {
			rendered = turn.Answer.Markdown()
		}
		fmt.Fprintln(out, rendered)
	}

	return nil
}

// findSession resolves a full session ID first, then falls back to matching
// the short prefixes shown in the listing.
func findSession(ctx context.Context, st *store.Store, id string) (store.Session, error) {
	sess, err := st.Session(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Session{}, err
	}

	sessions, err := st.Sessions(ctx, 0)
	if err != nil {
		return store.Session{}, err
	}

	var matches []store.Session
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, id) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return store.Session{}, fmt.Errorf("no session found matching %q", id)
	default:
		return store.Session{}, fmt.Errorf("session id %q is ambiguous (%d matches)", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
