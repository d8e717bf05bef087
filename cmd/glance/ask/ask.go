// Package askcmder provides the ask command for one-shot questions about
// whatever is on screen.
package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	"github.com/glancelabs/glance/pkg/assistant"
	"github.com/glancelabs/glance/pkg/capture"
	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/config"
	"github.com/glancelabs/glance/pkg/credentials"
	"github.com/glancelabs/glance/pkg/dotdir"
	"github.com/glancelabs/glance/pkg/logger"
	"github.com/glancelabs/glance/pkg/prompt"
	"github.com/glancelabs/glance/pkg/store"
	"github.com/glancelabs/glance/pkg/vision"
)

const askLongDesc string = `Ask a one-shot question about whatever is on screen.

Captures the screen, sends it to the configured vision model along with
your question, and renders the structured answer in the terminal. The
exchange is recorded as a single-turn session in the glance database.

The provider, model, and capture settings come from config.toml and can
be overridden per invocation with flags or GLANCE_* environment
variables.

Examples:
  glance ask "what does this error mean?"
  glance ask --no-screenshot "what is a goroutine?"
  glance ask -p anthropic -m claude-haiku-4-5-20251001 "summarize this page"`

const askShortDesc string = "Ask a one-shot question about the screen"

type askCommander struct {
	sqlitePath   string
	provider     string
	model        string
	baseURL      string
	historyLimit uint
	display      uint
	noScreenshot bool
	debug        bool

	glanceDir      string
	timeoutSeconds uint
	answerPreview  uint
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")
			cmder.glanceDir = glanceDir

			v, err := config.InitViper(glanceDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagSQLite,
				config.FlagProvider,
				config.FlagModel,
				config.FlagBaseURL,
				config.FlagHistoryLimit,
				config.FlagDisplay,
			})

			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.provider = v.GetString("model.provider")
			cmder.model = v.GetString("model.name")
			cmder.baseURL = v.GetString("model.base_url")
			cmder.timeoutSeconds = v.GetUint("model.timeout_seconds")
			cmder.historyLimit = v.GetUint("context.history_limit")
			cmder.answerPreview = v.GetUint("context.answer_preview")
			cmder.display = v.GetUint("capture.display")

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is empty")
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), question)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddUintFlag(cmd, config.Flags, config.FlagHistoryLimit, &cmder.historyLimit)
	config.AddUintFlag(cmd, config.Flags, config.FlagDisplay, &cmder.display)
	cmd.Flags().BoolVar(&cmder.noScreenshot, "no-screenshot", false, "ask without attaching a screenshot")

	return cmd
}

func (c *askCommander) run(ctx context.Context, out io.Writer, question string) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	target, err := dotdir.NewManager().Target(c.glanceDir)
	if err != nil {
		return fmt.Errorf("resolving glance dir: %w", err)
	}

	prompts, err := prompt.NewSource(target, log)
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}

	// The store is best effort for ask: a broken database means the turn is
	// not recorded and no stored key is available, not a failed question.
	st := c.openStore(log)
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	var credStore credentials.Store
	if st != nil {
		credStore = st
	}
	apiKey := credentials.NewResolver(credStore).Resolve(ctx, c.provider, "")

	asst, err := assistant.New(assistant.Config{
		Vision: vision.Config{
			Provider: c.provider,
			Model:    c.model,
			APIKey:   apiKey,
			BaseURL:  c.baseURL,
			Timeout:  time.Duration(c.timeoutSeconds) * time.Second,
		},
		Prompts:       prompts,
		HistoryLimit:  int(c.historyLimit),
		AnswerPreview: int(c.answerPreview),
		Logger:        log,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)

	var shot capture.Shot
	if !c.noScreenshot {
		err = cliui.Step(out, "Capturing screen", func() error {
			var capErr error
			shot, capErr = capture.NewDisplay(c.display).Capture(ctx)
			return capErr
		})
		if err != nil {
			if !errors.Is(err, capture.ErrUnavailable) {
				return err
			}
			// Headless terminals still get an answer, just without the image.
			fmt.Fprintf(out, "  %s\n",
				cliui.DimStyle.Render("Screen capture unavailable, asking without a screenshot."))
		}
	}

	var (
		reply assistant.StructuredReply
		usage vision.Usage
	)
	err = cliui.Step(out, fmt.Sprintf("Asking %s", c.provider), func() error {
		var askErr error
		reply, usage, askErr = asst.Ask(ctx, question, shot, nil)
		return askErr
	})
	if err != nil {
		return askFailure(err, c.provider)
	}

	c.persist(ctx, st, log, question, reply, usage)

	rendered, err := cliui.RenderMarkdown(reply.Markdown())
	if err != nil {
		rendered = reply.Markdown()
	}
	fmt.Fprintln(out, rendered)

	if len(reply.SuggestedQuestions) > 0 {
		fmt.Fprintf(out, "  %s\n", cliui.KeyStyle.Render("Suggested questions:"))
		for i, q := range reply.SuggestedQuestions {
			fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d. %s", i+1, q)))
		}
		fmt.Fprintln(out)
	}

	if usage.TotalTokens > 0 {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render(
			fmt.Sprintf("%d tokens (%d prompt, %d completion)",
				usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens)))
	}

	return nil
}

// openStore opens the glance database, logging rather than failing when it
// cannot be opened.
func (c *askCommander) openStore(log *zap.Logger) *store.Store {
	dbPath, err := dbpathcmder.Resolve(c.sqlitePath, c.glanceDir)
	if err != nil {
		log.Warn("resolving database path, turn will not be recorded", zap.Error(err))
		return nil
	}

	st, err := store.New(dbPath)
	if err != nil {
		log.Warn("opening store, turn will not be recorded",
			zap.String("path", dbPath), zap.Error(err))
		return nil
	}

	return st
}

// persist records the exchange as a single-turn session. Recording is best
// effort and never fails the ask itself.
func (c *askCommander) persist(ctx context.Context, st *store.Store, log *zap.Logger, question string, reply assistant.StructuredReply, usage vision.Usage) {
	if st == nil {
		return
	}

	sess, err := st.StartSession(ctx, "ask")
	if err != nil {
		log.Warn("starting session", zap.Error(err))
		return
	}

	if err := st.RecordTurn(ctx, sess.ID, assistant.NewTurn(question, reply)); err != nil {
		log.Warn("recording turn", zap.Error(err))
	}

	if usage.TotalTokens > 0 {
		if err := st.AddUsage(ctx, sess.ID, int64(usage.TotalTokens)); err != nil {
			log.Warn("recording usage", zap.Error(err))
		}
	}

	if err := st.EndSession(ctx, sess.ID); err != nil {
		log.Warn("ending session", zap.Error(err))
	}
}

// askFailure rewrites assistant sentinels into actionable messages.
func askFailure(err error, provider string) error {
	switch {
	case errors.Is(err, assistant.ErrCredentialMissing):
		return fmt.Errorf("no API key found for %s\n\nStore one with: glance auth %s", provider, provider)
	case errors.Is(err, assistant.ErrCredentialInvalid):
		return fmt.Errorf("%s rejected the API key; store a fresh one with: glance auth %s", provider, provider)
	case errors.Is(err, assistant.ErrQuotaExceeded):
		return fmt.Errorf("%s is rate limiting requests, wait a moment and retry", provider)
	default:
		return err
	}
}
