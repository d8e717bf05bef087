// Package overlaycmder provides the overlay command, the interactive
// assistant surface glance is named for.
package overlaycmder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	"github.com/glancelabs/glance/pkg/assistant"
	"github.com/glancelabs/glance/pkg/capture"
	"github.com/glancelabs/glance/pkg/config"
	"github.com/glancelabs/glance/pkg/credentials"
	"github.com/glancelabs/glance/pkg/dotdir"
	"github.com/glancelabs/glance/pkg/logger"
	"github.com/glancelabs/glance/pkg/prompt"
	"github.com/glancelabs/glance/pkg/recorder"
	"github.com/glancelabs/glance/pkg/session"
	"github.com/glancelabs/glance/pkg/store"
	"github.com/glancelabs/glance/pkg/vision"
)

const overlayLongDesc string = `Run the interactive glance overlay.

Opens a floating assistant surface in the terminal. Press the toggle key
to show or hide it, type a question, and glance answers using a fresh
screenshot plus the conversation so far. Answers carry code blocks,
links, and numbered follow-up questions you can fire with a single key.

Every exchange is appended to one overlay session in the glance
database. Edits to prompts.md in the glance directory are picked up
live while the overlay runs.

Key bindings come from config.toml (overlay.toggle_key, overlay.ask_key)
and default to ctrl+g and ctrl+a. Set overlay.auto_hide_seconds to 0 to
keep answers on screen until dismissed.

Examples:
  glance overlay
  glance overlay --provider anthropic
  glance overlay --display 1`

const overlayShortDesc string = "Run the interactive overlay assistant"

type overlayCommander struct {
	sqlitePath   string
	provider     string
	model        string
	baseURL      string
	historyLimit uint
	display      uint
	debug        bool

	glanceDir       string
	timeoutSeconds  uint
	answerPreview   uint
	cacheTTLMS      uint
	toggleKey       string
	askKey          string
	autoHideSeconds uint
}

func NewOverlayCmd() *cobra.Command {
	cmder := &overlayCommander{}

	cmd := &cobra.Command{
		Use:   "overlay",
		Short: overlayShortDesc,
		Long:  overlayLongDesc,
		Args:  cobra.NoArgs,
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
			cmder.cacheTTLMS = v.GetUint("capture.cache_ttl_ms")
			cmder.toggleKey = v.GetString("overlay.toggle_key")
			cmder.askKey = v.GetString("overlay.ask_key")
			cmder.autoHideSeconds = v.GetUint("overlay.auto_hide_seconds")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddUintFlag(cmd, config.Flags, config.FlagHistoryLimit, &cmder.historyLimit)
	config.AddUintFlag(cmd, config.Flags, config.FlagDisplay, &cmder.display)

	return cmd
}

func (c *overlayCommander) run(ctx context.Context) error {
	target, err := dotdir.NewManager().Target(c.glanceDir)
	if err != nil {
		return fmt.Errorf("resolving glance dir: %w", err)
	}

	// The terminal belongs to the TUI while the overlay runs, so logs go
	// to a file in the glance directory instead of stderr.
	log := logger.NewFileLogger(c.debug, filepath.Join(target, "glance.log"))
	defer func() { _ = log.Sync() }()

	prompts, err := prompt.NewSource(target, log)
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		if err := prompts.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("prompt watcher stopped", zap.Error(err))
		}
	}()

	dbPath, err := dbpathcmder.Resolve(c.sqlitePath, c.glanceDir)
	if err != nil {
		return err
	}

	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	sess, err := st.StartSession(ctx, "overlay")
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	// ctx is usually canceled by the time the overlay exits.
	defer func() { _ = st.EndSession(context.Background(), sess.ID) }()

	apiKey := credentials.NewResolver(st).Resolve(ctx, c.provider, "")

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

	// Toggling the overlay right after asking should not grab a second
	// screenshot, the cache keeps captures inside the TTL identical.
	capturer := capture.Cached(capture.NewDisplay(c.display), time.Duration(c.cacheTTLMS)*time.Millisecond)

	runner := assistant.NewRunner(asst, capturer, log)
	defer runner.Close()

	pool, err := recorder.NewPool(&recorder.Config{Logger: log})
	if err != nil {
		return fmt.Errorf("starting recorder: %w", err)
	}
	defer pool.Close()

	model := newOverlayModel(overlayOpts{
		submitter: runner,
		history:   session.NewLog(),
		rec:       pool,
		st:        st,
		sessionID: sess.ID,
		provider:  c.provider,
		toggleKey: c.toggleKey,
		askKey:    c.askKey,
		autoHide:  time.Duration(c.autoHideSeconds) * time.Second,
		logger:    log,
	})

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running overlay: %w", err)
	}

	return nil
}
