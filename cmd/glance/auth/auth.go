// Package authcmder provides the auth command for storing provider API keys.
package authcmder

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
	"golang.org/x/term"

	dbpathcmder "github.com/glancelabs/glance/cmd/glance/dbpath"
	"github.com/glancelabs/glance/pkg/cliui"
	"github.com/glancelabs/glance/pkg/config"
	"github.com/glancelabs/glance/pkg/credentials"
	"github.com/glancelabs/glance/pkg/store"
	"github.com/glancelabs/glance/pkg/vision"
)

const authLongDesc string = `Store API keys for vision model providers.

Keys are stored in the glance SQLite database and picked up
automatically by glance ask and glance overlay. Provider environment
variables (OPENAI_API_KEY, ANTHROPIC_API_KEY) remain a fallback when no
key is stored. Ollama runs locally and needs no key.

Supported providers: openai, anthropic

Examples:
  glance auth openai              Prompt for an OpenAI API key
  glance auth --list              List stored keys (masked)
  glance auth --remove openai     Remove the stored OpenAI key
  glance auth --verify            Verify the configured provider's key
  glance auth --verify anthropic  Verify a specific provider's key
  echo $KEY | glance auth openai  Pipe an API key from stdin`

const authShortDesc string = "Store API keys for vision model providers"

// verifyTimeout bounds the live call made by --verify. A key check should
// answer fast or not at all.
const verifyTimeout = 30 * time.Second

type authCommander struct {
	sqlitePath string
	list       bool
	remove     string
	verify     bool
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")

			provider := ""
			if len(args) == 1 {
				provider = args[0]
			}

			switch {
			case cmder.list:
				return cmder.runList(cmd.Context(), glanceDir, cmd.OutOrStdout())
			case cmder.remove != "":
				return cmder.runRemove(cmd.Context(), cmder.remove, glanceDir, cmd.OutOrStdout())
			case cmder.verify:
				return cmder.runVerify(cmd.Context(), provider, glanceDir, cmd.OutOrStdout())
			default:
				if provider == "" {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return cmder.runAuth(cmd.Context(), provider, glanceDir, cmd.OutOrStdout())
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored keys (masked)")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove the stored key for a provider")
	cmd.Flags().BoolVar(&cmder.verify, "verify", false, "Verify a key with a minimal live call")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *authCommander) openStore(glanceDir string) (*store.Store, error) {
	dbPath, err := dbpathcmder.Resolve(c.sqlitePath, glanceDir)
	if err != nil {
		return nil, err
	}

	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func (c *authCommander) runAuth(ctx context.Context, provider, glanceDir string, out io.Writer) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if provider == credentials.ProviderOllama {
		return errors.New("ollama does not use an API key")
	}

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	st, err := c.openStore(glanceDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.SetCredential(ctx, provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s key %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(env fallback: "+credentials.EnvVarForProvider(provider)+")"),
	)
	return nil
}

func (c *authCommander) runList(ctx context.Context, glanceDir string, out io.Writer) error {
	st, err := c.openStore(glanceDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	providers, err := st.CredentialProviders(ctx)
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(out, "\n  %s No stored keys.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'glance auth <provider>' to store one.\n")
		fmt.Fprintf(out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored keys"))
	for _, p := range providers {
		key, err := st.GetCredential(ctx, p)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(p),
			cliui.DimStyle.Render(credentials.Mask(key)),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func (c *authCommander) runRemove(ctx context.Context, provider, glanceDir string, out io.Writer) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	st, err := c.openStore(glanceDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.DeleteCredential(ctx, provider); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s key.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// runVerify makes a minimal live call with the resolved key and reports
// whether the provider accepted it.
func (c *authCommander) runVerify(ctx context.Context, provider, glanceDir string, out io.Writer) error {
	cfger, err := config.NewConfiger(glanceDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = strings.ToLower(cfg.Model.Provider)
	}

	if !vision.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(vision.SupportedProviders(), ", "))
	}

	st, err := c.openStore(glanceDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	key := credentials.NewResolver(st).Resolve(ctx, provider, "")
	if key == "" && credentials.KeyRequired(provider) {
		fmt.Fprintf(out, "\n  %s No key found for %s.\n", cliui.FailMark, cliui.NameStyle.Render(provider))
		fmt.Fprintf(out, "  Store one with 'glance auth %s'.\n\n", provider)
		return fmt.Errorf("no key found for provider %s", provider)
	}

	// The configured model and base URL only apply when verifying the
	// configured provider; otherwise the caller defaults are correct.
	visionCfg := vision.Config{
		Provider: provider,
		APIKey:   key,
		Timeout:  verifyTimeout,
	}
	if provider == strings.ToLower(cfg.Model.Provider) {
		visionCfg.Model = cfg.Model.Name
		visionCfg.BaseURL = cfg.Model.BaseURL
	}

	caller, err := vision.NewCaller(visionCfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	callErr := cliui.Step(out, fmt.Sprintf("Verifying %s key", provider), func() error {
		_, err := caller(ctx, vision.Request{Prompt: `Reply with exactly this JSON: {"ok": true}`})
		return err
	})
	if callErr != nil {
		return verifyFailure(out, provider, callErr)
	}

	if key != "" {
		fmt.Fprintf(out, "\n  %s %s key %s is valid.\n\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(provider),
			cliui.DimStyle.Render(credentials.Mask(key)),
		)
	} else {
		fmt.Fprintf(out, "\n  %s %s is reachable.\n\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(provider),
		)
	}
	return nil
}

func verifyFailure(out io.Writer, provider string, err error) error {
	var apiErr *vision.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			fmt.Fprintf(out, "\n  %s %s rejected the key (invalid or expired).\n\n",
				cliui.FailMark, cliui.NameStyle.Render(provider))
			return fmt.Errorf("key rejected by %s: %w", provider, err)
		case 429:
			fmt.Fprintf(out, "\n  %s %s accepted the key but rate-limited the call.\n\n",
				cliui.WarnStyle.Render("!"), cliui.NameStyle.Render(provider))
			return nil
		}
	}

	fmt.Fprintf(out, "\n  %s Could not reach %s: %v\n\n",
		cliui.FailMark, cliui.NameStyle.Render(provider), err)
	return fmt.Errorf("verifying %s key: %w", provider, err)
}

// readAPIKey reads an API key from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readAPIKey(provider string) (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	envVar := credentials.EnvVarForProvider(provider)
	fmt.Printf("Enter API key for %s (%s): ", provider, envVar)

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
