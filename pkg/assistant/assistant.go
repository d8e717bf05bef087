// Package assistant turns a question plus a screenshot into a structured
// answer. It owns the prompt assembly, the conversation context window, the
// failure taxonomy, and the single-flight Runner the overlay drives.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/glancelabs/glance/pkg/capture"
	"github.com/glancelabs/glance/pkg/utils"
	"github.com/glancelabs/glance/pkg/vision"
)

const (
	defaultHistoryLimit  = 10
	defaultAnswerPreview = 200
)

// PromptSource supplies the prompt templates for each ask.
type PromptSource interface {
	SystemPrompt() string
	UserPrompt(question string) string
}

// Config assembles an Assistant.
type Config struct {
	Vision        vision.Config
	Prompts       PromptSource
	HistoryLimit  int // prior turns sent as context, 0 means default
	AnswerPreview int // runes of each prior answer kept, 0 means default
	Logger        *zap.Logger
}

// Assistant answers questions about the screen through one vision provider.
type Assistant struct {
	call          vision.CallFunc
	prompts       PromptSource
	provider      string
	keyRequired   bool
	keyPresent    bool
	historyLimit  int
	answerPreview int
	logger        *zap.Logger
}

// New builds an Assistant. The API key must already be resolved into
// cfg.Vision.APIKey; New does not consult the environment or the store.
func New(cfg Config) (*Assistant, error) {
	if cfg.Prompts == nil {
		return nil, errors.New("prompt source is required")
	}

	call, err := vision.NewCaller(cfg.Vision)
	if err != nil {
		return nil, err
	}

	provider := strings.ToLower(cfg.Vision.Provider)
	if provider == "" {
		provider = vision.ProviderOpenAI
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	answerPreview := cfg.AnswerPreview
	if answerPreview <= 0 {
		answerPreview = defaultAnswerPreview
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		call:          call,
		prompts:       cfg.Prompts,
		provider:      provider,
		keyRequired:   provider != vision.ProviderOllama,
		keyPresent:    cfg.Vision.APIKey != "",
		historyLimit:  historyLimit,
		answerPreview: answerPreview,
		logger:        logger,
	}, nil
}

// Ask sends the question, the screenshot, and a capped window of prior turns
// to the model and returns the parsed reply. Replies that are not the
// expected JSON degrade to plain text rather than failing. All errors wrap
// one of the package sentinels.
func (a *Assistant) Ask(ctx context.Context, question string, shot capture.Shot, prior []Turn) (StructuredReply, vision.Usage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return StructuredReply{}, vision.Usage{}, errors.New("question is empty")
	}

	// Refuse before any network traffic when no key can be sent.
	if a.keyRequired && !a.keyPresent {
		return StructuredReply{}, vision.Usage{}, fmt.Errorf("%w for provider %s", ErrCredentialMissing, a.provider)
	}

	req := vision.Request{
		System:   a.prompts.SystemPrompt(),
		Context:  a.contextMessages(prior),
		Prompt:   a.prompts.UserPrompt(question),
		ImagePNG: shot.PNG,
	}

	a.logger.Debug("asking model",
		zap.String("provider", a.provider),
		zap.Int("context_messages", len(req.Context)),
		zap.Bool("screenshot", !shot.Empty()))

	res, err := a.call(ctx, req)
	if err != nil {
		return StructuredReply{}, vision.Usage{}, a.classify(err)
	}

	reply := ParseReply(res.Text)
	if reply.Response == res.Text {
		a.logger.Debug("reply was not structured JSON, degraded to plain text",
			zap.Int("bytes", len(res.Text)))
	}

	return reply, res.Usage, nil
}

// contextMessages flattens the most recent prior turns into alternating
// user/assistant messages, oldest first. Answers are previews, not full
// replies, to keep request sizes bounded.
func (a *Assistant) contextMessages(prior []Turn) []vision.Message {
	if len(prior) > a.historyLimit {
		prior = prior[len(prior)-a.historyLimit:]
	}

	msgs := make([]vision.Message, 0, len(prior)*2)
	for _, t := range prior {
		msgs = append(msgs, vision.Message{Role: "user", Content: t.Question})
		msgs = append(msgs, vision.Message{
			Role:    "assistant",
			Content: utils.Truncate(t.Answer.Response, a.answerPreview),
		})
	}
	return msgs
}

// classify maps a call failure onto the package sentinels. Cancellation
// passes through untouched so a dismissed request never reads as a fault.
func (a *Assistant) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *vision.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrTransport, err)
}
