package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Anthropic caps output unless told otherwise, and max_tokens is required
// by the messages API.
const anthropicMaxTokens = 1024

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage carries either a plain string or a slice of content
// blocks. History messages stay plain; the final user message uses blocks
// so it can attach the screenshot.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newAnthropicCaller(client *http.Client, apiKey, model, baseURL string) CallFunc {
	return func(ctx context.Context, r Request) (Result, error) {
		messages := make([]anthropicMessage, 0, len(r.Context)+1)
		for _, m := range r.Context {
			messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
		}

		if len(r.ImagePNG) > 0 {
			blocks := []anthropicContentBlock{
				{Type: "image", Source: &anthropicImageSource{
					Type:      "base64",
					MediaType: "image/png",
					Data:      base64.StdEncoding.EncodeToString(r.ImagePNG),
				}},
				{Type: "text", Text: r.Prompt},
			}
			messages = append(messages, anthropicMessage{Role: "user", Content: blocks})
		} else {
			messages = append(messages, anthropicMessage{Role: "user", Content: r.Prompt})
		}

		reqBody := anthropicRequest{
			Model:     model,
			MaxTokens: anthropicMaxTokens,
			System:    r.System,
			Messages:  messages,
		}

		data, err := json.Marshal(reqBody)
		if err != nil {
			return Result{}, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(data))
		if err != nil {
			return Result{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := client.Do(req)
		if err != nil {
			return Result{}, fmt.Errorf("anthropic request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return Result{}, &APIError{Provider: ProviderAnthropic, StatusCode: resp.StatusCode, Body: string(body)}
		}

		var result anthropicResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return Result{}, fmt.Errorf("unmarshal response: %w", err)
		}

		if result.Error != nil {
			return Result{}, fmt.Errorf("anthropic error: %s", result.Error.Message)
		}

		text := ""
		for _, block := range result.Content {
			if block.Type == "text" {
				text = block.Text
				break
			}
		}
		if text == "" {
			return Result{}, errors.New("anthropic returned no text content")
		}

		out := Result{Text: text}
		if result.Usage != nil {
			out.Usage = Usage{
				PromptTokens:     result.Usage.InputTokens,
				CompletionTokens: result.Usage.OutputTokens,
				TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
			}
		}
		return out, nil
	}
}
