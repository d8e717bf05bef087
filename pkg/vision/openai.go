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

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	ResponseFormat *openAIRespFormat `json:"response_format,omitempty"`
}

// openAIMessage carries either a plain string or a slice of content parts.
// Plain strings cover system and history messages; the final user message
// uses parts so it can attach the screenshot.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenAICaller(client *http.Client, apiKey, model, baseURL string) CallFunc {
	return func(ctx context.Context, r Request) (Result, error) {
		messages := make([]openAIMessage, 0, len(r.Context)+2)
		if r.System != "" {
			messages = append(messages, openAIMessage{Role: "system", Content: r.System})
		}
		for _, m := range r.Context {
			messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
		}

		if len(r.ImagePNG) > 0 {
			parts := []openAIContentPart{
				{Type: "text", Text: r.Prompt},
				{Type: "image_url", ImageURL: &openAIImageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(r.ImagePNG),
				}},
			}
			messages = append(messages, openAIMessage{Role: "user", Content: parts})
		} else {
			messages = append(messages, openAIMessage{Role: "user", Content: r.Prompt})
		}

		reqBody := openAIRequest{
			Model:          model,
			Messages:       messages,
			ResponseFormat: &openAIRespFormat{Type: "json_object"},
		}

		data, err := json.Marshal(reqBody)
		if err != nil {
			return Result{}, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(data))
		if err != nil {
			return Result{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return Result{}, fmt.Errorf("openai request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return Result{}, &APIError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Body: string(body)}
		}

		var result openAIResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return Result{}, fmt.Errorf("unmarshal response: %w", err)
		}

		if result.Error != nil {
			return Result{}, fmt.Errorf("openai error: %s", result.Error.Message)
		}

		if len(result.Choices) == 0 {
			return Result{}, errors.New("openai returned no choices")
		}

		out := Result{Text: result.Choices[0].Message.Content}
		if result.Usage != nil {
			out.Usage = Usage{
				PromptTokens:     result.Usage.PromptTokens,
				CompletionTokens: result.Usage.CompletionTokens,
				TotalTokens:      result.Usage.TotalTokens,
			}
		}
		return out, nil
	}
}
