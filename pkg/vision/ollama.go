package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count,omitempty"`
	EvalCount       int  `json:"eval_count,omitempty"`
}

func newOllamaCaller(client *http.Client, model, baseURL string) CallFunc {
	return func(ctx context.Context, r Request) (Result, error) {
		messages := make([]ollamaMessage, 0, len(r.Context)+2)
		if r.System != "" {
			messages = append(messages, ollamaMessage{Role: "system", Content: r.System})
		}
		for _, m := range r.Context {
			messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
		}

		user := ollamaMessage{Role: "user", Content: r.Prompt}
		if len(r.ImagePNG) > 0 {
			user.Images = []string{base64.StdEncoding.EncodeToString(r.ImagePNG)}
		}
		messages = append(messages, user)

		reqBody := ollamaRequest{
			Model:    model,
			Messages: messages,
			Stream:   false,
			Format:   "json",
		}

		data, err := json.Marshal(reqBody)
		if err != nil {
			return Result{}, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/chat", bytes.NewReader(data))
		if err != nil {
			return Result{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return Result{}, fmt.Errorf("ollama request (is ollama running?): %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return Result{}, &APIError{Provider: ProviderOllama, StatusCode: resp.StatusCode, Body: string(body)}
		}

		var result ollamaResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return Result{}, fmt.Errorf("unmarshal response: %w", err)
		}

		out := Result{Text: result.Message.Content}
		if result.PromptEvalCount > 0 || result.EvalCount > 0 {
			out.Usage = Usage{
				PromptTokens:     result.PromptEvalCount,
				CompletionTokens: result.EvalCount,
				TotalTokens:      result.PromptEvalCount + result.EvalCount,
			}
		}
		return out, nil
	}
}
