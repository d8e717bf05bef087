package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CodeBlock is a snippet the model pulled out of its answer so the UI can
// render it separately from the prose.
type CodeBlock struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Link is a reference the model suggests alongside its answer.
type Link struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// StructuredReply is the contract every answer honors: all four fields are
// always present and the slices are never nil, no matter what the model sent.
type StructuredReply struct {
	Response           string      `json:"response"`
	CodeBlocks         []CodeBlock `json:"code_blocks"`
	Links              []Link      `json:"links"`
	SuggestedQuestions []string    `json:"suggested_questions"`
}

// Turn is one completed question/answer exchange.
type Turn struct {
	Question  string          `json:"question"`
	Answer    StructuredReply `json:"answer"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTurn stamps a completed exchange with the current time.
func NewTurn(question string, answer StructuredReply) Turn {
	return Turn{Question: question, Answer: answer, Timestamp: time.Now()}
}

// PlainReply wraps free text in the structured shape with empty collections.
func PlainReply(text string) StructuredReply {
	return StructuredReply{
		Response:           text,
		CodeBlocks:         []CodeBlock{},
		Links:              []Link{},
		SuggestedQuestions: []string{},
	}
}

// ParseReply turns raw model output into a StructuredReply. It never fails:
// replies that are not the expected JSON degrade to a plain-text reply
// carrying the raw output.
//
// Recovery order: the whole trimmed body as JSON, then the span from the
// first "{" to the last "}" for replies wrapped in prose or markdown fences.
// A recovered object must contain the "response" key to count.
func ParseReply(raw string) StructuredReply {
	text := strings.TrimSpace(raw)

	if reply, ok := decodeReply(text); ok {
		return reply
	}

	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if reply, ok := decodeReply(text[start : end+1]); ok {
				return reply
			}
		}
	}

	return PlainReply(raw)
}

// decodeReply accepts text only when it is a JSON object carrying the
// "response" key.
func decodeReply(text string) (StructuredReply, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return StructuredReply{}, false
	}
	if _, ok := probe["response"]; !ok {
		return StructuredReply{}, false
	}

	var reply StructuredReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return StructuredReply{}, false
	}
	return reply.normalized(), true
}

func (r StructuredReply) normalized() StructuredReply {
	if r.CodeBlocks == nil {
		r.CodeBlocks = []CodeBlock{}
	}
	if r.Links == nil {
		r.Links = []Link{}
	}
	if r.SuggestedQuestions == nil {
		r.SuggestedQuestions = []string{}
	}
	return r
}

// Markdown flattens the reply into a single markdown document for rendering.
// Suggested questions are left out; the UI offers those separately.
func (r StructuredReply) Markdown() string {
	var b strings.Builder
	b.WriteString(r.Response)

	for _, cb := range r.CodeBlocks {
		b.WriteString("\n\n")
		if cb.Description != "" {
			b.WriteString(cb.Description)
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "```%s\n%s\n```", cb.Language, cb.Code)
	}

	if len(r.Links) > 0 {
		b.WriteString("\n")
		for _, l := range r.Links {
			title := l.Title
			if title == "" {
				title = l.URL
			}
			fmt.Fprintf(&b, "\n- [%s](%s)", title, l.URL)
			if l.Description != "" {
				b.WriteString(": ")
				b.WriteString(l.Description)
			}
		}
	}

	return b.String()
}
