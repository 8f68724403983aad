// Package assistant talks to an OpenAI-compatible chat completions API.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Instructions is the system prompt of the to-do assistant.
const Instructions = `You are a helpful productivity assistant for a todo list application.

Your role is to:
1. Help users break down complex tasks into smaller, actionable steps
2. Suggest appropriate priority levels (low, medium, high) based on task descriptions
3. Recommend tags and organization strategies
4. Provide productivity tips and time management advice
5. Answer questions about their tasks and help them stay organized

Keep responses concise and actionable. When suggesting tasks, provide them in a
structured format that can be easily added to the list.

Available task priorities: low, medium, high. Tasks may carry tags, an optional
due date and a description. Recurring tasks use five-field cron expressions.`

// ErrEmptyReply is returned when the provider answers without content.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

// Turn is one message of the conversation sent to the provider.
type Turn struct {
	Role    string
	Content string
}

// Prompt is a complete completion request.
type Prompt struct {
	System string
	Turns  []Turn
}

// Config configures Client. URL is the API base ("https://api.openai.com/v1");
// a full ".../chat/completions" endpoint is accepted too.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

const defaultModel = openai.GPT4oMini

// Client sends prompts to an OpenAI-compatible chat completions API.
type Client struct {
	api   *openai.Client
	model string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if base := BaseURL(cfg.URL); base != "" {
		oc.BaseURL = base
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:   openai.NewClientWithConfig(oc),
		model: model,
	}
}

// BaseURL trims a trailing chat completions path so that both the base and
// the full endpoint form of the URL work.
func BaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return strings.TrimRight(base, "/")
}

// Complete sends p and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.Turns)+1)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	for _, t := range p.Turns {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("completion status %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", fmt.Errorf("completion status %d: %w", reqErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("completion request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
