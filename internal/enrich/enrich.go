// Package enrich rewrites a transcript through the chat-completion endpoint.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"echoflow/internal/chat"
	"echoflow/internal/remote"

	"github.com/charmbracelet/log"
)

// Model is the chat model requested on every completion.
const Model = "llama-3.3-70b-versatile"

const op = "enrichment"

// requestBody is the chat-completion request. Streaming is never requested.
type requestBody struct {
	Messages []chat.Message `json:"messages"`
	Model    string         `json:"model"`
}

type responseBody struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
}

// Client performs chat completions.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.endpoint = base + "/chat/completions" }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an enrichment client. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		endpoint:   remote.BaseURL + "/chat/completions",
		logger:     log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BuildMessages returns the request message list: systemPrompt first, then
// every non-system turn of conv in order.
func BuildMessages(conv []chat.Message, systemPrompt string) []chat.Message {
	out := make([]chat.Message, 0, len(conv)+1)
	out = append(out, chat.Message{Role: chat.RoleSystem, Content: systemPrompt})
	for _, m := range conv {
		if m.Role == chat.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Complete sends the conversation and returns the first choice's content, or
// "" when the response carries no choices.
func (c *Client) Complete(ctx context.Context, conv []chat.Message, credential, systemPrompt string) (string, error) {
	payload, err := json.Marshal(requestBody{
		Messages: BuildMessages(conv, systemPrompt),
		Model:    Model,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("User-Agent", remote.UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &remote.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &remote.TransportError{Op: op, Err: err}
	}
	c.logger.Debug("completion finished", "status", resp.StatusCode, "duration", time.Since(start))

	if !remote.Success(resp.StatusCode) {
		return "", &remote.RequestError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}

	var out responseBody
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode %s response: %w", op, err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}
