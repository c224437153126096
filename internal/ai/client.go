// Package ai talks to an OpenAI-compatible chat completions endpoint. It is
// used for the assistant chat mode and supports plain text and image prompts.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studgram/studgram-bot/internal/logger"
	"github.com/studgram/studgram-bot/internal/netutil"
)

const requestTimeout = 60 * time.Second

// Client calls the chat completions API of an OpenRouter-style provider.
type Client struct {
	baseURL string
	token   string
	model   string
	http    *http.Client
	log     *slog.Logger
}

// NewClient builds a Client for the given provider endpoint and model.
func NewClient(baseURL, token, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   model,
		http:    netutil.BuildHTTPClient(requestTimeout),
		log:     logger.Component("ai"),
	}
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Complete sends a plain text prompt and returns the assistant's answer.
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	return c.chat(ctx, []message{{Role: "user", Content: text}})
}

// CompleteWithImage sends a prompt with an attached image URL.
func (c *Client) CompleteWithImage(ctx context.Context, text, image string) (string, error) {
	parts := []contentPart{
		{Type: "text", Text: text},
		{Type: "image_url", ImageURL: &imageURL{URL: image}},
	}
	return c.chat(ctx, []message{{Role: "user", Content: parts}})
}

func (c *Client) chat(ctx context.Context, messages []message) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":    c.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("ai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logCall(ctx, start, 0, err)
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logCall(ctx, start, resp.StatusCode, err)
		return "", fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ai: status %d", resp.StatusCode)
		c.logCall(ctx, start, resp.StatusCode, err)
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logCall(ctx, start, resp.StatusCode, err)
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		err := fmt.Errorf("ai: empty choices")
		c.logCall(ctx, start, resp.StatusCode, err)
		return "", err
	}

	c.logCall(ctx, start, resp.StatusCode, nil)
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) logCall(ctx context.Context, start time.Time, status int, err error) {
	if c.log == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("model", c.model),
		slog.Duration("duration", logger.Took(start)),
		slog.String("status", logger.Status(err)),
	}
	if status > 0 {
		attrs = append(attrs, slog.Int("http_status", status))
	}
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	c.log.LogAttrs(ctx, level, "ai.completion", attrs...)
}
