// Package studgram implements the client for the StudGram university backend.
// Every call resolves to either a success payload or a typed *Error whose Kind
// classifies the failure; errors never carry partial payloads.
package studgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studgram/studgram-bot/internal/logger"
	"github.com/studgram/studgram-bot/internal/netutil"
)

// emptySuccess is the payload reported for 204 and empty/non-JSON 2xx bodies.
var emptySuccess = json.RawMessage("{}")

// Client performs raw HTTP calls against the StudGram API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

// NewClient constructs a Client for the given base URL and API token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    netutil.BuildHTTPClient(timeout),
		log:     logger.Component("studgram"),
	}
}

// Request performs one API call. A nil body sends no payload; a map body has
// nil values dropped before encoding, mirroring the backend's PATCH contract.
func (c *Client) Request(ctx context.Context, method, path string, body map[string]any) (json.RawMessage, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	rid := uuid.NewString()

	var reader io.Reader
	if body != nil {
		filtered := make(map[string]any, len(body))
		for k, v := range body {
			if v == nil {
				continue
			}
			filtered[k] = v
		}
		encoded, err := json.Marshal(filtered)
		if err != nil {
			return nil, &Error{Kind: KindUnknown, Method: method, Path: path, cause: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Method: method, Path: path, cause: err}
	}
	req.Header.Set("API-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", rid)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindConnection
		if isTimeout(err) {
			kind = KindTimeout
		}
		c.logCall(ctx, method, path, rid, 0, start, kind)
		return nil, &Error{Kind: kind, Method: method, Path: path, cause: err}
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logCall(ctx, method, path, rid, resp.StatusCode, start, KindConnection)
		return nil, &Error{Kind: KindConnection, Method: method, Path: path, cause: readErr}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		c.logCall(ctx, method, path, rid, resp.StatusCode, start, 0)
		return successPayload(resp, payload), nil
	}

	kind := classifyStatus(resp.StatusCode)
	c.logCall(ctx, method, path, rid, resp.StatusCode, start, kind)
	return nil, &Error{Kind: kind, Status: resp.StatusCode, Method: method, Path: path}
}

func successPayload(resp *http.Response, body []byte) json.RawMessage {
	if resp.StatusCode == http.StatusNoContent {
		return emptySuccess
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "application/json") {
		return emptySuccess
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return emptySuccess
	}
	return trimmed
}

func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}

func (c *Client) logCall(ctx context.Context, method, path, rid string, status int, start time.Time, kind Kind) {
	if c.log == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("rid", rid),
		slog.Duration("duration", logger.Took(start)),
	}
	if status > 0 {
		attrs = append(attrs, slog.Int("status", status))
	}
	if kind == 0 {
		c.log.LogAttrs(ctx, slog.LevelDebug, "api.request", append(attrs, slog.String("result", "ok"))...)
		return
	}
	level := slog.LevelError
	if kind == KindNotFound {
		level = slog.LevelWarn
	}
	c.log.LogAttrs(ctx, level, "api.request", append(attrs, slog.String("result", kind.String()))...)
}

// decode unmarshals a success payload into out, tolerating the empty-object
// success that stands in for bodyless responses.
func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		raw = emptySuccess
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("studgram: decode response: %w", err)
	}
	return nil
}
