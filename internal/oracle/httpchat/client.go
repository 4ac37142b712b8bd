// Package httpchat implements the oracle client for a generic JSON chat
// endpoint. The response body is classified into an envelope as is, so any
// of the shapes understood by oracle.FromValue can be returned.
package httpchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/skillsynx/internal/logger"
	"github.com/spigell/skillsynx/internal/oracle"
	"github.com/spigell/skillsynx/internal/utils"
	"go.uber.org/zap"
)

const (
	ProviderName = "httpchat"

	maxBodySize      = 4 << 20
	maxErrorLogBytes = 300
)

type Options struct {
	URL     string
	Model   string
	Token   string
	Timeout time.Duration
	Retry   oracle.RetryPolicy
	Logger  *zap.Logger
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

type Client struct {
	url     string
	model   string
	token   string
	timeout time.Duration
	retry   oracle.RetryPolicy
	http    *http.Client
	logger  *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Prompt   string        `json:"prompt"`
	Messages []chatMessage `json:"messages"`
}

func New(opts Options) (*Client, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("httpchat url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("httpchat url %q must be http or https", url)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := strings.TrimSpace(opts.Model)

	return &Client{
		url:     url,
		model:   model,
		token:   strings.TrimSpace(opts.Token),
		timeout: opts.Timeout,
		retry:   opts.Retry,
		http:    httpClient,
		logger:  logger.WithCommonFields(opts.Logger, ProviderName, model),
	}, nil
}

func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) Complete(ctx context.Context, prompt string) (oracle.Envelope, error) {
	if c == nil || c.http == nil {
		return oracle.Envelope{}, errors.New("httpchat client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return oracle.Envelope{}, errors.New("prompt must not be empty")
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Prompt:   prompt,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return oracle.Envelope{}, fmt.Errorf("marshal chat request: %w", err)
	}

	return oracle.Retry(ctx, c.retry, c.logger, func(ctx context.Context) (oracle.Envelope, error) {
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) (oracle.Envelope, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return oracle.Envelope{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return oracle.Envelope{}, oracle.NewCallError(ProviderName, 0, fmt.Errorf("send chat request: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return oracle.Envelope{}, oracle.NewCallError(ProviderName, 0, fmt.Errorf("read chat response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callErr := oracle.NewCallError(ProviderName, resp.StatusCode,
			fmt.Errorf("chat endpoint returned %s: %s", resp.Status, utils.TruncateForLog(string(payload), maxErrorLogBytes)))
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); convErr == nil && seconds > 0 {
			callErr.RetryAfter = time.Duration(seconds) * time.Second
		}
		return oracle.Envelope{}, callErr
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		// Plain text bodies are passed through untouched.
		return oracle.Raw(string(payload)), nil
	}

	return oracle.FromValue(decoded), nil
}

func (c *Client) bearer(ctx context.Context) string {
	if token, ok := oracle.SessionToken(ctx); ok {
		return token
	}
	return c.token
}
