// Package openai implements the oracle client for OpenAI compatible chat
// completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spigell/skillsynx/internal/logger"
	"github.com/spigell/skillsynx/internal/oracle"
	"go.uber.org/zap"
)

const (
	ProviderName = "openai"
	defaultModel = "gpt-4o-mini"
)

type completer interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type Options struct {
	Model string
	// BaseURL points the client at an OpenAI compatible endpoint.
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	Retry       oracle.RetryPolicy
	Logger      *zap.Logger
}

type Client struct {
	completions completer
	model       string
	temperature float64
	timeout     time.Duration
	retry       oracle.RetryPolicy
	logger      *zap.Logger
}

func New(apiKey string, opts Options) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are driven by oracle.Retry.
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(requestOpts...)
	return newClient(&client.Chat.Completions, opts), nil
}

func newClient(completions completer, opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	return &Client{
		completions: completions,
		model:       model,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		retry:       opts.Retry,
		logger:      logger.WithCommonFields(opts.Logger, ProviderName, model),
	}
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

// Complete sends the prompt as a single user message. The envelope is an
// array with one message per returned choice.
func (c *Client) Complete(ctx context.Context, prompt string) (oracle.Envelope, error) {
	if c == nil || c.completions == nil {
		return oracle.Envelope{}, errors.New("openai client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return oracle.Envelope{}, errors.New("prompt must not be empty")
	}

	return oracle.Retry(ctx, c.retry, c.logger, func(ctx context.Context) (oracle.Envelope, error) {
		return c.complete(ctx, prompt)
	})
}

func (c *Client) complete(ctx context.Context, prompt string) (oracle.Envelope, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	completion, err := c.completions.New(ctx, params)
	if err != nil {
		return oracle.Envelope{}, classify(fmt.Errorf("create chat completion: %w", err))
	}

	choices := make([]oracle.Envelope, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		choices = append(choices, oracle.Message(choice.Message.Content))
	}

	c.logger.Debug("openai completion received",
		zap.Int("choices", len(choices)),
		zap.Int64("total_tokens", completion.Usage.TotalTokens),
	)

	return oracle.Array(choices...), nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return oracle.NewCallError(ProviderName, 0, err)
	}

	callErr := oracle.NewCallError(ProviderName, apiErr.StatusCode, err)
	if apiErr.Response != nil {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(apiErr.Response.Header.Get("Retry-After"))); convErr == nil && seconds > 0 {
			callErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return callErr
}
