// Package gemini implements the oracle client on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/skillsynx/internal/logger"
	"github.com/spigell/skillsynx/internal/oracle"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options tune a Generator. Zero values fall back to defaults.
type Options struct {
	Model   string
	Timeout time.Duration
	Retry   oracle.RetryPolicy
	Logger  *zap.Logger
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	retry   oracle.RetryPolicy
	logger  *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts), nil
}

func newGenerator(models contentGenerator, opts Options) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	return &Generator{
		models:  models,
		model:   model,
		timeout: opts.Timeout,
		retry:   opts.Retry,
		logger:  logger.WithCommonFields(opts.Logger, ProviderName, model),
	}
}

func (g *Generator) Name() string {
	return ProviderName
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Complete sends the prompt to Gemini and returns the joined text of all
// candidate parts as a raw envelope.
func (g *Generator) Complete(ctx context.Context, prompt string) (oracle.Envelope, error) {
	if g == nil || g.models == nil {
		return oracle.Envelope{}, errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return oracle.Envelope{}, errors.New("prompt must not be empty")
	}

	return oracle.Retry(ctx, g.retry, g.logger, func(ctx context.Context) (oracle.Envelope, error) {
		return g.generate(ctx, prompt)
	})
}

func (g *Generator) generate(ctx context.Context, prompt string) (oracle.Envelope, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return oracle.Envelope{}, classify(fmt.Errorf("generate content: %w", err))
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return oracle.Raw(builder.String()), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		callErr := oracle.NewCallError(ProviderName, apiErr.Code, err)
		callErr.RetryAfter = retryDelay(apiErr)
		return callErr
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		callErr := oracle.NewCallError(ProviderName, apiErrPtr.Code, err)
		callErr.RetryAfter = retryDelay(*apiErrPtr)
		return callErr
	}

	return oracle.NewCallError(ProviderName, 0, err)
}

// retryDelay reads google.rpc.RetryInfo from the error details, falling back
// to a hint in the message text.
func retryDelay(apiErr genai.APIError) time.Duration {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return oracle.ParseRetryAfter(apiErr.Message)
}
