package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spigell/skillsynx/internal/extract"
	"github.com/spigell/skillsynx/internal/notify"
	"github.com/spigell/skillsynx/internal/oracle"
	"github.com/spigell/skillsynx/internal/oracle/gemini"
	"github.com/spigell/skillsynx/internal/oracle/httpchat"
	"github.com/spigell/skillsynx/internal/oracle/openai"
	"github.com/spigell/skillsynx/internal/pipeline"
	"github.com/spigell/skillsynx/internal/secrets"
	"github.com/spigell/skillsynx/internal/store"
	"github.com/spigell/skillsynx/internal/store/fsstore"
	"github.com/spigell/skillsynx/internal/store/s3store"
	"go.uber.org/zap"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerHTTP   = "http"

	backendFS   = "fs"
	backendS3   = "s3"
	backendNone = "none"
)

func newOracle(ctx context.Context, cfg *OracleConfig, logger *zap.Logger) (oracle.Client, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", providerGemini:
		gc := cfg.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: gc.APIKey,
			File:  gc.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set oracle.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}
		generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
			Model:   gc.Model,
			Timeout: cfg.Timeout,
			Retry:   cfg.RetryPolicy,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return generator, nil

	case providerOpenAI:
		oc := cfg.OpenAI
		if oc == nil {
			oc = &OpenAIConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: oc.APIKey,
			File:  oc.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set oracle.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}
		client, err := openai.New(apiKey, openai.Options{
			Model:       oc.Model,
			BaseURL:     oc.BaseURL,
			Temperature: oc.Temperature,
			Timeout:     cfg.Timeout,
			Retry:       cfg.RetryPolicy,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	case providerHTTP:
		hc := cfg.HTTP
		if hc == nil {
			return nil, fmt.Errorf("oracle.http section is required for the %s provider", providerHTTP)
		}
		// The endpoint may rely on per-session tokens only.
		token := ""
		if hc.Token != "" || hc.TokenFile != "" {
			var err error
			token, err = secrets.Load(secrets.Source{
				Name:  "oracle token",
				Value: hc.Token,
				File:  hc.TokenFile,
			})
			if err != nil {
				return nil, err
			}
		}
		client, err := httpchat.New(httpchat.Options{
			URL:     hc.URL,
			Model:   hc.Model,
			Token:   token,
			Timeout: cfg.Timeout,
			Retry:   cfg.RetryPolicy,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}

// newStore returns a nil gateway when persistence is disabled.
func newStore(ctx context.Context, cfg *StoreConfig, logger *zap.Logger) (store.Gateway, error) {
	var blobs store.Blobs

	switch strings.TrimSpace(strings.ToLower(cfg.Backend)) {
	case backendNone:
		return nil, nil
	case "", backendFS:
		root := cfg.Root
		if root == "" {
			root = "./data"
		}
		blobs = fsstore.New(afero.NewOsFs(), root)
		logger.Debug("using filesystem store", zap.String("root", root))
	case backendS3:
		b, err := s3store.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		blobs = b
		logger.Debug("using s3 store",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("prefix", cfg.S3.Prefix),
		)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}

	return store.New(blobs, store.Options{Logger: logger}), nil
}

// newPublisher returns nil when no broker is configured.
func newPublisher(cfg *notify.Config, logger *zap.Logger) (*notify.Publisher, error) {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}
	return notify.Dial(*cfg, logger)
}

type deps struct {
	oracle    oracle.Client
	store     store.Gateway
	publisher *notify.Publisher
	analyzer  *pipeline.Analyzer
	matcher   *pipeline.Matcher
}

func (d *deps) Close() {
	if d.publisher != nil {
		d.publisher.Close()
	}
}

// buildDeps wires the pipelines from the config, exiting on failure.
func buildDeps(ctx context.Context, config *Config, logger *zap.Logger) *deps {
	client, err := newOracle(ctx, config.Oracle, logger)
	if err != nil {
		logger.Fatal("building oracle client", zap.Error(err))
	}

	gateway, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("building store", zap.Error(err))
	}

	publisher, err := newPublisher(config.AMQP, logger)
	if err != nil {
		logger.Fatal("connecting to amqp broker", zap.Error(err))
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMaxLogLength(config.Oracle.MaxLogLength),
		pipeline.WithFilters(config.Filters, nil),
	}
	if gateway != nil {
		opts = append(opts, pipeline.WithStore(gateway))
	}
	if publisher != nil {
		opts = append(opts, pipeline.WithObservers(publisher))
	}

	return &deps{
		oracle:    client,
		store:     gateway,
		publisher: publisher,
		analyzer:  pipeline.NewAnalyzer(extract.New(logger), client, opts...),
		matcher:   pipeline.NewMatcher(client, opts...),
	}
}
