package cmd

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spigell/skillsynx/internal/filtering"
	"github.com/spigell/skillsynx/internal/logger"
	"github.com/spigell/skillsynx/internal/notify"
	"github.com/spigell/skillsynx/internal/oracle"
	"github.com/spigell/skillsynx/internal/server"
	"github.com/spigell/skillsynx/internal/store/s3store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "skillsynx"
)

type Config struct {
	// UserID owns the records written by the cli commands.
	UserID  string           `mapstructure:"user-id"`
	Oracle  *OracleConfig    `mapstructure:"oracle"`
	Store   *StoreConfig     `mapstructure:"store"`
	Filters filtering.Config `mapstructure:"filters"`
	Server  server.Config    `mapstructure:"server"`
	AMQP    *notify.Config   `mapstructure:"amqp"`
}

type OracleConfig struct {
	Provider     string        `mapstructure:"provider"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`

	oracle.RetryPolicy `mapstructure:",squash"`

	Gemini *GeminiConfig   `mapstructure:"gemini"`
	OpenAI *OpenAIConfig   `mapstructure:"openai"`
	HTTP   *HTTPChatConfig `mapstructure:"http"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api-key"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base-url"`
	Temperature float64 `mapstructure:"temperature"`
}

type HTTPChatConfig struct {
	URL       string `mapstructure:"url"`
	Model     string `mapstructure:"model"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
}

type StoreConfig struct {
	// Backend is fs, s3 or none.
	Backend string         `mapstructure:"backend"`
	Root    string         `mapstructure:"root"`
	S3      s3store.Config `mapstructure:"s3"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skillsynx analyses résumés with an LLM and suggests matching job openings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"oracle.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"oracle.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"oracle.http.token-file":     "SKILLSYNX_ORACLE_TOKEN_FILE",
		"amqp.url":                   "SKILLSYNX_AMQP_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("user-id", "local")
	viper.SetDefault("oracle.provider", providerGemini)
	viper.SetDefault("oracle.timeout", "60s")
	viper.SetDefault("oracle.max-attempts", oracle.DefaultMaxAttempts)
	viper.SetDefault("store.backend", backendFS)
	viper.SetDefault("store.root", "./data")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skillsynx.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("user", "u", "", "user id owning stored analyses (default is user-id from config)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user"))
}

func initConfig() {
	// A missing .env is fine, variables may come from the environment itself.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config must exist, the default one is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Oracle == nil {
		config.Oracle = &OracleConfig{Provider: providerGemini}
	}
	if config.Store == nil {
		config.Store = &StoreConfig{Backend: backendFS}
	}

	return config, nil
}

// setup builds the logger and reads the config, exiting on failure.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(logger.Options{
		JSON:    viper.GetBool("json"),
		Debug:   viper.GetBool("debug"),
		Service: app,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}
