package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BTreeMap/CommentPipe/internal/credentials"
	"github.com/BTreeMap/CommentPipe/internal/genai"
	"github.com/BTreeMap/CommentPipe/internal/prompt"
	"github.com/BTreeMap/CommentPipe/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Default configuration constants
const (
	// DefaultStateDir holds session and lock files when nothing else is configured.
	DefaultStateDir = "."
	// DefaultIntervalSeconds is the pause between comment checks.
	DefaultIntervalSeconds = 30
	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
)

// Environment variable names.
const (
	envUsername    = "COMMENTPIPE_USERNAME"
	envPassword    = "COMMENTPIPE_PASSWORD"
	envPostURL     = "COMMENTPIPE_POST_URL"
	envInterval    = "COMMENTPIPE_INTERVAL"
	envAutoReply   = "COMMENTPIPE_AUTO_REPLY"
	envStateDir    = "COMMENTPIPE_STATE_DIR"
	envLLMProvider = "COMMENTPIPE_LLM_PROVIDER"
	envLLMModel    = "COMMENTPIPE_LLM_MODEL"
	envLLMBaseURL  = "COMMENTPIPE_LLM_BASE_URL"
	envLogLevel    = "COMMENTPIPE_LOG_LEVEL"
	envOpenAIKey   = "OPENAI_API_KEY"
	envGoogleKey   = "GOOGLE_API_KEY"
)

// LLMConfig configures the text-generation backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	BaseURL     string  `yaml:"base_url"` // OpenAI-compatible endpoint, openai provider only
}

// Config holds the resolved settings for one run.
type Config struct {
	Username  string    `yaml:"username"`
	Password  string    `yaml:"password"`
	PostURL   string    `yaml:"post_url"`
	Interval  int       `yaml:"interval"`   // seconds; 0 means ask
	AutoReply *bool     `yaml:"auto_reply"` // nil means ask
	StateDir  string    `yaml:"state_dir"`
	LogLevel  string    `yaml:"log_level"`
	Remember  bool      `yaml:"remember"`
	LLM       LLMConfig `yaml:"llm"`
}

// defaultConfig returns the built-in defaults, the lowest configuration layer.
func defaultConfig() Config {
	return Config{
		StateDir: DefaultStateDir,
		LogLevel: DefaultLogLevel,
		LLM: LLMConfig{
			Provider:    genai.ProviderOpenAI,
			Temperature: genai.DefaultTemperature,
			MaxTokens:   genai.DefaultMaxTokens,
		},
	}
}

// AutoReplyEnabled reports the resolved auto-reply setting.
func (c Config) AutoReplyEnabled() bool {
	return c.AutoReply != nil && *c.AutoReply
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys absent from the
// file leave cfg untouched.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	slog.Debug("Config file loaded", "path", path, "password_set", cfg.Password != "", "api_key_set", cfg.LLM.APIKey != "")
	return nil
}

// loadDotEnv loads .env into the process environment without overriding variables
// that are already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Username, envUsername)
	setString(&cfg.PostURL, envPostURL)
	setString(&cfg.StateDir, envStateDir)
	setString(&cfg.LogLevel, envLogLevel)
	setString(&cfg.LLM.Provider, envLLMProvider)
	setString(&cfg.LLM.Model, envLLMModel)
	setString(&cfg.LLM.BaseURL, envLLMBaseURL)
	if v := os.Getenv(envPassword); v != "" {
		cfg.Password = v
	}

	if _, ok := os.LookupEnv(envInterval); ok {
		cfg.Interval = util.ParseIntEnv(envInterval, DefaultIntervalSeconds)
	}
	if _, ok := os.LookupEnv(envAutoReply); ok {
		enabled := util.ParseBoolEnv(envAutoReply, true)
		cfg.AutoReply = &enabled
	}

	slog.Debug("environment variables loaded",
		envUsername, cfg.Username,
		envPostURL, cfg.PostURL,
		envStateDir, cfg.StateDir,
		envLLMProvider, cfg.LLM.Provider,
		"COMMENTPIPE_PASSWORD_SET", os.Getenv(envPassword) != "",
		"OPENAI_API_KEY_SET", os.Getenv(envOpenAIKey) != "",
		"GOOGLE_API_KEY_SET", os.Getenv(envGoogleKey) != "")
}

// providerKeyEnv names the environment variable holding the provider's API key.
func providerKeyEnv(provider string) string {
	if strings.EqualFold(provider, genai.ProviderGemini) {
		return envGoogleKey
	}
	return envOpenAIKey
}

// applyProviderKey fills the API key from the provider's environment variable
// unless a file or flag already supplied one.
func applyProviderKey(cfg *Config) {
	if cfg.LLM.APIKey != "" {
		return
	}
	cfg.LLM.APIKey = os.Getenv(providerKeyEnv(cfg.LLM.Provider))
}

// registerFlags adds the configuration flags shared by all commands.
func registerFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringP("config", "c", "", "path to a YAML config file")
	f.StringP("username", "u", "", "Instagram username (overrides $"+envUsername+")")
	f.String("post-url", "", "post or reel URL to monitor (overrides $"+envPostURL+")")
	f.Int("interval", 0, "seconds between comment checks (overrides $"+envInterval+")")
	f.Bool("auto-reply", true, "reply to new comments (overrides $"+envAutoReply+")")
	f.String("state-dir", "", "directory for session and lock files (overrides $"+envStateDir+")")
	f.String("llm-provider", "", "text generation backend: openai or gemini (overrides $"+envLLMProvider+")")
	f.String("model", "", "model name for the text generation backend (overrides $"+envLLMModel+")")
	f.String("llm-base-url", "", "OpenAI-compatible endpoint for the openai provider (overrides $"+envLLMBaseURL+")")
	f.String("api-key", "", "API key for the text generation backend (overrides $"+envOpenAIKey+" / $"+envGoogleKey+")")
	f.String("log-level", "", "log level: debug, info, warn or error (overrides $"+envLogLevel+")")
	f.Bool("remember", false, "store the password and API key in the OS keyring after a successful login")
}

// applyFlags overlays explicitly set flags onto cfg, the highest configuration layer.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	if f.Changed("username") {
		cfg.Username, _ = f.GetString("username")
	}
	if f.Changed("post-url") {
		cfg.PostURL, _ = f.GetString("post-url")
	}
	if f.Changed("interval") {
		cfg.Interval, _ = f.GetInt("interval")
	}
	if f.Changed("auto-reply") {
		enabled, _ := f.GetBool("auto-reply")
		cfg.AutoReply = &enabled
	}
	if f.Changed("state-dir") {
		cfg.StateDir, _ = f.GetString("state-dir")
	}
	if f.Changed("llm-provider") {
		cfg.LLM.Provider, _ = f.GetString("llm-provider")
	}
	if f.Changed("model") {
		cfg.LLM.Model, _ = f.GetString("model")
	}
	if f.Changed("llm-base-url") {
		cfg.LLM.BaseURL, _ = f.GetString("llm-base-url")
	}
	if f.Changed("api-key") {
		cfg.LLM.APIKey, _ = f.GetString("api-key")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("remember") {
		cfg.Remember, _ = f.GetBool("remember")
	}
}

// resolveConfig builds the configuration: defaults, then the YAML file, then the
// environment (including .env), then flags.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg := defaultConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	loadDotEnv()
	applyEnv(&cfg)
	applyFlags(cmd, &cfg)
	applyProviderKey(&cfg)

	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	if cfg.Interval < 0 {
		cfg.Interval = DefaultIntervalSeconds
	}

	slog.Debug("Final configuration",
		"username", cfg.Username,
		"post_url", cfg.PostURL,
		"interval", cfg.Interval,
		"auto_reply_set", cfg.AutoReply != nil,
		"state_dir", cfg.StateDir,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"llm_base_url", cfg.LLM.BaseURL,
		"password_set", cfg.Password != "",
		"api_key_set", cfg.LLM.APIKey != "",
		"remember", cfg.Remember)
	return cfg, nil
}

// ErrMissingSetting is returned when a required setting is neither configured nor
// supplied interactively.
var ErrMissingSetting = errors.New("required setting missing")

// fillInteractive asks for whatever the configuration layers left unset, in the
// order a first-time user is asked: account, auto-reply, API key, target, interval.
// Secrets are looked up in the keyring before prompting.
func fillInteractive(cfg *Config, console *prompt.Console, keys *credentials.Store) error {
	if cfg.Username == "" {
		answer, err := console.Line("Enter your Instagram username: ")
		if err != nil || answer == "" {
			return fmt.Errorf("%w: Instagram username", ErrMissingSetting)
		}
		cfg.Username = answer
	}

	if cfg.Password == "" {
		cfg.Password = keys.Password(cfg.Username)
		if cfg.Password != "" {
			slog.Debug("Password loaded from OS keyring", "username", cfg.Username)
		}
	}
	if cfg.Password == "" {
		answer, err := console.Secret("Enter your Instagram password: ")
		if err != nil || answer == "" {
			return fmt.Errorf("%w: Instagram password", ErrMissingSetting)
		}
		cfg.Password = answer
	}

	if cfg.AutoReply == nil {
		enabled, err := console.YesNo("Enable auto-reply with AI humor? (y/n, default=y): ", true)
		if err != nil {
			slog.Debug("Auto-reply answer unavailable, using default", "error", err)
		}
		cfg.AutoReply = &enabled
	}

	if cfg.AutoReplyEnabled() && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = keys.APIKey(providerName(cfg.LLM.Provider))
		if cfg.LLM.APIKey == "" {
			answer, err := console.Secret(fmt.Sprintf("Enter your %s API key: ", providerTitle(cfg.LLM.Provider)))
			if err != nil {
				slog.Debug("API key answer unavailable", "error", err)
			}
			cfg.LLM.APIKey = answer
		}
		if cfg.LLM.APIKey == "" {
			console.Printf("❌ %s API key is required for auto-reply!\n", providerTitle(cfg.LLM.Provider))
			disabled := false
			cfg.AutoReply = &disabled
		}
	}

	if cfg.PostURL == "" {
		console.Printf("\nExample: https://www.instagram.com/p/ABC123DEF456/\n")
		console.Printf("Example: https://www.instagram.com/reel/ABC123DEF456/\n")
		answer, err := console.Line("Enter the Instagram post/reel URL to monitor: ")
		if err != nil || answer == "" {
			return fmt.Errorf("%w: post URL", ErrMissingSetting)
		}
		cfg.PostURL = answer
	}

	if cfg.Interval == 0 {
		n, err := console.Int("Enter check interval in seconds (default 30): ", DefaultIntervalSeconds)
		if err != nil {
			slog.Debug("Interval answer unavailable, using default", "error", err)
		}
		cfg.Interval = n
	}
	return nil
}

func providerName(provider string) string {
	if provider == "" {
		return genai.ProviderOpenAI
	}
	return strings.ToLower(provider)
}

func providerTitle(provider string) string {
	if providerName(provider) == genai.ProviderGemini {
		return "Gemini"
	}
	return "OpenAI"
}
