// Command CommentPipe watches an Instagram post or reel for new comments and
// answers them with short humorous replies from a language model.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/CommentPipe/internal/credentials"
	"github.com/BTreeMap/CommentPipe/internal/genai"
	"github.com/BTreeMap/CommentPipe/internal/instagram"
	"github.com/BTreeMap/CommentPipe/internal/lockfile"
	"github.com/BTreeMap/CommentPipe/internal/monitor"
	"github.com/BTreeMap/CommentPipe/internal/prompt"
	"github.com/BTreeMap/CommentPipe/internal/reply"
	"github.com/BTreeMap/CommentPipe/internal/session"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Running it without a subcommand starts monitoring.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "CommentPipe",
		Short: "Instagram comment monitor with AI humor replies",
		Long: `CommentPipe watches one Instagram post or reel for new comments and,
with auto-reply enabled, answers them with short desi-humor replies.

Settings come from a YAML file (--config), the environment or .env, and flags.
Anything still missing is asked for on the console.

Examples:
  CommentPipe
  CommentPipe run --post-url https://www.instagram.com/p/ABC123/ --interval 60
  CommentPipe logout --username myaccount`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runMonitor,
	}
	registerFlags(rootCmd)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Monitor a post or reel (default command)",
			Args:  cobra.NoArgs,
			RunE:  runMonitor,
		},
		newLogoutCmd(),
	)
	return rootCmd
}

// initializeLogger installs a text handler on stderr at the configured level.
func initializeLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := initializeLogger(cfg.LogLevel); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	console := prompt.NewConsole(os.Stdin, out)
	keys := credentials.NewStore(credentials.DefaultService)

	console.Printf("📱 Instagram Humor Bot with AI Auto-Reply\n")
	console.Printf("==================================================\n")
	if err := fillInteractive(&cfg, console, keys); err != nil {
		return err
	}

	// Startup prompts keep the default SIGINT handling. From here a signal cancels ctx.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock, err := lockfile.AcquireLock(cfg.StateDir, cfg.Username)
	if err != nil {
		return err
	}
	defer lock.Release()

	ig := instagram.NewClient()
	sessions := session.NewManager(ig, session.WithStateDir(cfg.StateDir), session.WithPrompter(console))
	console.Printf("Logging into Instagram...\n")
	if err := sessions.Authenticate(ctx, cfg.Username, cfg.Password); err != nil {
		console.Printf("❌ Failed to login. Please check your credentials.\n")
		return err
	}
	console.Printf("✅ Login successful!\n")
	if cfg.Remember {
		rememberSecrets(cfg, keys)
	}

	opts := []monitor.Option{
		monitor.WithInterval(time.Duration(cfg.Interval) * time.Second),
		monitor.WithSelfHandle(selfHandle(ig, cfg.Username)),
		monitor.WithReporter(monitor.NewConsoleReporter(out, cfg.AutoReplyEnabled())),
	}
	if cfg.AutoReplyEnabled() {
		opts = append(opts, monitor.WithAutoReply(buildReplyGenerator(ctx, cfg)))
	}

	console.Printf("\n⚙️ Settings:\n")
	if cfg.AutoReplyEnabled() {
		console.Printf("   🤖 Auto-reply: ✅ Enabled with %s\n", providerTitle(cfg.LLM.Provider))
	} else {
		console.Printf("   🤖 Auto-reply: ❌ Disabled\n")
	}
	console.Printf("   ⏰ Check interval: %d seconds\n", cfg.Interval)
	console.Printf("   🎯 Target: %s\n", cfg.PostURL)
	console.Printf("==================================================\n")

	slog.Info("Starting CommentPipe monitor", "username", cfg.Username, "post_url", cfg.PostURL, "interval", cfg.Interval, "auto_reply", cfg.AutoReplyEnabled())
	if err := monitor.New(ig, opts...).Run(ctx, cfg.PostURL); err != nil {
		console.Printf("❌ Monitoring failed: %v\n", err)
		return err
	}
	slog.Info("CommentPipe exited successfully")
	return nil
}

// selfHandle is the handle Instagram reported at login, or the configured one.
func selfHandle(ig *instagram.Client, configured string) string {
	if h := ig.Username(); h != "" {
		return h
	}
	return configured
}

// buildReplyGenerator wires the configured backend into a reply generator. If the
// backend cannot be built every reply falls back to a canned one.
func buildReplyGenerator(ctx context.Context, cfg Config) *reply.Generator {
	genaiOpts := buildGenAIOptions(cfg)
	backend, err := genai.NewCompleter(ctx, cfg.LLM.Provider, genaiOpts...)
	if err != nil {
		slog.Warn("Text generation backend unavailable, replies will be canned", "provider", cfg.LLM.Provider, "error", err)
		return reply.NewGenerator(nil)
	}
	slog.Debug("Text generation backend ready", "provider", providerName(cfg.LLM.Provider), "options", len(genaiOpts))
	return reply.NewGenerator(backend)
}

// buildGenAIOptions constructs generation options from the resolved config.
func buildGenAIOptions(cfg Config) []genai.Option {
	var opts []genai.Option
	if cfg.LLM.APIKey != "" {
		opts = append(opts, genai.WithAPIKey(cfg.LLM.APIKey))
	}
	if cfg.LLM.Model != "" {
		opts = append(opts, genai.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, genai.WithBaseURL(cfg.LLM.BaseURL))
	}
	if cfg.LLM.Temperature > 0 {
		opts = append(opts, genai.WithTemperature(cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, genai.WithMaxTokens(cfg.LLM.MaxTokens))
	}
	return opts
}

func rememberSecrets(cfg Config, keys *credentials.Store) {
	if err := keys.SetPassword(cfg.Username, cfg.Password); err != nil {
		slog.Warn("Could not store password in keyring", "error", err)
	}
	if cfg.LLM.APIKey != "" {
		if err := keys.SetAPIKey(providerName(cfg.LLM.Provider), cfg.LLM.APIKey); err != nil {
			slog.Warn("Could not store API key in keyring", "error", err)
		}
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved session and keyring entries for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := initializeLogger(cfg.LogLevel); err != nil {
				return err
			}
			if cfg.Username == "" {
				return fmt.Errorf("%w: --username", ErrMissingSetting)
			}
			return logout(cmd, cfg, credentials.NewStore(credentials.DefaultService))
		},
	}
}

// logout removes everything a previous run stored for the account.
func logout(cmd *cobra.Command, cfg Config, keys *credentials.Store) error {
	lock, err := lockfile.AcquireLock(cfg.StateDir, cfg.Username)
	if err != nil {
		return err
	}
	defer lock.Release()

	sessions := session.NewManager(instagram.NewClient(), session.WithStateDir(cfg.StateDir))
	errs := []error{sessions.Forget(cfg.Username)}
	errs = append(errs, keys.Forget(cfg.Username, genai.ProviderOpenAI, genai.ProviderGemini))
	if err := errors.Join(errs...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Logged out %s: session file and keyring entries removed.\n", cfg.Username)
	slog.Info("Logged out", "username", cfg.Username, "session_path", sessions.SessionPath(cfg.Username))
	return nil
}
