// Package session authenticates CommentPipe to Instagram and persists the session
// so later runs can skip the password and two-factor steps.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/CommentPipe/internal/instagram"
	"github.com/BTreeMap/CommentPipe/internal/models"
)

// Authenticator is the login surface of the social-media client.
type Authenticator interface {
	Login(ctx context.Context, username, password, verificationCode string) error
	LoadSettings(path string) error
	DumpSettings(path string) error
	ResetSettings()
}

// CodePrompter asks the operator for a step-up verification code.
type CodePrompter interface {
	RequestVerificationCode(ctx context.Context) (string, error)
}

// CodePrompterFunc adapts a function to CodePrompter.
type CodePrompterFunc func(ctx context.Context) (string, error)

// RequestVerificationCode calls f(ctx).
func (f CodePrompterFunc) RequestVerificationCode(ctx context.Context) (string, error) {
	return f(ctx)
}

// Opts holds configuration options for the session manager.
type Opts struct {
	StateDir string       // directory holding session_<username>.json files
	Prompter CodePrompter // asked for a code when two-factor verification is required
}

// Option defines a configuration option for the session manager.
type Option func(*Opts)

// WithStateDir sets the directory that holds session files.
func WithStateDir(dir string) Option {
	return func(o *Opts) {
		o.StateDir = dir
	}
}

// WithPrompter sets the verification-code prompter.
func WithPrompter(p CodePrompter) Option {
	return func(o *Opts) {
		o.Prompter = p
	}
}

// Manager runs the login sequence for one client.
type Manager struct {
	auth     Authenticator
	prompter CodePrompter
	stateDir string
}

// NewManager creates a session manager. Without WithStateDir, session files live in
// the working directory.
func NewManager(auth Authenticator, opts ...Option) *Manager {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.StateDir == "" {
		cfg.StateDir = "."
	}
	slog.Debug("Session manager options set", "state_dir", cfg.StateDir, "prompter_set", cfg.Prompter != nil)
	return &Manager{auth: auth, prompter: cfg.Prompter, stateDir: cfg.StateDir}
}

// SessionPath returns the session file for username.
func (m *Manager) SessionPath(username string) string {
	return filepath.Join(m.stateDir, "session_"+username+".json")
}

// Authenticate logs username in, reusing a saved session when possible.
//
// A saved session that fails to load or is rejected is deleted before a fresh
// login is attempted. If the fresh login asks for two-factor verification the
// prompter is consulted once. Every successful path rewrites the session file.
// All failures wrap models.ErrAuthentication.
func (m *Manager) Authenticate(ctx context.Context, username, password string) error {
	path := m.SessionPath(username)

	if _, err := os.Stat(path); err == nil {
		slog.Info("Found existing session file, trying to reuse it", "path", path)
		reuseErr := m.reuse(ctx, path, username, password)
		if reuseErr == nil {
			m.persist(path)
			slog.Info("Login successful using saved session", "username", username)
			return nil
		}
		slog.Warn("Saved session failed, trying fresh login", "username", username, "error", reuseErr)
		if err := m.discard(path); err != nil {
			slog.Warn("Failed to delete stale session file", "path", path, "error", err)
		}
		m.auth.ResetSettings()
	}

	err := m.auth.Login(ctx, username, password, "")
	if err == nil {
		m.persist(path)
		slog.Info("Login successful, session saved", "username", username)
		return nil
	}
	if !errors.Is(err, instagram.ErrTwoFactorRequired) {
		return fmt.Errorf("%w: %w", models.ErrAuthentication, err)
	}

	slog.Info("Two-factor authentication required", "username", username)
	if m.prompter == nil {
		return fmt.Errorf("%w: two-factor code required but no prompter configured", models.ErrAuthentication)
	}
	code, err := m.prompter.RequestVerificationCode(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading verification code: %w", models.ErrAuthentication, err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: empty verification code", models.ErrAuthentication)
	}

	if err := m.auth.Login(ctx, username, password, code); err != nil {
		return fmt.Errorf("%w: two-factor login: %w", models.ErrAuthentication, err)
	}
	m.persist(path)
	slog.Info("Login successful with two-factor code, session saved", "username", username)
	return nil
}

// Forget deletes the saved session for username. A missing file is not an error.
func (m *Manager) Forget(username string) error {
	return m.discard(m.SessionPath(username))
}

func (m *Manager) reuse(ctx context.Context, path, username, password string) error {
	if err := m.auth.LoadSettings(path); err != nil {
		return err
	}
	return m.auth.Login(ctx, username, password, "")
}

func (m *Manager) persist(path string) {
	if err := m.auth.DumpSettings(path); err != nil {
		slog.Warn("Failed to save session file", "path", path, "error", err)
	}
}

func (m *Manager) discard(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
