// Package credentials keeps the Instagram password and the text-generation API key
// in the operating system's keyring (Secret Service, Keychain or Credential Manager)
// so they need not sit in .env files or be typed on every run.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name entries are stored under.
const DefaultService = "commentpipe"

// Store reads and writes CommentPipe secrets in the OS keyring.
type Store struct {
	service string
}

// NewStore returns a store for service. An empty service uses DefaultService.
func NewStore(service string) *Store {
	if service == "" {
		service = DefaultService
	}
	return &Store{service: service}
}

func passwordKey(username string) string {
	return "password:" + username
}

func apiKeyKey(provider string) string {
	return "api_key:" + provider
}

// Password returns the stored password for username, or "" if none is stored or
// the keyring is unavailable.
func (s *Store) Password(username string) string {
	return s.get(passwordKey(username))
}

// SetPassword stores the password for username.
func (s *Store) SetPassword(username, password string) error {
	if err := keyring.Set(s.service, passwordKey(username), password); err != nil {
		return fmt.Errorf("storing password for %s in keyring: %w", username, err)
	}
	slog.Info("Password stored in OS keyring", "service", s.service, "username", username)
	return nil
}

// APIKey returns the stored API key for provider, or "".
func (s *Store) APIKey(provider string) string {
	return s.get(apiKeyKey(provider))
}

// SetAPIKey stores the API key for provider.
func (s *Store) SetAPIKey(provider, key string) error {
	if err := keyring.Set(s.service, apiKeyKey(provider), key); err != nil {
		return fmt.Errorf("storing %s API key in keyring: %w", provider, err)
	}
	slog.Info("API key stored in OS keyring", "service", s.service, "provider", provider)
	return nil
}

// Forget deletes the password for username and the API keys of providers.
// Entries that do not exist are ignored.
func (s *Store) Forget(username string, providers ...string) error {
	keys := []string{passwordKey(username)}
	for _, p := range providers {
		keys = append(keys, apiKeyKey(p))
	}

	var errs []error
	for _, k := range keys {
		if err := keyring.Delete(s.service, k); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, fmt.Errorf("deleting %s: %w", k, err))
		}
	}
	slog.Debug("Keyring entries forgotten", "service", s.service, "username", username, "providers", providers, "errors", len(errs))
	return errors.Join(errs...)
}

func (s *Store) get(key string) string {
	val, err := keyring.Get(s.service, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("Keyring lookup failed", "service", s.service, "key", key, "error", err)
		}
		return ""
	}
	return val
}
