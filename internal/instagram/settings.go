package instagram

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/CommentPipe/internal/util"
	"github.com/google/uuid"
)

// DeviceIDs are the identifiers the Android app reports for one installation.
type DeviceIDs struct {
	PhoneID         string `json:"phone_id"`
	UUID            string `json:"uuid"`
	ClientSessionID string `json:"client_session_id"`
	AdvertisingID   string `json:"advertising_id"`
	AndroidDeviceID string `json:"android_device_id"`
}

// Settings is the persisted session artifact for one account.
type Settings struct {
	Device        DeviceIDs         `json:"uuids"`
	Cookies       map[string]string `json:"cookies"`
	Authorization string            `json:"authorization"`
	UserAgent     string            `json:"user_agent"`
	UserID        string            `json:"user_id,omitempty"`
	Username      string            `json:"username,omitempty"`
	LastLogin     int64             `json:"last_login,omitempty"`
}

// NewSettings returns settings for a fresh device with no login state.
func NewSettings() Settings {
	return Settings{
		Device: DeviceIDs{
			PhoneID:         uuid.NewString(),
			UUID:            uuid.NewString(),
			ClientSessionID: uuid.NewString(),
			AdvertisingID:   uuid.NewString(),
			AndroidDeviceID: util.GenerateAndroidDeviceID(),
		},
		Cookies:   map[string]string{},
		UserAgent: DefaultUserAgent,
	}
}

// validate rejects settings that cannot drive a session.
func (s Settings) validate() error {
	if s.Device.UUID == "" || s.Device.PhoneID == "" || s.Device.AndroidDeviceID == "" {
		return fmt.Errorf("%w: missing device identifiers", ErrInvalidSettings)
	}
	if _, err := uuid.Parse(s.Device.UUID); err != nil {
		return fmt.Errorf("%w: bad device uuid: %w", ErrInvalidSettings, err)
	}
	return nil
}

// Settings returns a copy of the client's current settings.
func (c *Client) Settings() Settings {
	s := c.settings
	s.Cookies = make(map[string]string, len(c.settings.Cookies))
	for k, v := range c.settings.Cookies {
		s.Cookies[k] = v
	}
	return s
}

// ResetSettings discards login state and device identifiers.
func (c *Client) ResetSettings() {
	c.settings = NewSettings()
	c.twoFactorIdentifier = ""
}

// LoadSettings replaces the client's settings with those stored at path.
// Corrupt or incompatible files return an error wrapping ErrInvalidSettings.
func (c *Client) LoadSettings(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file %s: %w", path, err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSettings, path, err)
	}
	if err := s.validate(); err != nil {
		return err
	}
	if s.Cookies == nil {
		s.Cookies = map[string]string{}
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}

	c.settings = s
	slog.Debug("Instagram session settings loaded", "path", path, "user_id", s.UserID, "authorization_set", s.Authorization != "")
	return nil
}

// DumpSettings writes the client's settings to path, replacing any existing file.
func (c *Client) DumpSettings(path string) error {
	data, err := json.MarshalIndent(c.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session file %s: %w", path, err)
	}
	slog.Debug("Instagram session settings saved", "path", path)
	return nil
}
