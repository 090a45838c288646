package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Login authenticates the account.
//
// With a non-empty verificationCode it completes the two-factor challenge raised by
// the previous Login call. Otherwise, if the client holds an authorization token
// (typically from LoadSettings), that session is verified and reused without sending
// the password. Only when there is no token are credentials posted. A two-factor
// challenge is reported as a *TwoFactorError.
func (c *Client) Login(ctx context.Context, username, password, verificationCode string) error {
	if verificationCode != "" {
		return c.twoFactorLogin(ctx, username, verificationCode)
	}
	if c.settings.Authorization != "" {
		return c.resumeSession(ctx, username)
	}
	return c.passwordLogin(ctx, username, password)
}

func (c *Client) resumeSession(ctx context.Context, username string) error {
	slog.Debug("Verifying stored Instagram session", "username", username, "user_id", c.settings.UserID)
	res, err := c.apiGet(ctx, "accounts/current_user/", url.Values{"edit": {"true"}})
	if err != nil {
		return fmt.Errorf("stored session rejected: %w", err)
	}
	user := res.Get("user")
	if !user.Exists() {
		return fmt.Errorf("%w: current_user response has no user", ErrMalformedResponse)
	}
	got := user.Get("username").String()
	if got != "" && !strings.EqualFold(got, username) {
		return fmt.Errorf("%w: session belongs to %s, not %s", ErrInvalidSettings, got, username)
	}
	c.settings.Username = canonicalUsername(got, username)
	c.settings.UserID = user.Get("pk").String()
	slog.Info("Instagram session reused", "username", username, "user_id", c.settings.UserID)
	return nil
}

func (c *Client) passwordLogin(ctx context.Context, username, password string) error {
	d := c.settings.Device
	data := map[string]string{
		"jazoest":             jazoest(d.PhoneID),
		"country_codes":       `[{"country_code":"1","source":["default"]}]`,
		"phone_id":            d.PhoneID,
		"enc_password":        "#PWD_INSTAGRAM:0:" + strconv.FormatInt(time.Now().Unix(), 10) + ":" + password,
		"username":            username,
		"adid":                d.AdvertisingID,
		"guid":                d.UUID,
		"device_id":           d.AndroidDeviceID,
		"google_tokens":       "[]",
		"login_attempt_count": "0",
	}

	slog.Debug("Posting Instagram credentials", "username", username)
	res, err := c.apiPost(ctx, "accounts/login/", data)
	if res.Get("two_factor_required").Bool() {
		c.twoFactorIdentifier = res.Get("two_factor_info.two_factor_identifier").String()
		slog.Info("Instagram requested two-factor verification", "username", username)
		return &TwoFactorError{Username: username, Identifier: c.twoFactorIdentifier}
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return c.finishLogin(username, res)
}

func (c *Client) twoFactorLogin(ctx context.Context, username, code string) error {
	if c.twoFactorIdentifier == "" {
		return ErrNoPendingTwoFactor
	}
	d := c.settings.Device
	data := map[string]string{
		"verification_code":     code,
		"phone_id":              d.PhoneID,
		"two_factor_identifier": c.twoFactorIdentifier,
		"username":              username,
		"trust_this_device":     "1",
		"guid":                  d.UUID,
		"device_id":             d.AndroidDeviceID,
		"waterfall_id":          d.ClientSessionID,
		"verification_method":   "3",
	}

	slog.Debug("Posting Instagram two-factor code", "username", username)
	res, err := c.apiPost(ctx, "accounts/two_factor_login/", data)
	if err != nil {
		return fmt.Errorf("two-factor login failed: %w", err)
	}
	c.twoFactorIdentifier = ""
	return c.finishLogin(username, res)
}

func (c *Client) finishLogin(username string, res gjson.Result) error {
	user := res.Get("logged_in_user")
	if !user.Exists() {
		return fmt.Errorf("%w: login response has no logged_in_user", ErrMalformedResponse)
	}
	c.settings.UserID = user.Get("pk").String()
	c.settings.Username = canonicalUsername(user.Get("username").String(), username)
	c.settings.LastLogin = time.Now().Unix()
	slog.Info("Instagram login succeeded", "username", c.settings.Username, "user_id", c.settings.UserID, "authorization_set", c.settings.Authorization != "")
	return nil
}

// canonicalUsername prefers the handle Instagram reports over the one typed at login.
func canonicalUsername(reported, typed string) string {
	if reported != "" {
		return reported
	}
	return typed
}
