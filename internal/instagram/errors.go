package instagram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error variables for conditions reported by the private API.
var (
	ErrTwoFactorRequired  = errors.New("two-factor authentication required")
	ErrLoginRequired      = errors.New("login required")
	ErrChallengeRequired  = errors.New("challenge required")
	ErrBadPassword        = errors.New("bad password")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidShortcode   = errors.New("invalid shortcode")
	ErrInvalidSettings    = errors.New("invalid session settings")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrNoPendingTwoFactor = errors.New("no pending two-factor challenge")
)

// TwoFactorError is returned by Login when the account requires a verification code.
// It matches ErrTwoFactorRequired with errors.Is.
type TwoFactorError struct {
	Username   string
	Identifier string
}

func (e *TwoFactorError) Error() string {
	return fmt.Sprintf("two-factor authentication required for %s", e.Username)
}

func (e *TwoFactorError) Is(target error) bool {
	return target == ErrTwoFactorRequired
}

// APIError describes a failed private API call.
type APIError struct {
	StatusCode int
	Message    string
	ErrorType  string
	Err        error // one of the sentinel errors above, or nil
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.ErrorType != "" {
		return fmt.Sprintf("instagram api error (status %d, %s): %s", e.StatusCode, e.ErrorType, msg)
	}
	return fmt.Sprintf("instagram api error (status %d): %s", e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classify maps a failed response body onto an APIError.
func classify(status int, body gjson.Result) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    body.Get("message").String(),
		ErrorType:  body.Get("error_type").String(),
	}

	switch {
	case apiErr.Message == "login_required":
		apiErr.Err = ErrLoginRequired
	case apiErr.Message == "challenge_required" || body.Get("challenge").Exists():
		apiErr.Err = ErrChallengeRequired
	case apiErr.ErrorType == "bad_password":
		apiErr.Err = ErrBadPassword
	case status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(apiErr.Message), "please wait a few minutes"):
		apiErr.Err = ErrRateLimited
	}
	return apiErr
}
