// Package instagram is a small client for the Instagram private (mobile app) API.
//
// It covers what CommentPipe needs: password and two-factor login, session
// settings persistence, short code resolution, listing a media's comments and
// posting comments or replies. Every request waits on a token-bucket limiter.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Constants for the emulated Android app.
const (
	DefaultAPIBaseURL = "https://i.instagram.com/api/v1/"
	DefaultWebBaseURL = "https://www.instagram.com/"
	AppID             = "567067343352427"
	AppVersion        = "269.0.0.18.75"
	DefaultUserAgent  = "Instagram " + AppVersion + " Android (26/8.0.0; 480dpi; 1080x1920; OnePlus; 6T Dev; devitron; qcom; en_US; 314665256)"
	webUserAgent      = "Mozilla/5.0 (Linux; Android 8.0.0; ONEPLUS A6013) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

	maxResponseBytes = 10 << 20
)

// Opts holds configuration options for the Instagram client.
type Opts struct {
	APIBaseURL string
	WebBaseURL string
	HTTPClient *http.Client
	Limit      rate.Limit
	Burst      int
}

// Option defines a configuration option for the Instagram client.
type Option func(*Opts)

// WithAPIBaseURL overrides the private API base URL (used by tests).
func WithAPIBaseURL(u string) Option {
	return func(o *Opts) {
		o.APIBaseURL = u
	}
}

// WithWebBaseURL overrides the public web base URL (used by tests).
func WithWebBaseURL(u string) Option {
	return func(o *Opts) {
		o.WebBaseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = hc
	}
}

// WithRateLimit sets how fast requests may be issued.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *Opts) {
		o.Limit = limit
		o.Burst = burst
	}
}

// Client talks to the Instagram private API on behalf of one account.
// It is not safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiBase    string
	webBase    string

	settings            Settings
	twoFactorIdentifier string
}

// NewClient creates a client with fresh device settings.
func NewClient(opts ...Option) *Client {
	cfg := Opts{
		APIBaseURL: DefaultAPIBaseURL,
		WebBaseURL: DefaultWebBaseURL,
		// Private API: 1 req / 2 seconds with a small burst
		Limit: rate.Every(2 * time.Second),
		Burst: 2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	slog.Debug("Instagram NewClient options set", "api_base", cfg.APIBaseURL, "web_base", cfg.WebBaseURL, "limit", float64(cfg.Limit), "burst", cfg.Burst)

	return &Client{
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(cfg.Limit, cfg.Burst),
		apiBase:    ensureSlash(cfg.APIBaseURL),
		webBase:    ensureSlash(cfg.WebBaseURL),
		settings:   NewSettings(),
	}
}

// UserID returns the logged-in account's numeric id, or "" before login.
func (c *Client) UserID() string {
	return c.settings.UserID
}

// Username returns the logged-in account's handle, or "" before login.
func (c *Client) Username() string {
	return c.settings.Username
}

func ensureSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// apiGet issues a GET against the private API.
func (c *Client) apiGet(ctx context.Context, endpoint string, query url.Values) (gjson.Result, error) {
	u := c.apiBase + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, false)
}

// apiPost issues a signed POST against the private API.
func (c *Client) apiPost(ctx context.Context, endpoint string, data map[string]string) (gjson.Result, error) {
	form, err := signedBody(data)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.do(ctx, http.MethodPost, c.apiBase+endpoint, form, false)
}

func (c *Client) do(ctx context.Context, method, u string, form url.Values, web bool) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	if web {
		c.setWebHeaders(req)
	} else {
		c.setAppHeaders(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("instagram request %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.absorbResponse(resp)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response body: %w", err)
	}
	slog.Debug("Instagram response", "method", method, "path", req.URL.Path, "status", resp.StatusCode, "bytes", len(raw))

	if !gjson.ValidBytes(raw) {
		if resp.StatusCode >= http.StatusBadRequest {
			return gjson.Result{}, classify(resp.StatusCode, gjson.Result{})
		}
		return gjson.Result{}, fmt.Errorf("%w: %s %s returned non-JSON body", ErrMalformedResponse, method, req.URL.Path)
	}

	result := gjson.ParseBytes(raw)
	if resp.StatusCode >= http.StatusBadRequest || result.Get("status").String() == "fail" {
		return result, classify(resp.StatusCode, result)
	}
	return result, nil
}

func (c *Client) setAppHeaders(req *http.Request) {
	s := c.settings
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("X-IG-App-ID", AppID)
	req.Header.Set("X-IG-App-Locale", "en_US")
	req.Header.Set("X-IG-Device-Locale", "en_US")
	req.Header.Set("X-IG-Capabilities", "3brTvx0=")
	req.Header.Set("X-IG-Connection-Type", "WIFI")
	req.Header.Set("X-IG-Device-ID", s.Device.UUID)
	req.Header.Set("X-IG-Android-ID", s.Device.AndroidDeviceID)
	req.Header.Set("X-IG-Family-Device-ID", s.Device.PhoneID)
	if mid := s.Cookies["mid"]; mid != "" {
		req.Header.Set("X-MID", mid)
	}
	if s.Authorization != "" {
		req.Header.Set("Authorization", s.Authorization)
	}
	if s.UserID != "" {
		req.Header.Set("IG-U-DS-USER-ID", s.UserID)
		req.Header.Set("IG-INTENDED-USER-ID", s.UserID)
	}
	c.setCookieHeader(req)
}

func (c *Client) setWebHeaders(req *http.Request) {
	req.Header.Set("User-Agent", webUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-IG-App-ID", "936619743392459")
	if token := c.settings.Cookies["csrftoken"]; token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
	c.setCookieHeader(req)
}

func (c *Client) setCookieHeader(req *http.Request) {
	if len(c.settings.Cookies) == 0 {
		return
	}
	names := make([]string, 0, len(c.settings.Cookies))
	for name := range c.settings.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: c.settings.Cookies[name]})
	}
}

// absorbResponse keeps cookies and the bearer token the server hands back.
func (c *Client) absorbResponse(resp *http.Response) {
	if c.settings.Cookies == nil {
		c.settings.Cookies = map[string]string{}
	}
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 {
			delete(c.settings.Cookies, ck.Name)
			continue
		}
		c.settings.Cookies[ck.Name] = ck.Value
	}
	if auth := resp.Header.Get("ig-set-authorization"); auth != "" && !strings.HasSuffix(auth, ":") {
		c.settings.Authorization = auth
	}
	if uid := resp.Header.Get("ig-set-ig-u-ds-user-id"); uid != "" && uid != "0" {
		c.settings.UserID = uid
	}
	if mid := resp.Header.Get("ig-set-x-mid"); mid != "" {
		c.settings.Cookies["mid"] = mid
	}
}

// signedBody encodes data the way the app signs request bodies.
func signedBody(data map[string]string) (url.Values, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return url.Values{"signed_body": {"SIGNATURE." + string(payload)}}, nil
}

// jazoest is the checksum the app derives from the phone id.
func jazoest(phoneID string) string {
	sum := 0
	for _, b := range []byte(phoneID) {
		sum += int(b)
	}
	return "2" + strconv.Itoa(sum)
}
