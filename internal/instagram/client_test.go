package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/time/rate"
)

// newTestClient returns a client pointed at srv with rate limiting disabled.
func newTestClient(srv *httptest.Server) *Client {
	return NewClient(
		WithAPIBaseURL(srv.URL+"/api/v1/"),
		WithWebBaseURL(srv.URL+"/"),
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.Inf, 1),
	)
}

func TestMediaIDFromShortcode(t *testing.T) {
	c := NewClient()
	tests := []struct {
		code    string
		want    string
		wantErr bool
	}{
		{code: "B-fKL9qpeab", want: "2278584739065882267"},
		{code: "ABC123", want: "17522103"},
		{code: "XYZ9", want: "6129277"},
		{code: "B-fKL9qpeabEXTRAPRIVATEPART", want: "2278584739065882267"},
		{code: "", wantErr: true},
		{code: "abc!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := c.MediaIDFromShortcode(tt.code)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidShortcode) {
					t.Errorf("expected ErrInvalidShortcode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MediaIDFromShortcode(%q) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestPasswordLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/login/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		body := r.PostForm.Get("signed_body")
		if !strings.HasPrefix(body, "SIGNATURE.") || !strings.Contains(body, `"username":"me"`) {
			t.Errorf("unexpected signed body %q", body)
		}
		if r.Header.Get("X-IG-App-ID") != AppID {
			t.Errorf("missing app id header")
		}
		w.Header().Set("ig-set-authorization", "Bearer IGT:2:abc")
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok"})
		fmt.Fprint(w, `{"logged_in_user":{"pk":12345,"username":"me"},"status":"ok"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if err := c.Login(context.Background(), "me", "secret", ""); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if c.Username() != "me" || c.UserID() != "12345" {
		t.Errorf("unexpected accessors %s/%s", c.Username(), c.UserID())
	}
	s := c.Settings()
	if s.UserID != "12345" || s.Username != "me" {
		t.Errorf("unexpected identity %s/%s", s.UserID, s.Username)
	}
	if s.Authorization != "Bearer IGT:2:abc" {
		t.Errorf("authorization not captured: %q", s.Authorization)
	}
	if s.Cookies["csrftoken"] != "tok" {
		t.Errorf("cookie not captured: %v", s.Cookies)
	}
	if s.LastLogin == 0 {
		t.Error("LastLogin not set")
	}
}

func TestPasswordLogin_TwoFactorThenCode(t *testing.T) {
	var twoFactorCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.URL.Path {
		case "/api/v1/accounts/login/":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"","two_factor_required":true,"two_factor_info":{"two_factor_identifier":"tfid-1"},"status":"fail"}`)
		case "/api/v1/accounts/two_factor_login/":
			twoFactorCalls++
			body := r.PostForm.Get("signed_body")
			if !strings.Contains(body, `"two_factor_identifier":"tfid-1"`) || !strings.Contains(body, `"verification_code":"123456"`) {
				t.Errorf("unexpected two-factor body %q", body)
			}
			w.Header().Set("ig-set-authorization", "Bearer IGT:2:xyz")
			fmt.Fprint(w, `{"logged_in_user":{"pk":"777"},"status":"ok"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	err := c.Login(context.Background(), "me", "secret", "")
	if !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}
	var tfErr *TwoFactorError
	if !errors.As(err, &tfErr) || tfErr.Identifier != "tfid-1" {
		t.Fatalf("expected TwoFactorError with identifier, got %#v", err)
	}

	if err := c.Login(context.Background(), "me", "secret", "123456"); err != nil {
		t.Fatalf("two-factor login failed: %v", err)
	}
	if twoFactorCalls != 1 || c.UserID() != "777" {
		t.Errorf("unexpected state: calls=%d user=%s", twoFactorCalls, c.UserID())
	}
}

func TestTwoFactorLogin_NoPendingChallenge(t *testing.T) {
	c := NewClient()
	if err := c.Login(context.Background(), "me", "pw", "000000"); !errors.Is(err, ErrNoPendingTwoFactor) {
		t.Errorf("expected ErrNoPendingTwoFactor, got %v", err)
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad password", 400, `{"message":"The password you entered is incorrect.","error_type":"bad_password","status":"fail"}`, ErrBadPassword},
		{"challenge", 400, `{"message":"challenge_required","challenge":{"url":"x"},"status":"fail"}`, ErrChallengeRequired},
		{"rate limited", 429, `{"message":"Please wait a few minutes before you try again.","status":"fail"}`, ErrRateLimited},
		{"login required", 403, `{"message":"login_required","status":"fail"}`, ErrLoginRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			err := newTestClient(srv).Login(context.Background(), "me", "pw", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Errorf("expected APIError with status %d, got %#v", tt.status, err)
			}
		})
	}
}

func TestLogin_ResumesStoredSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/current_user/" {
			t.Errorf("stored session should not post credentials, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer IGT:2:stored" {
			t.Errorf("stored authorization not sent")
		}
		fmt.Fprint(w, `{"user":{"pk":55,"username":"me"},"status":"ok"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.settings.Authorization = "Bearer IGT:2:stored"
	if err := c.Login(context.Background(), "me", "pw", ""); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if c.UserID() != "55" {
		t.Errorf("expected user id 55, got %s", c.UserID())
	}
}

func TestLogin_UsernameTakesReportedCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user":{"pk":55,"username":"myaccount"},"status":"ok"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.settings.Authorization = "Bearer IGT:2:stored"
	if err := c.Login(context.Background(), "MyAccount", "pw", ""); err != nil {
		t.Fatalf("handles differing only in case should resume: %v", err)
	}
	if c.Username() != "myaccount" {
		t.Errorf("Username() = %q, want the handle Instagram reports", c.Username())
	}

	c = newTestClient(srv)
	c.settings.Authorization = "Bearer IGT:2:stored"
	if err := c.Login(context.Background(), "someoneelse", "pw", ""); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings for another account's session, got %v", err)
	}
}

func TestLogin_StoredSessionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"login_required","status":"fail"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.settings.Authorization = "Bearer IGT:2:expired"
	if err := c.Login(context.Background(), "me", "pw", ""); !errors.Is(err, ErrLoginRequired) {
		t.Errorf("expected ErrLoginRequired, got %v", err)
	}
}

func TestMediaComments_Paginates(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/api/v1/media/999/comments/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("max_id") == "" {
			fmt.Fprint(w, `{"comments":[{"pk":1,"text":"first","created_at_utc":1700000000,"user":{"username":"a"}}],"has_more_comments":true,"next_max_id":"cursor-2","status":"ok"}`)
			return
		}
		if r.URL.Query().Get("max_id") != "cursor-2" {
			t.Errorf("unexpected cursor %s", r.URL.Query().Get("max_id"))
		}
		fmt.Fprint(w, `{"comments":[{"pk":"2","text":"second","user":{"username":"b"}}],"has_more_comments":false,"status":"ok"}`)
	}))
	defer srv.Close()

	comments, err := newTestClient(srv).MediaComments(context.Background(), "999")
	if err != nil {
		t.Fatalf("MediaComments failed: %v", err)
	}
	if calls != 2 || len(comments) != 2 {
		t.Fatalf("expected 2 calls and 2 comments, got %d and %d", calls, len(comments))
	}
	if comments[0].ID != "1" || comments[0].Author != "a" || comments[0].Text != "first" {
		t.Errorf("unexpected first comment %+v", comments[0])
	}
	if comments[0].CreatedAt == nil || comments[0].CreatedAt.Unix() != 1700000000 {
		t.Errorf("expected created_at to be parsed, got %v", comments[0].CreatedAt)
	}
	if comments[1].CreatedAt != nil {
		t.Errorf("missing timestamp should stay nil")
	}
}

func TestMediaComment_Reply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		body := r.PostForm.Get("signed_body")
		if !strings.Contains(body, `"replied_to_comment_id":"42"`) || !strings.Contains(body, `"comment_text":"haha"`) {
			t.Errorf("unexpected body %q", body)
		}
		fmt.Fprint(w, `{"comment":{"pk":9001},"status":"ok"}`)
	}))
	defer srv.Close()

	id, err := newTestClient(srv).MediaComment(context.Background(), "999", "haha", "42")
	if err != nil {
		t.Fatalf("MediaComment failed: %v", err)
	}
	if id != "9001" {
		t.Errorf("expected id 9001, got %s", id)
	}
}

func TestMediaComment_TopLevelHasNoReplyField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if strings.Contains(r.PostForm.Get("signed_body"), "replied_to_comment_id") {
			t.Error("top-level comment should not carry replied_to_comment_id")
		}
		fmt.Fprint(w, `{"comment":{"pk":1},"status":"ok"}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).MediaComment(context.Background(), "999", "hi", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMediaInfoByShortcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p/ABC123/" || r.URL.Query().Get("__a") != "1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		fmt.Fprint(w, `{"items":[{"pk":"31415","code":"ABC123","comment_count":4,"caption":{"text":"hello"}}]}`)
	}))
	defer srv.Close()

	info, err := newTestClient(srv).MediaInfoByShortcode(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("MediaInfoByShortcode failed: %v", err)
	}
	if info.ID != "31415" || info.CommentCount != 4 || info.Caption != "hello" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestMediaInfoByShortcode_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>login</html>")
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).MediaInfoByShortcode(context.Background(), "ABC"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestSettingsRoundTripAndCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session_me.json")

	c := NewClient()
	c.settings.Authorization = "Bearer IGT:2:abc"
	c.settings.Cookies["sessionid"] = "s"
	if err := c.DumpSettings(path); err != nil {
		t.Fatalf("DumpSettings failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	other := NewClient()
	if err := other.LoadSettings(path); err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if other.Settings().Device != c.Settings().Device || other.Settings().Authorization != "Bearer IGT:2:abc" {
		t.Error("loaded settings differ from dumped settings")
	}

	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := other.LoadSettings(path); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings for corrupt file, got %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"uuids":{}}`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := other.LoadSettings(path); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings for incompatible file, got %v", err)
	}
}

func TestResetSettingsRegeneratesDevice(t *testing.T) {
	c := NewClient()
	before := c.Settings().Device
	c.settings.Authorization = "x"
	c.ResetSettings()
	if c.Settings().Authorization != "" {
		t.Error("authorization should be cleared")
	}
	if c.Settings().Device == before {
		t.Error("device identifiers should be regenerated")
	}
}
