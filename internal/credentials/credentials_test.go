package credentials

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestStore_PasswordRoundTrip(t *testing.T) {
	keyring.MockInit()
	s := NewStore("")

	if got := s.Password("ali"); got != "" {
		t.Errorf("expected empty password before storing, got %q", got)
	}
	if err := s.SetPassword("ali", "s3cret"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if got := s.Password("ali"); got != "s3cret" {
		t.Errorf("Password = %q, want s3cret", got)
	}
	if got := s.Password("bilal"); got != "" {
		t.Errorf("passwords must be per account, got %q", got)
	}
}

func TestStore_APIKeysPerProvider(t *testing.T) {
	keyring.MockInit()
	s := NewStore("commentpipe-test")

	if err := s.SetAPIKey("openai", "sk-1"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := s.SetAPIKey("gemini", "g-2"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if s.APIKey("openai") != "sk-1" || s.APIKey("gemini") != "g-2" {
		t.Errorf("unexpected keys openai=%q gemini=%q", s.APIKey("openai"), s.APIKey("gemini"))
	}
	if other := NewStore("another-service"); other.APIKey("openai") != "" {
		t.Error("entries must be scoped to the service name")
	}
}

func TestStore_Forget(t *testing.T) {
	keyring.MockInit()
	s := NewStore("")
	_ = s.SetPassword("ali", "pw")
	_ = s.SetAPIKey("openai", "sk")

	if err := s.Forget("ali", "openai", "gemini"); err != nil {
		t.Fatalf("Forget should ignore missing entries, got %v", err)
	}
	if s.Password("ali") != "" || s.APIKey("openai") != "" {
		t.Error("entries should be deleted")
	}
}

func TestStore_KeyringFailure(t *testing.T) {
	boom := errors.New("keyring locked")
	keyring.MockInitWithError(boom)
	s := NewStore("")

	if got := s.Password("ali"); got != "" {
		t.Errorf("unavailable keyring should read as empty, got %q", got)
	}
	if err := s.SetPassword("ali", "pw"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped keyring error, got %v", err)
	}
	if err := s.Forget("ali"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped keyring error, got %v", err)
	}
}
