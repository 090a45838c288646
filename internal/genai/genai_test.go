package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func TestComplete_Success(t *testing.T) {
	// Prepare a mock response with one choice
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Hello World"}},
		},
	}
	mock := &mockChatService{resp: mockResp}
	client := &Client{chat: mock, model: "test-model", temperature: 0.8, maxTokens: 60}
	out, err := client.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
	if len(mock.params.Messages) != 2 {
		t.Errorf("expected system and user messages, got %d", len(mock.params.Messages))
	}
	if mock.params.Temperature.Value != 0.8 {
		t.Errorf("expected temperature 0.8, got %v", mock.params.Temperature.Value)
	}
	if mock.params.MaxTokens.Value != 60 {
		t.Errorf("expected max tokens 60, got %v", mock.params.MaxTokens.Value)
	}
}

func TestComplete_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.Complete(context.Background(), "sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	// Empty choices slice
	mockResp := openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{}}
	client := &Client{chat: &mockChatService{resp: mockResp}}
	_, err := client.Complete(context.Background(), "sys", "usr")
	if err != ErrNoChoicesReturned {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey when API key not provided, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.model != DefaultOpenAIModel {
		t.Errorf("expected default model %s, got %s", DefaultOpenAIModel, cli.model)
	}
	if cli.temperature != DefaultTemperature || cli.maxTokens != DefaultMaxTokens {
		t.Errorf("unexpected defaults: temperature=%v max_tokens=%d", cli.temperature, cli.maxTokens)
	}
}

func TestNewClient_Options(t *testing.T) {
	cli, err := NewClient(WithAPIKey("k"), WithModel("gpt-4o-mini"), WithTemperature(0.2), WithMaxTokens(10), WithBaseURL("http://localhost:1234/v1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cli.model != "gpt-4o-mini" || cli.temperature != 0.2 || cli.maxTokens != 10 {
		t.Errorf("options not applied: %+v", cli)
	}
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	_, err := NewCompleter(context.Background(), "claude", WithAPIKey("k"))
	if err == nil || !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Errorf("expected unknown provider error, got %v", err)
	}
}

func TestNewCompleter_DefaultsToOpenAI(t *testing.T) {
	c, err := NewCompleter(context.Background(), "", WithAPIKey("k"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*Client); !ok {
		t.Errorf("expected *Client, got %T", c)
	}
}
