package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMonitorStateIsTerminal(t *testing.T) {
	tests := []struct {
		state MonitorState
		want  bool
	}{
		{StateIdle, false},
		{StateResolvingTarget, false},
		{StateInitialLoad, false},
		{StatePolling, false},
		{StateStopped, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestErrorTaxonomyIsDistinct(t *testing.T) {
	sentinels := []error{ErrAuthentication, ErrTargetResolution, ErrTransientService, ErrGeneration}
	for i, a := range sentinels {
		wrapped := fmt.Errorf("context: %w", a)
		for j, b := range sentinels {
			if got := errors.Is(wrapped, b); got != (i == j) {
				t.Errorf("errors.Is(%v, %v) = %v", wrapped, b, got)
			}
		}
	}
}

func TestCommentOmitsUnknownCreationTime(t *testing.T) {
	data, err := json.Marshal(Comment{ID: "1", Author: "ali", Text: "nice"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "created_at") {
		t.Errorf("created_at should be omitted when unknown: %s", data)
	}
}
