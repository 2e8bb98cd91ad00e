package operation

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusRunning, false},
		{StatusPaused, false},
		{StatusCancelled, true},
		{StatusFinished, true},
		{StatusFailed, true},
		{StatusUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusRunning, StatusPaused, true},
		{StatusPaused, StatusRunning, true},
		{StatusRunning, StatusRunning, true}, // idempotent resume
		{StatusPaused, StatusPaused, true},   // idempotent pause
		{StatusRunning, StatusCancelled, true},
		{StatusPaused, StatusCancelled, true},
		{StatusRunning, StatusFinished, true},
		{StatusPaused, StatusFinished, false},
		{StatusRunning, StatusFailed, true},
		{StatusPaused, StatusFailed, true},
		{StatusFinished, StatusRunning, false},
		{StatusCancelled, StatusRunning, false},
		{StatusFailed, StatusPaused, false},
		{StatusFinished, StatusCancelled, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	id := "8b8f7a3e-1111-2222-3333-444455556666"
	if got := MetaKey(id); got != "op:"+id+":meta" {
		t.Fatalf("MetaKey = %q", got)
	}
	parsed, ok := ParseMetaKey(MetaKey(id))
	if !ok || parsed != id {
		t.Fatalf("ParseMetaKey = %q, %v", parsed, ok)
	}
}

func TestParseMetaKeyRejects(t *testing.T) {
	for _, key := range []string{
		"",
		"op:abc:progress",
		"op:abc:result",
		"req-1",
		"op::meta",
		"abc:meta",
	} {
		if _, ok := ParseMetaKey(key); ok {
			t.Errorf("ParseMetaKey(%q) accepted", key)
		}
	}
}

func TestMetaJSONShape(t *testing.T) {
	m := Meta{
		Status:      StatusRunning,
		Duration:    5,
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Annotations: map[string]string{"demo": "true"},
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var back Meta
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Status != StatusRunning || back.Duration != 5 || back.Annotations["demo"] != "true" {
		t.Fatalf("round trip lost fields: %+v", back)
	}
	if !back.CreatedAt.Equal(m.CreatedAt) {
		t.Fatalf("created_at changed: %v", back.CreatedAt)
	}
}
