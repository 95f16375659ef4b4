package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestContentRoundTrip(t *testing.T) {
	cases := []EntryContent{
		ThinkingContent{Text: "considering options"},
		ToolResultContent{ToolName: "bash", Input: "ls", Output: "main.go", IsError: false},
		DecisionContent{Question: "database", ChosenOption: "sqlite", Reasoning: "embedded"},
		ErrorContent{Message: "permission denied", Recoverable: true},
		FileWrittenContent{Path: "internal/app.go", Summary: "added handler"},
		FileReadContent{Path: "go.mod"},
		CheckpointContent{CheckpointID: "01ABC", Summary: "halfway"},
	}

	for _, c := range cases {
		data, err := MarshalContent(c)
		if err != nil {
			t.Fatalf("marshal %s: %v", c.EntryType(), err)
		}
		got, err := UnmarshalContent(c.EntryType(), data)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", c.EntryType(), err)
		}
		if got != c {
			t.Errorf("%s: got %#v, want %#v", c.EntryType(), got, c)
		}
	}
}

func TestContentEnvelopeVersion(t *testing.T) {
	data, err := MarshalContent(ThinkingContent{Text: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var env struct {
		V    int       `json:"v"`
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.V != ContentVersion {
		t.Errorf("expected version %d, got %d", ContentVersion, env.V)
	}
	if env.Type != EntryThinking {
		t.Errorf("expected type thinking, got %s", env.Type)
	}
}

func TestUnknownTypeRoundTrip(t *testing.T) {
	payload := `{"custom_field":42}`
	raw := RawContent{Type: EntryType("future_type"), Payload: json.RawMessage(payload)}

	data, err := MarshalContent(raw)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalContent("future_type", data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, ok := got.(RawContent)
	if !ok {
		t.Fatalf("expected RawContent, got %T", got)
	}
	if !strings.Contains(string(back.Payload), "custom_field") {
		t.Errorf("payload not preserved: %s", back.Payload)
	}
}

func TestClampConfidence(t *testing.T) {
	if got := ClampConfidence(-0.5); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := ClampConfidence(1.5); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := ClampConfidence(0.7); got != 0.7 {
		t.Errorf("expected 0.7, got %v", got)
	}
}
