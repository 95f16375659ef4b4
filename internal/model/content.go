package model

import (
	"encoding/json"
	"fmt"
)

// EntryType discriminates the content union of a WorkEntry.
type EntryType string

const (
	EntryThinking    EntryType = "thinking"
	EntryToolResult  EntryType = "tool_result"
	EntryDecision    EntryType = "decision"
	EntryError       EntryType = "error"
	EntryFileWritten EntryType = "file_written"
	EntryFileRead    EntryType = "file_read"
	EntryCheckpoint  EntryType = "checkpoint"
)

// ValidEntryTypes are the entry types with a typed payload. Unknown types
// round-trip through RawContent.
var ValidEntryTypes = map[EntryType]bool{
	EntryThinking:    true,
	EntryToolResult:  true,
	EntryDecision:    true,
	EntryError:       true,
	EntryFileWritten: true,
	EntryFileRead:    true,
	EntryCheckpoint:  true,
}

// ContentVersion is the schema version written into every serialized payload.
const ContentVersion = 1

// EntryContent is the tagged payload union of a WorkEntry. One variant
// exists per entry type.
type EntryContent interface {
	EntryType() EntryType
}

// ThinkingContent records a reasoning step.
type ThinkingContent struct {
	Text string `json:"text"`
}

func (ThinkingContent) EntryType() EntryType { return EntryThinking }

// ToolResultContent records a tool invocation and its output.
type ToolResultContent struct {
	ToolName string `json:"tool_name"`
	Input    string `json:"input,omitempty"`
	Output   string `json:"output"`
	IsError  bool   `json:"is_error,omitempty"`
}

func (ToolResultContent) EntryType() EntryType { return EntryToolResult }

// DecisionContent records a choice the agent committed to.
type DecisionContent struct {
	Question     string `json:"question"`
	ChosenOption string `json:"chosen_option"`
	Reasoning    string `json:"reasoning,omitempty"`
}

func (DecisionContent) EntryType() EntryType { return EntryDecision }

// ErrorContent records a failure the agent observed.
type ErrorContent struct {
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable,omitempty"`
}

func (ErrorContent) EntryType() EntryType { return EntryError }

// FileWrittenContent records a file the agent created or modified.
type FileWrittenContent struct {
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

func (FileWrittenContent) EntryType() EntryType { return EntryFileWritten }

// FileReadContent records a file the agent inspected.
type FileReadContent struct {
	Path string `json:"path"`
}

func (FileReadContent) EntryType() EntryType { return EntryFileRead }

// CheckpointContent marks the journal position of a persisted checkpoint.
type CheckpointContent struct {
	CheckpointID string `json:"checkpoint_id"`
	Summary      string `json:"summary"`
}

func (CheckpointContent) EntryType() EntryType { return EntryCheckpoint }

// RawContent preserves the payload of an entry type this build does not
// know, so the journal replays losslessly across versions.
type RawContent struct {
	Type    EntryType       `json:"-"`
	Payload json.RawMessage `json:"-"`
}

func (r RawContent) EntryType() EntryType { return r.Type }

type contentEnvelope struct {
	V       int             `json:"v"`
	Type    EntryType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalContent serializes an entry payload into its versioned envelope.
func MarshalContent(c EntryContent) ([]byte, error) {
	var payload json.RawMessage
	if raw, ok := c.(RawContent); ok {
		payload = raw.Payload
	} else {
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", c.EntryType(), err)
		}
		payload = b
	}
	return json.Marshal(contentEnvelope{V: ContentVersion, Type: c.EntryType(), Payload: payload})
}

// UnmarshalContent decodes a serialized envelope back into the typed union.
// The entryType column is authoritative when the envelope disagrees.
func UnmarshalContent(entryType EntryType, data []byte) (EntryContent, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %s envelope: %w", entryType, err)
	}
	payload := env.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}

	decode := func(dst EntryContent) (EntryContent, error) {
		if err := json.Unmarshal(payload, dst); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", entryType, err)
		}
		return dst, nil
	}

	switch entryType {
	case EntryThinking:
		c, err := decode(&ThinkingContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*ThinkingContent), nil
	case EntryToolResult:
		c, err := decode(&ToolResultContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*ToolResultContent), nil
	case EntryDecision:
		c, err := decode(&DecisionContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*DecisionContent), nil
	case EntryError:
		c, err := decode(&ErrorContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*ErrorContent), nil
	case EntryFileWritten:
		c, err := decode(&FileWrittenContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*FileWrittenContent), nil
	case EntryFileRead:
		c, err := decode(&FileReadContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*FileReadContent), nil
	case EntryCheckpoint:
		c, err := decode(&CheckpointContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*CheckpointContent), nil
	default:
		return RawContent{Type: entryType, Payload: payload}, nil
	}
}
