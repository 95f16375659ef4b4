package model

import "time"

// MemoryType classifies what kind of knowledge a memory holds.
type MemoryType string

const (
	MemoryPreference   MemoryType = "preference"
	MemoryFact         MemoryType = "fact"
	MemoryContext      MemoryType = "context"
	MemorySkill        MemoryType = "skill"
	MemoryInstruction  MemoryType = "instruction"
	MemoryRelationship MemoryType = "relationship"
)

// ValidMemoryTypes are the allowed memory types.
var ValidMemoryTypes = map[MemoryType]bool{
	MemoryPreference:   true,
	MemoryFact:         true,
	MemoryContext:      true,
	MemorySkill:        true,
	MemoryInstruction:  true,
	MemoryRelationship: true,
}

// ContextTypePriority is the fixed rendering order of memory types when
// formatting a prompt-injectable context block.
var ContextTypePriority = []MemoryType{
	MemoryInstruction,
	MemoryPreference,
	MemoryFact,
	MemorySkill,
	MemoryContext,
	MemoryRelationship,
}

// MemoryScope is the visibility boundary of a memory.
type MemoryScope string

const (
	ScopeGlobal       MemoryScope = "global"
	ScopeProject      MemoryScope = "project"
	ScopeConversation MemoryScope = "conversation"
)

// ValidScopes are the allowed memory scopes.
var ValidScopes = map[MemoryScope]bool{
	ScopeGlobal:       true,
	ScopeProject:      true,
	ScopeConversation: true,
}

// MemorySource records where a memory came from.
type MemorySource string

const (
	SourceUserStated  MemorySource = "user_stated"
	SourceAIInferred  MemorySource = "ai_inferred"
	SourceAgentStored MemorySource = "agent_stored"
	SourceSystem      MemorySource = "system"
)

// ValidSources are the allowed memory sources.
var ValidSources = map[MemorySource]bool{
	SourceUserStated:  true,
	SourceAIInferred:  true,
	SourceAgentStored: true,
	SourceSystem:      true,
}

// PrivacyLevel controls whether a memory is always injected, normally
// eligible, exempt from decay (sensitive), or never shared.
type PrivacyLevel string

const (
	PrivacyAlwaysInclude PrivacyLevel = "always_include"
	PrivacyNormal        PrivacyLevel = "normal"
	PrivacySensitive     PrivacyLevel = "sensitive"
	PrivacyNeverShare    PrivacyLevel = "never_share"
)

// ValidPrivacyLevels are the allowed privacy levels.
var ValidPrivacyLevels = map[PrivacyLevel]bool{
	PrivacyAlwaysInclude: true,
	PrivacyNormal:        true,
	PrivacySensitive:     true,
	PrivacyNeverShare:    true,
}

// ArborMemory is one persisted memory record.
type ArborMemory struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Summary     string       `json:"summary,omitempty"`
	Type        MemoryType   `json:"type"`
	Scope       MemoryScope  `json:"scope"`
	ScopeID     string       `json:"scope_id,omitempty"`
	Source      MemorySource `json:"source"`
	Confidence  float64      `json:"confidence"`
	Tags        []string     `json:"tags,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	AccessedAt  time.Time    `json:"accessed_at"`
	AccessCount int          `json:"access_count"`
	DecayRate   float64      `json:"decay_rate"`
	CompactedAt *time.Time   `json:"compacted_at,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Privacy     PrivacyLevel `json:"privacy_level"`
}

// DisplayText returns the compacted summary when one exists, else the
// full content. Used when rendering memories under a token budget.
func (m *ArborMemory) DisplayText() string {
	if m.CompactedAt != nil && m.Summary != "" {
		return m.Summary
	}
	return m.Content
}

// MemoryAccessLog is one append-only access record, kept for analytics.
type MemoryAccessLog struct {
	ID             int64     `json:"id"`
	MemoryID       string    `json:"memory_id"`
	AccessedAt     time.Time `json:"accessed_at"`
	Context        string    `json:"context,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// ClampConfidence bounds a confidence score to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
