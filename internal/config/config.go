// Package config loads runtime settings with viper-backed defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings holds every tunable of the journal and memory stores.
type Settings struct {
	JournalDBPath string
	MemoryDBPath  string

	// Auto-checkpoint policy.
	CheckpointEntryThreshold int
	CheckpointTokenThreshold int

	// Session retention for cleanup of terminal sessions.
	SessionRetention time.Duration

	// Decay and deletion thresholds.
	DecayInterval time.Duration
	DecayAfter    time.Duration
	DeleteBelow   float64
	DeleteAfter   time.Duration

	// Compaction candidate selection.
	CompactAfter    time.Duration
	CompactMinChars int

	// AI summarization gateway.
	UseAISummarization bool
	AnthropicAPIKey    string
	AnthropicModel     string
	SummarizeTimeout   time.Duration
}

// Load reads settings from the given viper instance, applying defaults for
// anything unset. Environment variables override with an ARBOR_ prefix
// (e.g. ARBOR_JOURNAL_DB). A nil viper gets a fresh instance.
func Load(v *viper.Viper) *Settings {
	if v == nil {
		v = viper.New()
	}

	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".arbor")

	v.SetDefault("journal_db", filepath.Join(dataDir, "journal.db"))
	v.SetDefault("memory_db", filepath.Join(dataDir, "memory.db"))
	v.SetDefault("checkpoint_entry_threshold", 50)
	v.SetDefault("checkpoint_token_threshold", 8000)
	v.SetDefault("session_retention_days", 90)
	v.SetDefault("decay_interval_hours", 24)
	v.SetDefault("decay_after_hours", 24)
	v.SetDefault("delete_below_confidence", 0.15)
	v.SetDefault("delete_after_days", 7)
	v.SetDefault("compact_after_days", 30)
	v.SetDefault("compact_min_chars", 200)
	v.SetDefault("use_ai_summarization", true)
	v.SetDefault("anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("summarize_timeout_seconds", 30)

	v.SetEnvPrefix("ARBOR")
	v.AutomaticEnv()

	return &Settings{
		JournalDBPath:            v.GetString("journal_db"),
		MemoryDBPath:             v.GetString("memory_db"),
		CheckpointEntryThreshold: v.GetInt("checkpoint_entry_threshold"),
		CheckpointTokenThreshold: v.GetInt("checkpoint_token_threshold"),
		SessionRetention:         time.Duration(v.GetInt("session_retention_days")) * 24 * time.Hour,
		DecayInterval:            time.Duration(v.GetInt("decay_interval_hours")) * time.Hour,
		DecayAfter:               time.Duration(v.GetInt("decay_after_hours")) * time.Hour,
		DeleteBelow:              v.GetFloat64("delete_below_confidence"),
		DeleteAfter:              time.Duration(v.GetInt("delete_after_days")) * 24 * time.Hour,
		CompactAfter:             time.Duration(v.GetInt("compact_after_days")) * 24 * time.Hour,
		CompactMinChars:          v.GetInt("compact_min_chars"),
		UseAISummarization:       v.GetBool("use_ai_summarization"),
		AnthropicAPIKey:          v.GetString("anthropic_api_key"),
		AnthropicModel:           v.GetString("anthropic_model"),
		SummarizeTimeout:         time.Duration(v.GetInt("summarize_timeout_seconds")) * time.Second,
	}
}
