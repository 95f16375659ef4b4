// Package cli implements the arbor-core CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arborapp/arbor-core/internal/config"
	"github.com/arborapp/arbor-core/internal/journal"
	"github.com/arborapp/arbor-core/internal/memstore"
	"github.com/arborapp/arbor-core/internal/summarize"
)

var (
	journalDBPath string
	memoryDBPath  string
	configPath    string
	formatFlag    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "arbor-core",
	Short: "Work journal and scoped memory for AI agents",
	Long:  "Persistence core for agent memory: an append-only work journal with checkpoints and resumption, and a scoped memory store with layered retrieval and decay. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&journalDBPath, "journal-db", "", "Journal database path (default: $ARBOR_JOURNAL_DB or ~/.arbor/journal.db)")
	RootCmd.PersistentFlags().StringVar(&memoryDBPath, "memory-db", "", "Memory database path (default: $ARBOR_MEMORY_DB or ~/.arbor/memory.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func settings() *config.Settings {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			exitErr("read config", err)
		}
	}
	cfg := config.Load(v)
	if journalDBPath != "" {
		cfg.JournalDBPath = journalDBPath
	}
	if memoryDBPath != "" {
		cfg.MemoryDBPath = memoryDBPath
	}
	return cfg
}

func newSummarizer(cfg *config.Settings) summarize.Summarizer {
	if !cfg.UseAISummarization || cfg.AnthropicAPIKey == "" {
		return summarize.Heuristic{}
	}
	ai, err := summarize.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.SummarizeTimeout)
	if err != nil {
		return summarize.Heuristic{}
	}
	return summarize.NewFallback(ai, summarize.Heuristic{}, nil)
}

func openJournal(cfg *config.Settings) (*journal.Store, error) {
	return journal.Open(cfg.JournalDBPath, journal.Options{
		Summarizer:     newSummarizer(cfg),
		EntryThreshold: cfg.CheckpointEntryThreshold,
		TokenThreshold: cfg.CheckpointTokenThreshold,
		Retention:      cfg.SessionRetention,
	})
}

func openMemory(cfg *config.Settings) (*memstore.Store, error) {
	return memstore.Open(cfg.MemoryDBPath, memstore.Options{
		DecayAfter:      cfg.DecayAfter,
		DeleteBelow:     cfg.DeleteBelow,
		DeleteAfter:     cfg.DeleteAfter,
		CompactAfter:    cfg.CompactAfter,
		CompactMinChars: cfg.CompactMinChars,
	})
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode output", err)
	}
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
