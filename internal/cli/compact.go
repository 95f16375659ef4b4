package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var compactLimit int

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Memory compaction",
}

var compactCandidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List memories eligible for compaction",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openMemory(settings())
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		printJSON(s.GetCompactionCandidates(context.Background(), compactLimit))
	},
}

var compactApplyCmd = &cobra.Command{
	Use:   "apply <memory-id> <summary>",
	Short: "Record a summary for a memory",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openMemory(settings())
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		if err := s.ApplyCompaction(context.Background(), args[0], strings.Join(args[1:], " ")); err != nil {
			exitErr("apply compaction", err)
		}
		fmt.Printf("compacted %s\n", args[0])
	},
}

// compact run summarizes each candidate through the configured
// summarizer (AI when available, heuristic otherwise) and applies the
// result.
var compactRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Summarize and compact eligible memories",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := settings()
		s, err := openMemory(cfg)
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		ctx := context.Background()
		summarizer := newSummarizer(cfg)
		done := 0
		for _, m := range s.GetCompactionCandidates(ctx, compactLimit) {
			summary, err := summarizer.CompactText(ctx, m.Content, cfg.CompactMinChars)
			if err != nil {
				fmt.Printf("skip %s: %v\n", m.ID, err)
				continue
			}
			if err := s.ApplyCompaction(ctx, m.ID, summary); err != nil {
				fmt.Printf("skip %s: %v\n", m.ID, err)
				continue
			}
			done++
		}
		fmt.Printf("compacted %d memories\n", done)
	},
}

func init() {
	compactCmd.PersistentFlags().IntVarP(&compactLimit, "limit", "n", 20, "Max candidates")
	compactCmd.AddCommand(compactCandidatesCmd, compactApplyCmd, compactRunCmd)
	RootCmd.AddCommand(compactCmd)
}
