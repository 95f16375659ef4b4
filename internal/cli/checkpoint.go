package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/journal"
)

var (
	checkpointNoAI   bool
	checkpointTokens int
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <session-id>",
	Short: "Create a manual checkpoint of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		cp, err := s.CreateCheckpoint(context.Background(), args[0], journal.CheckpointOptions{
			Manual:       true,
			TargetTokens: checkpointTokens,
			DisableAI:    checkpointNoAI,
		})
		if err != nil {
			exitErr("create checkpoint", err)
		}
		printJSON(cp)
	},
}

func init() {
	checkpointCmd.Flags().BoolVar(&checkpointNoAI, "no-ai", false, "Use the heuristic summarizer")
	checkpointCmd.Flags().IntVar(&checkpointTokens, "target-tokens", 0, "Summary token budget")
	RootCmd.AddCommand(checkpointCmd)
}
