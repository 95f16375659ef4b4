package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/journal"
	"github.com/arborapp/arbor-core/internal/model"
)

var (
	entriesSince      int64
	entriesLimit      int
	entriesTypes      []string
	entriesImportance []string
)

var entriesCmd = &cobra.Command{
	Use:   "entries <session-id>",
	Short: "List a session's journal entries in sequence order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		f := journal.EntryFilter{Since: entriesSince, Limit: entriesLimit}
		for _, t := range entriesTypes {
			f.Types = append(f.Types, model.EntryType(t))
		}
		for _, i := range entriesImportance {
			f.Importance = append(f.Importance, model.Importance(i))
		}

		entries, err := s.GetEntries(context.Background(), args[0], f)
		if err != nil {
			exitErr("get entries", err)
		}
		if formatFlag == "text" {
			for _, e := range entries {
				payload, _ := json.Marshal(e.Content)
				fmt.Printf("#%-4d %-12s %s %s\n", e.SequenceNum, e.Type, e.Timestamp.Format("15:04:05"), payload)
			}
			return
		}
		printJSON(entries)
	},
}

func init() {
	entriesCmd.Flags().Int64Var(&entriesSince, "since", 0, "Only entries after this sequence number (exclusive)")
	entriesCmd.Flags().IntVarP(&entriesLimit, "limit", "n", 0, "Max entries (0 = all)")
	entriesCmd.Flags().StringSliceVar(&entriesTypes, "type", nil, "Filter by entry type (repeatable)")
	entriesCmd.Flags().StringSliceVar(&entriesImportance, "importance", nil, "Filter by importance (repeatable)")
	RootCmd.AddCommand(entriesCmd)
}
