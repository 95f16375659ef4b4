package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var recallLimit int

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search memories by text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openMemory(settings())
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		memories := s.SearchMemories(context.Background(), strings.Join(args, " "), recallLimit)
		if formatFlag == "text" {
			for _, m := range memories {
				fmt.Printf("%s  [%.2f] %-12s %s\n", m.ID, m.Confidence, m.Type, m.DisplayText())
			}
			return
		}
		printJSON(memories)
	},
}

func init() {
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 20, "Max results")
	RootCmd.AddCommand(recallCmd)
}
