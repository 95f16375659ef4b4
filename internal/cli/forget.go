package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var forgetAll bool

var forgetCmd = &cobra.Command{
	Use:   "forget [memory-id]",
	Short: "Delete a memory, or everything with --all",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openMemory(settings())
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		ctx := context.Background()
		if forgetAll {
			if err := s.ClearAll(ctx); err != nil {
				exitErr("clear memories", err)
			}
			fmt.Println("all memories deleted")
			return
		}
		if len(args) != 1 {
			exitErr("forget", fmt.Errorf("memory id required (or --all)"))
		}
		if err := s.DeleteMemory(ctx, args[0]); err != nil {
			exitErr("delete memory", err)
		}
		fmt.Printf("deleted %s\n", args[0])
	},
}

func init() {
	forgetCmd.Flags().BoolVar(&forgetAll, "all", false, "Delete every memory")
	RootCmd.AddCommand(forgetCmd)
}
