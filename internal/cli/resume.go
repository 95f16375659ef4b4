package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resumeTokens int

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Generate resumption context for a paused or crashed session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		rc, err := s.GenerateResumptionContext(context.Background(), args[0], resumeTokens)
		if err != nil {
			exitErr("resumption context", err)
		}
		if formatFlag == "text" {
			fmt.Print(rc.Text)
			return
		}
		printJSON(rc)
	},
}

func init() {
	resumeCmd.Flags().IntVar(&resumeTokens, "tokens", 4000, "Token budget for the context blob")
	RootCmd.AddCommand(resumeCmd)
}
