package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/memstore"
)

var (
	contextConversation string
	contextProject      string
	contextSearch       string
	contextTokens       int
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Assemble prompt-injectable memory context",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openMemory(settings())
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		mc := s.GetContextMemories(context.Background(), memstore.ContextRequest{
			ConversationID: contextConversation,
			ProjectPath:    contextProject,
			SearchText:     contextSearch,
			MaxTokens:      contextTokens,
		})
		if formatFlag == "text" {
			fmt.Print(mc.Text)
			return
		}
		printJSON(mc)
	},
}

func init() {
	contextCmd.Flags().StringVar(&contextConversation, "conversation", "", "Conversation id for the conversation layer")
	contextCmd.Flags().StringVar(&contextProject, "project", "", "Project path for the project layer")
	contextCmd.Flags().StringVar(&contextSearch, "search", "", "Free-text search layer")
	contextCmd.Flags().IntVar(&contextTokens, "tokens", 2000, "Token budget")
	RootCmd.AddCommand(contextCmd)
}
