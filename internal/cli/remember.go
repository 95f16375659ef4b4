package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/memstore"
	"github.com/arborapp/arbor-core/internal/model"
)

var (
	rememberType       string
	rememberScope      string
	rememberScopeID    string
	rememberSource     string
	rememberConfidence float64
	rememberTags       []string
	rememberPrivacy    string
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openMemory(settings())
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		res, err := s.StoreMemory(context.Background(), memstore.StoreRequest{
			Content:    strings.Join(args, " "),
			Type:       model.MemoryType(rememberType),
			Scope:      model.MemoryScope(rememberScope),
			ScopeID:    rememberScopeID,
			Source:     model.MemorySource(rememberSource),
			Confidence: rememberConfidence,
			Tags:       rememberTags,
			Privacy:    model.PrivacyLevel(rememberPrivacy),
		})
		if err != nil {
			exitErr("store memory", err)
		}
		printJSON(res)
	},
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "fact", "Memory type: preference, fact, context, skill, instruction, relationship")
	rememberCmd.Flags().StringVarP(&rememberScope, "scope", "s", "global", "Scope: global, project, conversation")
	rememberCmd.Flags().StringVar(&rememberScopeID, "scope-id", "", "Scope id (project path or conversation id)")
	rememberCmd.Flags().StringVar(&rememberSource, "source", "user_stated", "Source: user_stated, ai_inferred, agent_stored, system")
	rememberCmd.Flags().Float64VarP(&rememberConfidence, "confidence", "c", 0, "Confidence in [0,1] (default 0.8)")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tag", nil, "Tag (repeatable)")
	rememberCmd.Flags().StringVarP(&rememberPrivacy, "privacy", "p", "normal", "Privacy: always_include, normal, sensitive, never_share")
	RootCmd.AddCommand(rememberCmd)
}
