package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/scheduler"
)

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Run one memory decay pass now",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := settings()
		s, err := openMemory(cfg)
		if err != nil {
			exitErr("open memory store", err)
		}
		defer s.Close()

		sched := scheduler.New(s, cfg.DecayInterval, nil)
		res, err := sched.ForceDecay(context.Background())
		if err != nil {
			exitErr("decay", err)
		}
		printJSON(res)
	},
}

func init() {
	RootCmd.AddCommand(decayCmd)
}
