package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/model"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage work sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <conversation-id> <prompt>",
	Short: "Start a new work session",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		ws, err := s.CreateSession(context.Background(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			exitErr("create session", err)
		}
		if formatFlag == "text" {
			fmt.Println(ws.ID)
			return
		}
		printJSON(ws)
	},
}

var listResumable bool

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		ctx := context.Background()
		var sessions []*model.WorkSession
		if listResumable {
			sessions, err = s.GetResumableSessions(ctx, 20)
		} else {
			sessions, err = s.ListSessions(ctx, 20)
		}
		if err != nil {
			exitErr("list sessions", err)
		}
		if formatFlag == "text" {
			for _, ws := range sessions {
				fmt.Printf("%s  %-9s  %4d entries  %s\n", ws.ID, ws.Status, ws.EntryCount, ws.ConversationID)
			}
			return
		}
		printJSON(sessions)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		ws, err := s.GetSession(context.Background(), args[0])
		if err != nil {
			exitErr("get session", err)
		}
		printJSON(ws)
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <session-id> <active|paused|completed|crashed>",
	Short: "Transition a session's status",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		if err := s.UpdateSessionStatus(context.Background(), args[0], model.SessionStatus(args[1])); err != nil {
			exitErr("update status", err)
		}
		fmt.Printf("session %s -> %s\n", args[0], args[1])
	},
}

var sessionCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete terminal sessions past the retention window",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		n, err := s.CleanupOldSessions(context.Background())
		if err != nil {
			exitErr("cleanup", err)
		}
		fmt.Printf("deleted %d sessions\n", n)
	},
}

func init() {
	sessionListCmd.Flags().BoolVar(&listResumable, "resumable", false, "Only paused and crashed sessions")
	sessionCmd.AddCommand(sessionStartCmd, sessionListCmd, sessionShowCmd, sessionStatusCmd, sessionCleanupCmd)
	RootCmd.AddCommand(sessionCmd)
}
