package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborapp/arbor-core/internal/model"
)

var (
	logType       string
	logImportance string
	logTool       string
	logInput      string
	logOutput     string
	logQuestion   string
	logOption     string
	logReasoning  string
	logPath       string
	logText       string
	logPayload    string
)

var logCmd = &cobra.Command{
	Use:   "log <session-id>",
	Short: "Append an entry to a session's journal",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := buildContent()
		if err != nil {
			exitErr("build entry", err)
		}

		s, err := openJournal(settings())
		if err != nil {
			exitErr("open journal", err)
		}
		defer s.Close()

		entry, err := s.LogEntry(context.Background(), args[0], content, model.Importance(logImportance))
		if err != nil {
			exitErr("log entry", err)
		}
		if formatFlag == "text" {
			fmt.Printf("#%d %s\n", entry.SequenceNum, entry.Type)
			return
		}
		printJSON(entry)
	},
}

func buildContent() (model.EntryContent, error) {
	switch model.EntryType(logType) {
	case model.EntryThinking:
		return model.ThinkingContent{Text: logText}, nil
	case model.EntryToolResult:
		return model.ToolResultContent{ToolName: logTool, Input: logInput, Output: logOutput}, nil
	case model.EntryDecision:
		return model.DecisionContent{Question: logQuestion, ChosenOption: logOption, Reasoning: logReasoning}, nil
	case model.EntryError:
		return model.ErrorContent{Message: logText}, nil
	case model.EntryFileWritten:
		return model.FileWrittenContent{Path: logPath, Summary: logText}, nil
	case model.EntryFileRead:
		return model.FileReadContent{Path: logPath}, nil
	default:
		if logPayload == "" {
			return nil, fmt.Errorf("unknown type %q requires --payload", logType)
		}
		return model.RawContent{Type: model.EntryType(logType), Payload: json.RawMessage(logPayload)}, nil
	}
}

func init() {
	logCmd.Flags().StringVarP(&logType, "type", "t", "thinking", "Entry type")
	logCmd.Flags().StringVarP(&logImportance, "importance", "i", "normal", "Importance: low, normal, high, critical")
	logCmd.Flags().StringVar(&logTool, "tool", "", "Tool name (tool_result)")
	logCmd.Flags().StringVar(&logInput, "input", "", "Tool input (tool_result)")
	logCmd.Flags().StringVar(&logOutput, "output", "", "Tool output (tool_result)")
	logCmd.Flags().StringVar(&logQuestion, "question", "", "Question decided (decision)")
	logCmd.Flags().StringVar(&logOption, "option", "", "Chosen option (decision)")
	logCmd.Flags().StringVar(&logReasoning, "reasoning", "", "Reasoning (decision)")
	logCmd.Flags().StringVar(&logPath, "path", "", "File path (file_written, file_read)")
	logCmd.Flags().StringVar(&logText, "text", "", "Free text (thinking, error, file summary)")
	logCmd.Flags().StringVar(&logPayload, "payload", "", "Raw JSON payload for unknown types")
	RootCmd.AddCommand(logCmd)
}
