package cli

import (
	"bufio"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long: `Starts an interactive session that holds one conversation across
questions, so follow-ups resolve against the terms of earlier turns.

Session commands:
  /history   show the retained turns of this conversation
  /reset     discard the conversation and start fresh
  exit       leave the session (also: quit, Ctrl-D)`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	cmd.Println("Ansera chat. Ask about the people, roles and teams in the knowledge base.")
	cmd.Println("Type 'exit' to leave, '/reset' to start over.")
	cmd.Println()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	conversationID := ""

	for {
		if err := cmd.Context().Err(); err != nil {
			return nil
		}

		cmd.Print("You: ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "exit", "quit":
			cmd.Println("Bye.")
			return nil
		case "/reset":
			if conversationAdmin != nil && conversationID != "" {
				conversationAdmin.Reset(conversationID)
			}
			conversationID = ""
			cmd.Println("Conversation reset.")
			continue
		case "/history":
			printHistory(cmd, conversationID)
			continue
		}

		answer, err := answerService.Ask(cmd.Context(), line, conversationID)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			continue
		}
		conversationID = answer.ConversationID

		cmd.Println()
		cmd.Printf("Ansera: %s\n", answer.Text)
		for _, c := range answer.Citations {
			ref := c.SourceRef
			if ref == "" {
				ref = c.SnippetID
			}
			cmd.Printf("  [%d] %s\n", c.Marker, ref)
		}
		cmd.Println()
	}
}

func printHistory(cmd *cobra.Command, conversationID string) {
	if conversationAdmin == nil || conversationID == "" {
		cmd.Println("No conversation yet.")
		return
	}
	turns, ok := conversationAdmin.History(conversationID)
	if !ok || len(turns) == 0 {
		cmd.Println("No conversation yet.")
		return
	}
	for _, turn := range turns {
		cmd.Printf("%3d  You: %s\n", turn.Index, turn.Query)
		cmd.Printf("     Ansera: %s\n", truncate(turn.Answer, 120))
	}
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
