package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"qabot/internal/usecase"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation in the terminal. Each line is one turn.

Commands:
  /history   show the transcript so far
  /reset     clear the transcript
  /quit      leave (Ctrl-D works too)

With a redis or sqlite session backend, --session resumes an earlier
conversation.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume the session with this id")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{progress: true})
	if err != nil {
		return err
	}
	defer a.Close()

	rephraser, err := a.rephraser(ctx)
	if err != nil {
		return err
	}

	store, err := newSessionStore(ctx, a.cfg, a.root)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	session := usecase.NewSession()
	if chatSession != "" {
		session = usecase.ResumeSession(chatSession)
	}

	chat := usecase.NewChatUseCase(a.retrieve, rephraser, store)
	return repl(ctx, chat, session, os.Stdin, os.Stdout)
}

// repl reads one turn per line until EOF or /quit.
func repl(ctx context.Context, chat *usecase.ChatUseCase, session *usecase.Session, in io.Reader, out io.Writer) error {
	history, err := chat.History(ctx, session)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		fmt.Fprintf(out, "Resumed session %s (%d turns)\n", session.ID, len(history))
	} else {
		fmt.Fprintf(out, "Session %s. Ask me anything... (/quit to leave)\n", session.ID)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			turns, err := chat.History(ctx, session)
			if err != nil {
				fmt.Fprintf(out, "Could not load history: %v\n", err)
				continue
			}
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] %s\n", t.Role, t.Content)
			}
			continue
		case "/reset":
			if err := chat.Reset(ctx, session); err != nil {
				fmt.Fprintf(out, "Could not reset: %v\n", err)
			} else {
				fmt.Fprintln(out, "Transcript cleared.")
			}
			continue
		}

		res, err := chat.Turn(ctx, session, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Reply.Content)
		fmt.Fprintln(out)
	}
}
