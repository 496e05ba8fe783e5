package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive loop",
	Long: `Start an interactive question loop over the knowledge base. Each line is a
question; type exit or quit (or press Ctrl-D) to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.agent.Ready(ctx); err != nil {
		return err
	}

	session := usecase.NewSession("cli", a.agent, 0)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	return chatLoop(ctx, session, os.Stdin, os.Stdout, interactive, cfg.LLM.Model)
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit":
		return true
	}
	return false
}

// chatLoop reads one question per line until exit, quit or end of input.
// Errors are printed and the loop continues.
func chatLoop(ctx context.Context, session *usecase.Session, in io.Reader, out io.Writer, interactive bool, model string) error {
	if interactive {
		fmt.Fprintln(out, styles.title.Render("docqa")+styles.muted.Render(" · model "+model+" · type 'exit' to quit"))
		fmt.Fprintln(out)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(out, styles.label.Render("You: "))
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(out)
			}
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if isExit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if line == "" {
			fmt.Fprintln(out, "Please enter a question.")
			continue
		}

		turn, err := session.Ask(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(out, styles.err.Render("Error:"), explain(err))
			continue
		}

		fmt.Fprintf(out, "%s %s\n", styles.answer.Render("Assistant:"), turn.Answer)
		if sources := turn.Sources(); len(sources) > 0 {
			fmt.Fprintln(out, styles.muted.Render("Sources: "+strings.Join(sources, ", ")))
		}
		fmt.Fprintln(out)
	}
}

// explain adds what the user can do about an agent error.
func explain(err error) error {
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return fmt.Errorf("%w (is Ollama running?)", err)
	}
	return err
}
