package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var (
	askQuestion string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a single question",
	Long: `Answer one question from the knowledge base and print the answer with its sources.

Examples:
  docqa ask -q "What is the refund policy?"
  docqa ask -q "Summarise the onboarding guide" --json`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

// AskResult is the JSON form of one answered question.
type AskResult struct {
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	Mode      string               `json:"mode"`
	Sources   []string             `json:"sources"`
	Context   []domain.ScoredChunk `json:"context"`
	ElapsedMs int64                `json:"elapsed_ms"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	turn, err := a.agent.Ask(ctx, askQuestion)
	if err != nil {
		return explain(err)
	}

	if askJSON {
		output, _ := json.MarshalIndent(AskResult{
			Question:  turn.Question,
			Answer:    turn.Answer,
			Mode:      turn.Mode.String(),
			Sources:   turn.Sources(),
			Context:   turn.Context,
			ElapsedMs: turn.Elapsed.Milliseconds(),
		}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(turn.Answer)
	if sources := turn.Sources(); len(sources) > 0 {
		fmt.Println()
		fmt.Println(styles.muted.Render("Sources: " + strings.Join(sources, ", ")))
	}
	return nil
}
