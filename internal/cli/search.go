package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchText string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the chunks retrieved for a question",
	Long: `Run retrieval only, without calling the language model. Useful to check
what context a question would be answered from.

Examples:
  docqa search -q "quarterly budget"
  docqa search -q "deployment steps" --top-k 10 --json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

// SearchResult is a simplified result for CLI output.
type SearchResult struct {
	Source string  `json:"source"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	topK := cfg.Agent.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	chunks, err := a.retriever.Retrieve(ctx, searchText, topK)
	if err != nil {
		return explain(fmt.Errorf("search failed: %w", err))
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, SearchResult{
			Source: c.Chunk.Source,
			Start:  c.Chunk.Start,
			End:    c.Chunk.End,
			Score:  c.Score,
			Text:   c.Chunk.Text,
		})
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Println(styles.label.Render(fmt.Sprintf("--- [%d] %s:%d-%d (score: %.2f) ---", i+1, r.Source, r.Start, r.End, r.Score)))
		text := []rune(r.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
