package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, knowledge base and service status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	fmt.Println(styles.section.Render("Configuration"))
	fmt.Printf("  Documents:    %s (%v)\n", cfg.Documents.Dir, cfg.Documents.Extensions)
	fmt.Printf("  Chunking:     %d chars, %d overlap\n", cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap)
	fmt.Printf("  Store:        %s at %s\n", cfg.Store.Backend, cfg.Store.Path)
	fmt.Printf("  Context mode: %s, top %d, %d token budget\n", cfg.Agent.ContextMode, cfg.Agent.TopK, cfg.Agent.TokenBudget)

	fmt.Println()
	fmt.Println(styles.section.Render("Knowledge base"))
	a, err := openApp(ctx, cfg)
	if err != nil {
		fmt.Printf("  %s %v\n", styles.err.Render("unavailable:"), err)
		return exitError{}
	}
	defer a.Close()

	m, readyErr := a.agent.Ready(ctx)
	if m != nil {
		fmt.Printf("  Built:        %s\n", m.BuiltAt.Local().Format(time.RFC1123))
		fmt.Printf("  Documents:    %d\n", m.Documents)
		fmt.Printf("  Chunks:       %d\n", m.Chunks)
		fmt.Printf("  Embeddings:   %s (%d dimensions)\n", m.EmbeddingModel, m.Dimension)
		if stale, why := store.StaleSettings(m, cfg); stale {
			fmt.Printf("  %s %s\n", styles.warn.Render("stale:"), why)
		}
	} else {
		fmt.Printf("  %s %v\n", styles.err.Render("not ready:"), readyErr)
	}

	fmt.Println()
	fmt.Println(styles.section.Render("Services"))
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	embOK := printPing("Embeddings", cfg.Embedding.Model, a.embedder.Ping(pingCtx))
	llmOK := printPing("Language model", cfg.LLM.Model, a.llm.Ping(pingCtx))

	if readyErr != nil || !embOK || !llmOK {
		return exitError{}
	}
	return nil
}

func printPing(name, model string, err error) bool {
	if err != nil {
		fmt.Printf("  %-15s %s %s: %v\n", name, model, styles.err.Render("unreachable"), err)
		return false
	}
	fmt.Printf("  %-15s %s %s\n", name, model, styles.ok.Render("ok"))
	return true
}
