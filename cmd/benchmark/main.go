package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/store"
	"docqa/internal/logger"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding the knowledge base")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./notes -q \"query\"")
		fmt.Println("\nChecks:")
		fmt.Println("  1. Embedding service and knowledge base agree on the model")
		fmt.Println("  2. Semantic similarity of the top matches")
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(*dir)
	log := logger.Discard()

	st, err := store.Open(ctx, cfg, store.Options{ReadOnly: true, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening knowledge base: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := embedding.New(cfg.Embedding, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	m, err := st.Manifest(ctx)
	if err == nil {
		err = store.CheckManifest(m, embedder.ModelName())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Knowledge base not usable: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d from %d documents\n", m.Chunks, m.Documents)
	fmt.Printf("Model: %s (%s)\n", m.EmbeddingModel, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", m.Dimension)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	queryVec, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Query embedded: %d dimensions\n\n", len(queryVec[0]))

	results, err := st.Search(ctx, queryVec[0], *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}

	fmt.Printf("Top %d semantic matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Chunk.Text, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		totalScore += r.Score

		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s #%d\n", i+1, rating, r.Score, filepath.Base(r.Chunk.Source), r.Chunk.Index)
		fmt.Printf("   %s\n\n", string(preview))
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - semantic search working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - try a different embedding model or chunk size")
	}
}
