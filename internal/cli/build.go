package cli

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/parser"
	"docqa/internal/adapter/store"
	"docqa/internal/usecase"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"index"},
	Short:   "Build the knowledge base from the documents directory",
	Long: `Scan the configured documents directory, split every supported file into
chunks, embed them and store them in the knowledge base. The knowledge base is
always rebuilt from scratch; run this again whenever your documents change.

Examples:
  docqa build
  DOCQA_DOCUMENTS_DIR=~/papers docqa build`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	info, err := os.Stat(cfg.Documents.Dir)
	if err != nil {
		return fmt.Errorf("documents directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("documents path is not a directory: %s", cfg.Documents.Dir)
	}

	st, err := store.Open(ctx, cfg, store.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer st.Close()

	emb, err := embedding.New(cfg.Embedding, log)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	if err := emb.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}

	registry, unknown := parser.NewRegistry(cfg.Documents.Extensions)
	for _, ext := range unknown {
		log.Warn("no parser for configured extension", "extension", ext)
	}
	chk, err := chunker.NewCharChunker(cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap)
	if err != nil {
		return err
	}
	walker := fs.NewWalker(cfg.Documents.Excludes, log)

	loader := usecase.NewLoader(walker, registry, chk, log)
	builder := usecase.NewBuilder(cfg, loader, emb, st, log)

	fmt.Printf("Scanning %s...\n", cfg.Documents.Dir)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time
	showBar := term.IsTerminal(int(os.Stdout.Fd()))

	progress := func(processed, total int, currentFile string) {
		if !showBar {
			return
		}
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Building[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 && processed < total {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Building[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := builder.Build(ctx, cfg.Documents.Dir, progress)
	if result != nil {
		printBuildResult(result)
	}
	if err != nil {
		var batchErr *usecase.BatchError
		if errors.As(err, &batchErr) {
			fmt.Println(styles.warn.Render("\nThe knowledge base is incomplete and will not answer questions until a build succeeds."))
		}
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("\nKnowledge base stored at: %s\n", cfg.Store.Path)
	return nil
}

func printBuildResult(result *usecase.BuildResult) {
	fmt.Printf("\n%s\n", styles.section.Render("Build summary"))
	fmt.Printf("  Files read:      %d\n", result.Files)
	fmt.Printf("  Files skipped:   %d (unsupported type)\n", result.Skipped)
	fmt.Printf("  Files failed:    %d\n", len(result.Failed))
	fmt.Printf("  Chunks created:  %d\n", result.Chunks)
	fmt.Printf("  Chunks embedded: %d\n", result.Embedded)
	fmt.Printf("  Elapsed:         %s\n", formatDuration(result.Elapsed))
	if result.Manifest != nil {
		fmt.Printf("  Embedding model: %s (%d dimensions)\n", result.Manifest.EmbeddingModel, result.Manifest.Dimension)
	}

	if len(result.Failed) > 0 || len(result.Unsupported) > 0 {
		fmt.Printf("\n%s\n", styles.warn.Render("Warnings:"))
		for _, f := range result.Failed {
			fmt.Printf("  - %s\n", f.Error())
		}
		for _, path := range result.Unsupported {
			fmt.Printf("  - %s: unsupported file type\n", path)
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
