package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"docqa/config"
	"docqa/internal/adapter/memstore"
	"docqa/internal/domain"
	"docqa/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page on a local port",
	Long: `Start a local web server with a chat page over the knowledge base.

Examples:
  docqa serve
  docqa serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Web.Addr = serveAddr
	}

	a, err := openServeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.agent.Ready(ctx); err != nil {
		log.Warn("knowledge base not ready, questions will fail until it is built", "error", err)
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           web.NewServer(cfg, a.agent, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("Serving %s on http://%s (Ctrl-C to stop)\n", cfg.Web.Title, cfg.Web.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openServeApp starts on an empty store when nothing has been built yet, so
// the page loads and questions answer with the build hint.
func openServeApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := openApp(ctx, cfg)
	if errors.Is(err, domain.ErrStoreNotBuilt) {
		return newApp(ctx, cfg, memstore.NewMemoryStore())
	}
	return a, err
}
