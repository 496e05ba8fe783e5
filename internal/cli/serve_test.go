package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/config"
	"docqa/internal/logger"
	"docqa/internal/web"
)

func TestServeBeforeBuild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log = logger.Discard()

	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "echo"
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 64
	cfg.Resolve(t.TempDir())

	a, err := openServeApp(context.Background(), cfg)
	require.NoError(t, err, "server starts without a knowledge base")
	defer a.Close()

	_, err = a.agent.Ready(context.Background())
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "anything"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	web.NewServer(cfg, a.agent, log).Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "docqa build")
}
