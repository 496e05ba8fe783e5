package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/memstore"
	"docqa/internal/logger"
	"docqa/internal/usecase"
)

func newTestSession(t *testing.T) *usecase.Session {
	t.Helper()
	cfg := config.DefaultConfig()
	agent, err := usecase.NewAgent(cfg,
		usecase.NewRetriever(cfg.Agent, memstore.NewMemoryStore(), embedding.NewHashEmbedder(16), logger.Discard()),
		llm.NewEchoLLM(), memstore.NewMemoryStore(), logger.Discard())
	require.NoError(t, err)
	return usecase.NewSession("test", agent, 0)
}

func TestChatLoop(t *testing.T) {
	in := strings.NewReader("\nwhat is in the notes?\nQUIT\nnever read\n")
	var out bytes.Buffer

	err := chatLoop(context.Background(), newTestSession(t), in, &out, false, "echo")
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Please enter a question.")
	assert.Contains(t, got, "docqa build", "unbuilt knowledge base is reported and the loop continues")
	assert.Contains(t, got, "Goodbye!")
	assert.NotContains(t, got, "You: ", "no prompt without a terminal")
}

func TestChatLoopEOF(t *testing.T) {
	var out bytes.Buffer
	err := chatLoop(context.Background(), newTestSession(t), strings.NewReader(""), &out, false, "echo")
	assert.NoError(t, err)
	assert.NotContains(t, out.String(), "Goodbye!")
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"exit", "quit", "Exit", "QUIT"} {
		assert.True(t, isExit(s), s)
	}
	for _, s := range []string{"", "exit now", "q"} {
		assert.False(t, isExit(s), s)
	}
}

func TestBuildThenAsk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "faq.txt"),
		[]byte("Refunds are accepted within thirty days of purchase."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`
llm:
  provider: echo
embedding:
  provider: hash
  dimension: 64
agent:
  context_mode: strict
`), 0o644))

	rootCmd.SetArgs([]string{"build", "--dir", dir})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, filepath.Join(dir, ".docqa", "db", "kb.bolt"))

	rootCmd.SetArgs([]string{"ask", "--dir", dir, "-q", "When are refunds accepted?"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"search", "--dir", dir, "-q", "refunds", "--json"})
	require.NoError(t, rootCmd.Execute())
}

func TestAskBeforeBuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("llm:\n  provider: echo\nembedding:\n  provider: hash\n"), 0o644))

	rootCmd.SetArgs([]string{"ask", "--dir", dir, "-q", "anything"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docqa build")
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	rootCmd.SetArgs([]string{"config", "init", "--dir", dir})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().LLM.Model, cfg.LLM.Model)

	rootCmd.SetArgs([]string{"config", "init", "--dir", dir})
	assert.Error(t, rootCmd.Execute(), "existing file is not overwritten")
}
