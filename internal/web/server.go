// Package web serves the chat page and its JSON API.
package web

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/usecase"
)

//go:embed static/index.html
var staticFS embed.FS

// Server exposes one agent over HTTP. Questions are answered one at a time.
type Server struct {
	cfg    *config.Config
	agent  *usecase.Agent
	logger *slog.Logger
	engine *gin.Engine

	askMu sync.Mutex

	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	maxSessions int
	tick        uint64
}

// DefaultMaxSessions bounds the transcripts kept in memory. The least
// recently used session is dropped first.
const DefaultMaxSessions = 256

type sessionEntry struct {
	session *usecase.Session
	used    uint64
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type askResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	Mode      string   `json:"mode"`
	SessionID string   `json:"session_id"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

type turnResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Mode     string   `json:"mode"`
}

func NewServer(cfg *config.Config, agent *usecase.Agent, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		agent:    agent,
		logger:   logger,
		sessions:    make(map[string]*sessionEntry),
		maxSessions: DefaultMaxSessions,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.logRequests())
	engine.SetHTMLTemplate(template.Must(template.ParseFS(staticFS, "static/index.html")))

	engine.GET("/", s.index)
	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	{
		api.POST("/ask", s.ask)
		api.GET("/config", s.settings)
		api.GET("/history", s.history)
		api.DELETE("/history", s.clearHistory)
	}
	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Title": s.cfg.Web.Title})
}

func (s *Server) health(c *gin.Context) {
	kb := "ready"
	if _, err := s.agent.Ready(c.Request.Context()); err != nil {
		kb = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "knowledge_base": kb})
}

func (s *Server) settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":           s.cfg.Web.Title,
		"llm_model":       s.cfg.LLM.Model,
		"embedding_model": s.cfg.Embedding.Model,
		"context_mode":    s.agent.Mode().String(),
		"store_backend":   s.cfg.Store.Backend,
		"store_path":      s.cfg.Store.Path,
		"documents_dir":   s.cfg.Documents.Dir,
	})
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	session := s.session(req.SessionID, true)

	s.askMu.Lock()
	turn, err := session.Ask(c.Request.Context(), req.Question)
	s.askMu.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, askResponse{
		Answer:    turn.Answer,
		Sources:   sources(turn),
		Mode:      turn.Mode.String(),
		SessionID: req.SessionID,
		ElapsedMs: turn.Elapsed.Milliseconds(),
	})
}

func (s *Server) history(c *gin.Context) {
	id := c.Query("session_id")
	turns := []turnResponse{}
	if session := s.session(id, false); session != nil {
		for _, t := range session.History() {
			turns = append(turns, turnResponse{
				Question: t.Question,
				Answer:   t.Answer,
				Sources:  sources(&t),
				Mode:     t.Mode.String(),
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "turns": turns})
}

func (s *Server) clearHistory(c *gin.Context) {
	id := c.Query("session_id")
	s.mu.Lock()
	if id == "" {
		s.sessions = make(map[string]*sessionEntry)
	} else {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *Server) session(id string, create bool) *usecase.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	if e, ok := s.sessions[id]; ok {
		e.used = s.tick
		return e.session
	}
	if !create {
		return nil
	}
	if len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}
	e := &sessionEntry{session: usecase.NewSession(id, s.agent, 0), used: s.tick}
	s.sessions[id] = e
	return e.session
}

// evictOldest must be called with mu held.
func (s *Server) evictOldest() {
	var oldest string
	var used uint64
	for id, e := range s.sessions {
		if oldest == "" || e.used < used {
			oldest, used = id, e.used
		}
	}
	delete(s.sessions, oldest)
	s.logger.Debug("dropped idle session", "session_id", oldest)
}

// fail maps agent errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		status = http.StatusBadRequest
	case domain.IsConfigError(err):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("ask failed", "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func sources(t *domain.Turn) []string {
	out := t.Sources()
	if out == nil {
		out = []string{}
	}
	return out
}
