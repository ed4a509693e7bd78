// Package server exposes the engine over HTTP: sensor ingestion, observer
// state, settings, and the websocket push channel.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"seraph/internal/broadcast"
	"seraph/internal/chat"
	"seraph/internal/logging"
	"seraph/internal/observer"
	"seraph/internal/store"
)

// Config holds the listener settings.
type Config struct {
	Host  string
	Port  int
	Debug bool
}

// Server wires the HTTP surface over the engine's components.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	manager     *observer.Manager
	coordinator *observer.Coordinator
	queue       observer.InsightQueue
	hub         *broadcast.Hub
	screen      *store.ScreenStore
	profile     *store.ProfileStore
	sessions    *store.SessionStore
	chat        *chat.Service
	logger      logging.Logger
}

// Deps bundles the components the routes talk to. Optional fields (screen,
// profile, sessions, chat) may be nil; the routes that need them degrade.
type Deps struct {
	Manager     *observer.Manager
	Coordinator *observer.Coordinator
	Queue       observer.InsightQueue
	Hub         *broadcast.Hub
	Screen      *store.ScreenStore
	Profile     *store.ProfileStore
	Sessions    *store.SessionStore
	Chat        *chat.Service
}

// New builds the server over deps.
func New(cfg Config, deps Deps, logger logging.Logger) *Server {

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		manager:     deps.Manager,
		coordinator: deps.Coordinator,
		queue:       deps.Queue,
		hub:         deps.Hub,
		screen:      deps.Screen,
		profile:     deps.Profile,
		sessions:    deps.Sessions,
		chat:        deps.Chat,
		logger:      logging.OrNop(logger),
	}
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     engine,
		ReadTimeout: 30 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)

	obs := api.Group("/observer")
	obs.POST("/context", s.handleSensorPost)
	obs.GET("/state", s.handleState)
	obs.POST("/refresh", s.handleRefresh)
	obs.GET("/queue", s.handleQueuePeek)

	settings := api.Group("/settings")
	settings.GET("/interruption-mode", s.handleGetInterruptionMode)
	settings.PUT("/interruption-mode", s.handlePutInterruptionMode)
	settings.GET("/capture-mode", s.handleGetCaptureMode)
	settings.PUT("/capture-mode", s.handlePutCaptureMode)

	if s.chat != nil {
		api.POST("/chat", s.handleChat)
	}
	if s.sessions != nil {
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id/messages", s.handleSessionMessages)
	}

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the gin engine for httptest servers.
func (s *Server) Handler() http.Handler { return s.engine }

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": s.hub.Count(),
	})
}
