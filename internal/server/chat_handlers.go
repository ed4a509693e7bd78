package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleChat(c *gin.Context) {
	var body struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := s.chat.Respond(c.Request.Context(), body.SessionID, body.Message)
	if err != nil {
		s.logger.Warn("chat turn failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "completion failed"})
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.sessions.RecentSessions(c.Request.Context(), time.Now().AddDate(0, 0, -30), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleSessionMessages(c *gin.Context) {
	msgs, err := s.sessions.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
