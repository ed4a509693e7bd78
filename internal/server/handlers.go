package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"seraph/internal/jsonx"
	"seraph/internal/observer"
	"seraph/internal/store"
)

// sensorPayload is the body of POST /api/observer/context. Nil fields mean
// "leave unchanged"; the window loop and the OCR loop post disjoint fields.
type sensorPayload struct {
	ActiveWindow    *string            `json:"active_window"`
	ScreenContext   *string            `json:"screen_context"`
	SwitchTimestamp *int64             `json:"switch_timestamp"`
	Observation     *observationDetail `json:"observation"`
}

type observationDetail struct {
	App         string   `json:"app"`
	WindowTitle string   `json:"window_title"`
	Activity    string   `json:"activity"`
	Project     string   `json:"project"`
	Summary     string   `json:"summary"`
	Details     []string `json:"details"`
	Blocked     bool     `json:"blocked"`
}

func (s *Server) handleSensorPost(c *gin.Context) {
	var payload sensorPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	s.manager.ApplySensorPatch(observer.SensorPatch{
		ActiveWindow:  payload.ActiveWindow,
		ScreenContext: payload.ScreenContext,
	})

	if payload.Observation != nil && s.screen != nil {
		obs := payload.Observation
		if obs.App == "" {
			// Tolerate a malformed observation; the sensor patch still counts.
			s.logger.Debug("dropping observation without app name")
		} else {
			ts := time.Now()
			if payload.SwitchTimestamp != nil {
				reported := time.Unix(*payload.SwitchTimestamp, 0)
				// Clamp sensor clocks that are wildly off to server time.
				if drift := time.Since(reported); drift < 24*time.Hour && drift > -24*time.Hour {
					ts = reported
				}
			}
			activity := obs.Activity
			if activity == "" {
				activity = "other"
			}
			var details string
			if len(obs.Details) > 0 {
				if data, err := jsonx.Marshal(obs.Details); err == nil {
					details = string(data)
				}
			}
			err := s.screen.Insert(c.Request.Context(), store.Observation{
				Timestamp:    ts,
				AppName:      obs.App,
				WindowTitle:  obs.WindowTitle,
				ActivityType: activity,
				Project:      obs.Project,
				Summary:      obs.Summary,
				DetailsJSON:  details,
				Blocked:      obs.Blocked,
			})
			if err != nil {
				s.logger.Warn("persisting observation failed: %v", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Get())
}

func (s *Server) handleRefresh(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Refresh(c.Request.Context()))
}

func (s *Server) handleQueuePeek(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	items, err := s.queue.Peek(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, in := range items {
		out = append(out, gin.H{
			"id":                in.ID,
			"content":           in.Content,
			"intervention_type": in.InterventionType,
			"urgency":           in.Urgency,
			"reasoning":         in.Reasoning,
			"created_at":        in.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "insights": out})
}

func (s *Server) handleGetInterruptionMode(c *gin.Context) {
	snapshot := s.manager.Get()
	c.JSON(http.StatusOK, gin.H{
		"mode":                       snapshot.InterruptionMode,
		"attention_budget_remaining": snapshot.AttentionBudgetRemaining,
		"user_state":                 snapshot.UserState,
	})
}

func (s *Server) handlePutInterruptionMode(c *gin.Context) {
	var body struct {
		Mode observer.InterruptionMode `json:"mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !observer.ValidInterruptionMode(body.Mode) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "mode must be one of: focus, balanced, active",
		})
		return
	}

	s.manager.SetInterruptionMode(body.Mode)
	if s.profile != nil {
		if err := s.profile.SetInterruptionMode(c.Request.Context(), body.Mode); err != nil {
			s.logger.Warn("persisting interruption mode failed: %v", err)
		}
	}

	snapshot := s.manager.Get()
	c.JSON(http.StatusOK, gin.H{
		"mode":                       snapshot.InterruptionMode,
		"attention_budget_remaining": snapshot.AttentionBudgetRemaining,
		"user_state":                 snapshot.UserState,
	})
}

func (s *Server) handleGetCaptureMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": s.manager.Get().CaptureMode})
}

func (s *Server) handlePutCaptureMode(c *gin.Context) {
	var body struct {
		Mode observer.CaptureMode `json:"mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !observer.ValidCaptureMode(body.Mode) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "mode must be one of: on_switch, balanced, detailed",
		})
		return
	}

	s.manager.SetCaptureMode(body.Mode)
	if s.profile != nil {
		if err := s.profile.SetCaptureMode(c.Request.Context(), body.Mode); err != nil {
			s.logger.Warn("persisting capture mode failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"mode": body.Mode})
}
