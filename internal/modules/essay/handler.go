package essay

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admitlens/core/internal/middleware"
	"github.com/admitlens/core/internal/models"
	"github.com/admitlens/core/internal/pkg/ratelimit"
	"github.com/admitlens/core/internal/pkg/response"
)

const (
	recentSessionsLimit = 10

	sessionsListLimit  = 30
	sessionsListWindow = 60 * time.Second
)

type feedbackResponse struct {
	Feedback  *models.Feedback `json:"feedback"`
	SessionID string           `json:"sessionId,omitempty"`
}

type saveSessionResponse struct {
	SessionID string           `json:"sessionId"`
	Feedback  *models.Feedback `json:"feedback"`
}

type Handler struct {
	svc     *Service
	limiter *ratelimit.Service
}

func NewHandler(svc *Service, limiter *ratelimit.Service) *Handler {
	return &Handler{svc: svc, limiter: limiter}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/feedback",
		middleware.RateLimit(h.limiter, ratelimit.Options{}),
		middleware.OptionalAuth(),
		h.createFeedback)

	sessions := api.Group("/sessions")
	sessions.GET("",
		middleware.RateLimit(h.limiter, ratelimit.Options{Limit: sessionsListLimit, Window: sessionsListWindow}),
		middleware.Auth(),
		h.listSessions)
	sessions.POST("",
		middleware.RateLimit(h.limiter, ratelimit.Options{}),
		middleware.Auth(),
		h.saveSession)
}

// createFeedback generates (or reuses) feedback; saving is opt-in and only
// honored for authenticated callers.
func (h *Handler) createFeedback(c *gin.Context) {
	var in EssayInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, response.BadRequest("Invalid JSON body", nil))
		return
	}
	if err := ValidateEssayInput(&in); err != nil {
		response.Error(c, err)
		return
	}

	userID := middleware.CurrentUserID(c)
	save := in.Options != nil && in.Options.Save && userID != ""

	res, err := h.svc.Process(c.Request.Context(), in.EssayText, ProcessOptions{
		Save:   save,
		UserID: optionalUserID(userID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, feedbackResponse{Feedback: res.Feedback, SessionID: res.SessionID})
}

// listSessions returns the caller's recent sessions, most recent first.
func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	items, err := h.svc.ListRecent(c.Request.Context(), userID, recentSessionsLimit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"items": items})
}

// saveSession always persists: the endpoint exists for signed-in users to
// keep a history.
func (h *Handler) saveSession(c *gin.Context) {
	var in EssayInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, response.BadRequest("Invalid JSON body", nil))
		return
	}
	if err := ValidateEssayInput(&in); err != nil {
		response.Error(c, err)
		return
	}

	userID := middleware.CurrentUserID(c)
	res, err := h.svc.Process(c.Request.Context(), in.EssayText, ProcessOptions{
		Save:   true,
		UserID: optionalUserID(userID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, saveSessionResponse{SessionID: res.SessionID, Feedback: res.Feedback})
}

func optionalUserID(userID string) *string {
	if userID == "" {
		return nil
	}
	return &userID
}
