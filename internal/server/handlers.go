package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appshell-dev/appshell/internal/authflow"
	"github.com/appshell-dev/appshell/internal/identity"
	"github.com/appshell-dev/appshell/internal/menu"
	"github.com/appshell-dev/appshell/internal/persist"
	"github.com/appshell-dev/appshell/internal/store"
)

// SessionResponse is the current auth session
type SessionResponse struct {
	Status    store.Status `json:"status"`
	UserID    string       `json:"user_id,omitempty"`
	UserEmail string       `json:"user_email,omitempty"`
	Loading   bool         `json:"loading"`
}

// AuthResponse is returned by the sign-in and sign-out endpoints
type AuthResponse struct {
	Session      SessionResponse `json:"session"`
	Notification string          `json:"notification,omitempty"`
}

// MenuResponse describes the side menu
type MenuResponse struct {
	IsOpen bool        `json:"is_open"`
	Items  []menu.Item `json:"items"`
}

// UpdateMenuRequest opens or closes the side menu
type UpdateMenuRequest struct {
	IsOpen *bool `json:"is_open" binding:"required"`
}

// NotificationsQuery bounds the notification listing
type NotificationsQuery struct {
	Limit int `form:"limit" binding:"min=1,max=100"`
}

// NotificationResponse is one recorded notification
type NotificationResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) session() SessionResponse {
	session := s.app.Session()
	return SessionResponse{
		Status:    session.Status,
		UserID:    session.UserID,
		UserEmail: session.UserEmail,
		Loading:   session.Status == store.StatusLoading,
	}
}

// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/session [get]
func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session())
}

// @Summary Sign in
// @Description Signs in, creating the account when the email is unknown
// @Tags auth
// @Accept json
// @Produce json
// @Param request body authflow.SignInRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/signin [post]
func (s *Server) signIn(c *gin.Context) {
	var req authflow.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.app.Coordinator.SignIn(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, authflow.ErrNotRunning) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Auth flow is not running"})
			return
		}
		// client went away before the attempt settled
		s.logger.Warn().Err(err).Msg("Sign in wait interrupted")
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Sign in interrupted"})
		return
	}

	session := s.session()
	if outcome.Superseded {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Superseded by a newer sign in",
			"session": session,
		})
		return
	}
	if outcome.Message != authflow.SignInSuccessMessage {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   outcome.Message,
			"session": session,
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Session:      session,
		Notification: outcome.Message,
	})
}

// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 502 {object} map[string]interface{}
// @Router /api/auth/signout [post]
func (s *Server) signOut(c *gin.Context) {
	outcome, err := s.app.Coordinator.SignOut(c.Request.Context())
	if err != nil {
		if errors.Is(err, authflow.ErrNotRunning) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Auth flow is not running"})
			return
		}
		s.logger.Error().Err(err).Msg("Sign out failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   identity.Message(err),
			"session": s.session(),
		})
		return
	}

	// a superseded sign-out settled with the newer one and has no message
	c.JSON(http.StatusOK, AuthResponse{
		Session:      s.session(),
		Notification: outcome.Message,
	})
}

func (s *Server) menuResponse() MenuResponse {
	return MenuResponse{
		IsOpen: s.app.Menu.IsOpen(),
		Items:  s.app.Menu.Items(),
	}
}

// @Summary Side menu state
// @Tags menu
// @Produce json
// @Success 200 {object} MenuResponse
// @Router /api/menu [get]
func (s *Server) getMenu(c *gin.Context) {
	c.JSON(http.StatusOK, s.menuResponse())
}

// @Summary Open or close the side menu
// @Tags menu
// @Accept json
// @Produce json
// @Param request body UpdateMenuRequest true "Menu state"
// @Success 200 {object} MenuResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/menu [patch]
func (s *Server) updateMenu(c *gin.Context) {
	var req UpdateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if *req.IsOpen {
		s.app.Menu.Open()
	} else {
		s.app.Menu.Close()
	}

	c.JSON(http.StatusOK, s.menuResponse())
}

// @Summary Recent notifications
// @Tags notifications
// @Produce json
// @Param limit query int false "Maximum number of notifications (1-100)"
// @Success 200 {array} NotificationResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/notifications [get]
func (s *Server) listNotifications(c *gin.Context) {
	query := NotificationsQuery{Limit: 20}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := persist.ListNotifications(c.Request.Context(), s.app.DB, query.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]NotificationResponse, len(records))
	for i, r := range records {
		response[i] = NotificationResponse{
			ID:        r.ID,
			Message:   r.Message,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}
