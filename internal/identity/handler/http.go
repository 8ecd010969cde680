// Package handler exposes the auth flows over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coursedesk/backend/internal/identity/service"
	"coursedesk/backend/internal/oauth"
	"coursedesk/backend/internal/pkce"
	"coursedesk/backend/internal/server/middleware"
	"coursedesk/backend/internal/session"
	"coursedesk/backend/internal/telemetry"
	telemetrydomain "coursedesk/backend/internal/telemetry/domain"
)

const telemetrySource = "auth"

// AuthFlows is the service surface the handler needs for password and
// session operations.
type AuthFlows interface {
	Login(ctx context.Context, email, password string, client session.ClientContext) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, client session.ClientContext) (*service.AuthResult, error)
	Logout(ctx context.Context, refreshToken string, client session.ClientContext) error
	Sessions(ctx context.Context, userID string) ([]service.SessionInfo, error)
	LogoutAll(ctx context.Context, userID string, client session.ClientContext) error
}

// GoogleFlows is the service surface the handler needs for Google sign-in.
type GoogleFlows interface {
	BeginGoogleAuthorization(ctx context.Context) (*pkce.Authorization, error)
	ClaimAttempt(ctx context.Context, state string) (*oauth.Attempt, error)
	CompleteGoogleCallback(ctx context.Context, code, state string, attempt *oauth.Attempt, client session.ClientContext) (*service.AuthResult, error)
}

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	auth    AuthFlows
	google  GoogleFlows
	emitter telemetry.EventEmitter
	logger  *zap.Logger
}

// NewAuthHandler returns an AuthHandler. emitter may be nil; logger may be nil.
func NewAuthHandler(auth AuthFlows, google GoogleFlows, emitter telemetry.EventEmitter, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthHandler{auth: auth, google: google, emitter: emitter, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
	UserID           string `json:"user_id"`
	Role             string `json:"role"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, clientContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.emit(c, "login_success", res)
	c.JSON(http.StatusOK, newTokenResponse(res))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, clientContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.emit(c, "refresh", res)
	c.JSON(http.StatusOK, newTokenResponse(res))
}

// Logout handles POST /auth/logout. Always 204 for auth-class failures:
// logging out an unknown token is success.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken, clientContext(c)); err != nil {
		h.writeError(c, err)
		return
	}
	telemetry.EmitAsync(h.emitter, c.Request.Context(), telemetrydomain.NewEvent("logout", telemetrySource, "", ""))
	c.Status(http.StatusNoContent)
}

// GoogleAuthorize handles GET /auth/google/authorize: starts the flow and
// redirects the browser to Google.
func (h *AuthHandler) GoogleAuthorize(c *gin.Context) {
	authz, err := h.google.BeginGoogleAuthorization(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authz.URL)
}

// GoogleCallback handles GET /auth/google/callback: claims the pending
// attempt for the state and completes the sign-in.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	// Google uses query params for GET callbacks and form fields for
	// response_mode=form_post.
	state := c.Query("state")
	if state == "" {
		state = c.PostForm("state")
	}
	code := c.Query("code")
	if code == "" {
		code = c.PostForm("code")
	}

	attempt, err := h.google.ClaimAttempt(c.Request.Context(), state)
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.google.CompleteGoogleCallback(c.Request.Context(), code, state, attempt, clientContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.emit(c, "oauth_login", res)
	c.JSON(http.StatusOK, newTokenResponse(res))
}

type sessionResponse struct {
	ID        string `json:"id"`
	UserAgent string `json:"user_agent"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
	Live      bool   `json:"live"`
}

// Sessions handles GET /auth/sessions (protected).
func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
		return
	}
	list, err := h.auth.Sessions(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, sessionResponse{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt.Format(timeFormat),
			ExpiresAt: s.ExpiresAt.Format(timeFormat),
			Live:      s.Live,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RevokeSessions handles DELETE /auth/sessions (protected): signs the caller
// out everywhere.
func (h *AuthHandler) RevokeSessions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
		return
	}
	if err := h.auth.LogoutAll(c.Request.Context(), userID, clientContext(c)); err != nil {
		h.writeError(c, err)
		return
	}
	telemetry.EmitAsync(h.emitter, c.Request.Context(), telemetrydomain.NewEvent("logout", telemetrySource, userID, ""))
	c.Status(http.StatusNoContent)
}

const timeFormat = time.RFC3339

func newTokenResponse(res *service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt.Format(timeFormat),
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt.Format(timeFormat),
		UserID:           res.UserID,
		Role:             string(res.Role),
	}
}

func clientContext(c *gin.Context) session.ClientContext {
	return session.ClientContext{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

func (h *AuthHandler) emit(c *gin.Context, eventType string, res *service.AuthResult) {
	telemetry.EmitAsync(h.emitter, c.Request.Context(), telemetrydomain.NewEvent(eventType, telemetrySource, res.UserID, res.SessionID))
}

// writeError maps a flow error to an HTTP status. Internal detail goes to the
// log; the response body carries only the client-safe message.
func (h *AuthHandler) writeError(c *gin.Context, err error) {
	var status int
	switch service.Classify(err) {
	case service.ClassValidation:
		status = http.StatusBadRequest
	case service.ClassAuthentication:
		status = http.StatusUnauthorized
	case service.ClassConfiguration:
		status = http.StatusNotImplemented
	default:
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		h.logger.Error("auth flow failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": service.ClientMessage(err)})
}
