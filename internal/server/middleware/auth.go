package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coursedesk/backend/internal/security"
)

const bearerPrefix = "bearer "

// Keys set on the gin context by RequireAuth.
const (
	ContextUserID    = "auth_user_id"
	ContextRole      = "auth_role"
	ContextSessionID = "auth_session_id"
)

// RequireAuth validates the Bearer access token and sets the caller's
// identity on the gin context. Requests without a valid token get 401.
func RequireAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		userID, role, sessionID, err := tokens.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID from the gin context.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// SessionID returns the authenticated session's ID from the gin context.
func SessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextSessionID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// extractBearer returns the Bearer token from the header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
