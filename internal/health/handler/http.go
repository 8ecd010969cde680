// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Handler answers health probes. db may be nil; then readiness only reports
// the process as up.
type Handler struct {
	db *sql.DB
}

// NewHandler returns a health handler backed by db.
func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

// Healthz handles GET /healthz: 200 when the process and its database are
// reachable, 503 otherwise.
func (h *Handler) Healthz(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
