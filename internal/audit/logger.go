// Package audit records best-effort audit events for the auth flows. A
// failed audit write never fails the calling flow.
package audit

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"coursedesk/backend/internal/audit/domain"
	auditrepo "coursedesk/backend/internal/audit/repository"
	"coursedesk/backend/internal/security"
)

// Audit actions recorded by the auth flows.
const (
	ActionLoginSuccess = "login_success"
	ActionLoginFailure = "login_failure"
	ActionOAuthLogin   = "oauth_login"
	ActionRefresh      = "refresh"
	ActionLogout       = "logout"
)

// maxUserAgentLen bounds the stored user agent.
const maxUserAgentLen = 256

// AuditLogger writes a single audit event. userID may be empty when the
// event precedes identification (failed logins). The IP is hashed before
// storage; the raw address never reaches the repository.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, userAgent, ip, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, userAgent, ip, metadata string) {
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  ResourceFor(action),
		UserAgent: truncateUserAgent(userAgent),
		IPHash:    security.HashIP(ip),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s: %v", action, err)
	}
}

// truncateUserAgent cuts the value to at most maxUserAgentLen bytes without
// splitting a rune, so the stored value stays valid UTF-8.
func truncateUserAgent(ua string) string {
	if len(ua) <= maxUserAgentLen {
		return ua
	}
	cut := maxUserAgentLen
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}
