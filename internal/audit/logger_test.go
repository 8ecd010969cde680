package audit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"coursedesk/backend/internal/audit/domain"
	"coursedesk/backend/internal/security"
)

type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	failAll bool
}

func (r *memoryAuditRepo) GetByID(_ context.Context, id string) (*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memoryAuditRepo) ListByUser(_ context.Context, userID string, _, _ int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryAuditRepo) Create(_ context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return context.DeadlineExceeded
	}
	r.entries = append(r.entries, a)
	return nil
}

func TestLogEventSanitizesClientContext(t *testing.T) {
	repo := &memoryAuditRepo{}
	logger := NewLogger(repo)

	ua := strings.Repeat("a", 500)
	logger.LogEvent(context.Background(), "user-1", ActionLoginSuccess, ua, "192.0.2.7", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if len(entry.UserAgent) != maxUserAgentLen {
		t.Fatalf("expected user agent truncated to %d, got %d", maxUserAgentLen, len(entry.UserAgent))
	}
	if entry.IPHash == "192.0.2.7" {
		t.Fatal("raw IP must not be stored")
	}
	if entry.IPHash != security.HashIP("192.0.2.7") {
		t.Fatal("expected hashed IP")
	}
	if entry.Resource != "credentials" {
		t.Fatalf("expected resource credentials, got %q", entry.Resource)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatal("expected ID and timestamp populated")
	}
}

func TestLogEventTruncationKeepsValidUTF8(t *testing.T) {
	repo := &memoryAuditRepo{}
	logger := NewLogger(repo)

	ua := strings.Repeat("€", 100)
	logger.LogEvent(context.Background(), "user-1", ActionLoginSuccess, ua, "", "")

	stored := repo.entries[0].UserAgent
	if len(stored) > maxUserAgentLen {
		t.Fatalf("expected at most %d bytes, got %d", maxUserAgentLen, len(stored))
	}
	if !utf8.ValidString(stored) {
		t.Fatal("truncated user agent must remain valid UTF-8")
	}
}

func TestLogEventEmptyIPStaysEmpty(t *testing.T) {
	repo := &memoryAuditRepo{}
	logger := NewLogger(repo)

	logger.LogEvent(context.Background(), "", ActionLoginFailure, "cli/1.0", "", "unknown account")

	if repo.entries[0].IPHash != "" {
		t.Fatal("empty IP must stay empty, not hash to a constant")
	}
}

func TestLogEventSwallowsRepositoryErrors(t *testing.T) {
	logger := NewLogger(&memoryAuditRepo{failAll: true})
	// Must not panic or propagate the failure.
	logger.LogEvent(context.Background(), "user-1", ActionLogout, "", "", "")
}

func TestLogEventNilRepoIsNoop(t *testing.T) {
	logger := NewLogger(nil)
	logger.LogEvent(context.Background(), "user-1", ActionRefresh, "", "", "")
}
