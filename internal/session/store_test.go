package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"coursedesk/backend/internal/security"
	"coursedesk/backend/internal/session/domain"
)

type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *memorySessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memorySessionRepo) GetLiveByTokenHash(_ context.Context, hash string, now time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshTokenHash == hash && s.RevokedAt == nil && s.ExpiresAt.After(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memorySessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memorySessionRepo) UpdateRefreshToken(_ context.Context, id, hash string, expiresAt time.Time, userAgent, ipHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	s.RefreshTokenHash = hash
	s.ExpiresAt = expiresAt
	s.UserAgent = userAgent
	s.IPHash = ipHash
	s.RevokedAt = nil
	return nil
}

func (r *memorySessionRepo) ListByUser(_ context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memorySessionRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.RevokedAt == nil {
		t := at
		s.RevokedAt = &t
	}
	return nil
}

func (r *memorySessionRepo) RevokeAllByUser(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			t := at
			s.RevokedAt = &t
		}
	}
	return nil
}

func newTestStore(repo *memorySessionRepo, at time.Time) *Store {
	st := NewStore(repo, 14*24*time.Hour)
	st.now = func() time.Time { return at }
	return st
}

func TestPersistSessionStoresHashNotToken(t *testing.T) {
	repo := newMemorySessionRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newTestStore(repo, now)

	token, err := security.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	cred, sessionID, err := st.PersistSession(context.Background(), "user-1", token, ClientContext{UserAgent: "cli/1.0", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if cred.RefreshToken != token {
		t.Fatal("expected raw token returned to caller")
	}
	if want := now.Add(14 * 24 * time.Hour); !cred.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, cred.ExpiresAt)
	}

	stored := repo.sessions[sessionID]
	if stored == nil {
		t.Fatal("expected session persisted")
	}
	if stored.RefreshTokenHash == token {
		t.Fatal("raw token must not be stored")
	}
	if stored.RefreshTokenHash != security.HashValue(token) {
		t.Fatal("expected stored hash to match token hash")
	}
	if stored.IPHash == "10.0.0.1" {
		t.Fatal("raw IP must not be stored")
	}
}

func TestPersistSessionTruncatesLongUserAgent(t *testing.T) {
	repo := newMemorySessionRepo()
	st := newTestStore(repo, time.Now().UTC())

	ua := strings.Repeat("x", 1000)
	_, sessionID, err := st.PersistSession(context.Background(), "user-1", "tok", ClientContext{UserAgent: ua})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if got := len(repo.sessions[sessionID].UserAgent); got != maxUserAgentLen {
		t.Fatalf("expected user agent truncated to %d, got %d", maxUserAgentLen, got)
	}
}

func TestPersistSessionTruncationKeepsValidUTF8(t *testing.T) {
	repo := newMemorySessionRepo()
	st := newTestStore(repo, time.Now().UTC())

	ua := strings.Repeat("€", 100)
	_, sessionID, err := st.PersistSession(context.Background(), "user-1", "tok", ClientContext{UserAgent: ua})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	stored := repo.sessions[sessionID].UserAgent
	if len(stored) > maxUserAgentLen {
		t.Fatalf("expected at most %d bytes, got %d", maxUserAgentLen, len(stored))
	}
	if !utf8.ValidString(stored) {
		t.Fatal("truncated user agent must remain valid UTF-8")
	}
}

func TestFindLiveByTokenMatchesOnlyCurrentToken(t *testing.T) {
	repo := newMemorySessionRepo()
	now := time.Now().UTC()
	st := newTestStore(repo, now)

	_, sessionID, err := st.PersistSession(context.Background(), "user-1", "old-token", ClientContext{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	found, err := st.FindLiveByToken(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.ID != sessionID {
		t.Fatal("expected current token to resolve the session")
	}

	if _, err := st.RotateSession(context.Background(), sessionID, "new-token", ClientContext{}); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	found, err = st.FindLiveByToken(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found != nil {
		t.Fatal("superseded token must not resolve")
	}

	found, err = st.FindLiveByToken(context.Background(), "new-token")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil {
		t.Fatal("rotated token must resolve")
	}
}

func TestRotateSessionRestartsExpiryWindow(t *testing.T) {
	repo := newMemorySessionRepo()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newTestStore(repo, start)

	_, sessionID, err := st.PersistSession(context.Background(), "user-1", "tok-a", ClientContext{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	later := start.Add(3 * 24 * time.Hour)
	st.now = func() time.Time { return later }

	cred, err := st.RotateSession(context.Background(), sessionID, "tok-b", ClientContext{})
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if want := later.Add(14 * 24 * time.Hour); !cred.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry recomputed from rotation time, got %v", cred.ExpiresAt)
	}
}

func TestFindLiveByTokenIgnoresExpiredAndRevoked(t *testing.T) {
	repo := newMemorySessionRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newTestStore(repo, now)

	_, expiredID, err := st.PersistSession(context.Background(), "user-1", "expired-tok", ClientContext{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	_ = expiredID
	_, revokedID, err := st.PersistSession(context.Background(), "user-1", "revoked-tok", ClientContext{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := st.Revoke(context.Background(), revokedID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	st.now = func() time.Time { return now.Add(15 * 24 * time.Hour) }

	for _, tok := range []string{"expired-tok", "revoked-tok"} {
		found, err := st.FindLiveByToken(context.Background(), tok)
		if err != nil {
			t.Fatalf("find %s: %v", tok, err)
		}
		if found != nil {
			t.Fatalf("expected %s to be dead", tok)
		}
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	repo := newMemorySessionRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newTestStore(repo, now)

	_, sessionID, err := st.PersistSession(context.Background(), "user-1", "tok", ClientContext{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	if err := st.Revoke(context.Background(), sessionID); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	first := *repo.sessions[sessionID].RevokedAt

	st.now = func() time.Time { return now.Add(time.Hour) }
	if err := st.Revoke(context.Background(), sessionID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if !repo.sessions[sessionID].RevokedAt.Equal(first) {
		t.Fatal("second revoke must not move revoked_at")
	}
}

func TestRevokeByTokenUnknownTokenIsNoop(t *testing.T) {
	repo := newMemorySessionRepo()
	st := newTestStore(repo, time.Now().UTC())

	if err := st.RevokeByToken(context.Background(), "never-issued"); err != nil {
		t.Fatalf("expected no error for unknown token, got %v", err)
	}
}
