package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"coursedesk/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, user_agent, ip_hash, revoked_at, created_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM auth_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetLiveByTokenHash returns the non-revoked, non-expired session for the
// token hash, or nil when no such session exists. A superseded or revoked
// token is indistinguishable from an unknown one.
func (r *PostgresRepository) GetLiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM auth_sessions
		 WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > $2`,
		tokenHash, now)
	return scanSession(row)
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, refresh_token_hash, expires_at, user_agent, ip_hash, revoked_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt,
		nullString(s.UserAgent), nullString(s.IPHash), nullTime(s.RevokedAt), s.CreatedAt)
	return err
}

// UpdateRefreshToken overwrites the session's token hash, expiry, and client
// context and clears revoked_at, all in one UPDATE. Per-row update atomicity
// is what serializes two racing rotations: the last commit wins and the
// loser's token is dead on arrival.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, sessionID, tokenHash string, expiresAt time.Time, userAgent, ipHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions
		 SET refresh_token_hash = $2, expires_at = $3, user_agent = $4, ip_hash = $5, revoked_at = NULL
		 WHERE id = $1`,
		sessionID, tokenHash, expiresAt, nullString(userAgent), nullString(ipHash))
	return err
}

// ListByUser returns every session for the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM auth_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var s domain.Session
		var userAgent, ipHash sql.NullString
		var revokedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &userAgent, &ipHash, &revokedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.UserAgent = userAgent.String
		s.IPHash = ipHash.String
		if revokedAt.Valid {
			t := revokedAt.Time
			s.RevokedAt = &t
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// Revoke marks the session revoked at the given time. Already-revoked rows
// keep their original revoked_at, which makes logout idempotent.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}

// RevokeAllByUser revokes every live session for the given user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`, userID, at)
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var userAgent, ipHash sql.NullString
	var revokedAt sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &userAgent, &ipHash, &revokedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.UserAgent = userAgent.String
	s.IPHash = ipHash.String
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
