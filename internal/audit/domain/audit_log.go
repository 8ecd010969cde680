package domain

import "time"

// AuditLog represents an audit event. Client context is stored sanitized:
// the user agent truncated, the IP as a hash.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	UserAgent string
	IPHash    string
	Metadata  string
	CreatedAt time.Time
}
