package sitehub

import (
	"context"
	"time"
)

// DefaultSessionLength is how long an admin session lives from creation.
var DefaultSessionLength = 24 * time.Hour

// ErrSessionNotFound is the error message for a missing session.
const ErrSessionNotFound = "session not found"

// ErrSessionExpired is the error message for an expired session.
const ErrSessionExpired = "session has expired"

var (
	// OpFindSession represents the operation that looks for sessions.
	OpFindSession = "FindSession"
	// OpExpireSession represents the operation that expires sessions.
	OpExpireSession = "ExpireSession"
	// OpCreateSession represents the operation that creates a session for a site admin.
	OpCreateSession = "CreateSession"
)

// Session is one admin login, bound to exactly one tenant. The Key is the
// opaque cookie value; the paired CSRF token is stored alongside it and is
// never part of this record.
type Session struct {
	Key       string    `json:"key"`
	SiteID    string    `json:"siteId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredAt returns an error if the session is expired as of now.
func (s *Session) ExpiredAt(now time.Time) error {
	if now.After(s.ExpiresAt) {
		return &Error{
			Code: EUnauthorized,
			Msg:  ErrSessionExpired,
		}
	}
	return nil
}

// SessionService issues, resolves, and revokes admin sessions together with
// their paired CSRF tokens.
type SessionService interface {
	// CreateSession mints a session for siteID and returns it with the
	// paired CSRF token. It does not verify credentials; callers must have
	// already compared the password.
	CreateSession(ctx context.Context, siteID string) (*Session, string, error)
	// FindSession resolves a session key to its live session.
	FindSession(ctx context.Context, key string) (*Session, error)
	// VerifyCSRF checks supplied against the CSRF token paired with key.
	VerifyCSRF(ctx context.Context, key, supplied string) error
	// ExpireSession revokes a session and its CSRF token. It is idempotent:
	// revoking an absent session is not an error.
	ExpireSession(ctx context.Context, key string) error
}

// PasswordsService manages the site admin password.
type PasswordsService interface {
	SetPassword(ctx context.Context, siteID, password string) error
	ComparePassword(ctx context.Context, siteID, password string) error
}
