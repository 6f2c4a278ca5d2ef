package session

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/kv"
	"github.com/entry-nets/sitehub/rand"
)

// Storage key prefixes. session:{token} holds the session record and
// csrf:{token} holds the CSRF token paired with it; both are written with
// the same TTL so neither can outlive the other.
const (
	sessionKeyPrefix = "session:"
	csrfKeyPrefix    = "csrf:"
)

func sessionKey(token string) string { return sessionKeyPrefix + token }
func csrfKey(token string) string    { return csrfKeyPrefix + token }

var (
	// ErrSessionNotFound is returned when resolving a key that is absent,
	// expired, or revoked.
	ErrSessionNotFound = &sitehub.Error{
		Code: sitehub.EUnauthorized,
		Msg:  sitehub.ErrSessionNotFound,
	}

	// ErrCSRFMismatch is returned when the supplied CSRF token is missing
	// or does not match the stored pair. It deliberately carries no detail.
	ErrCSRFMismatch = &sitehub.Error{
		Code: sitehub.EForbidden,
		Msg:  "invalid csrf token",
	}
)

// Service implements sitehub.SessionService over a kv.Store.
type Service struct {
	store         kv.Store
	log           *zap.Logger
	sessionLength time.Duration
	tokenGen      *rand.TokenGenerator
	clock         clock.Clock
}

// NewService creates a new session service.
func NewService(store kv.Store, sessionLength time.Duration) *Service {
	if sessionLength <= 0 {
		sessionLength = sitehub.DefaultSessionLength
	}
	return &Service{
		store:         store,
		log:           zap.NewNop(),
		sessionLength: sessionLength,
		tokenGen:      rand.NewTokenGenerator(32),
		clock:         clock.New(),
	}
}

// WithLogger sets the logger on the service.
func (s *Service) WithLogger(log *zap.Logger) {
	s.log = log
}

// WithClock sets the clock used for session lifetimes.
func (s *Service) WithClock(c clock.Clock) {
	s.clock = c
}

var _ sitehub.SessionService = (*Service)(nil)

// CreateSession mints a session and its paired CSRF token for siteID. Both
// records are written with the session TTL attached to the write itself, so
// there is no window where either key exists without an expiry.
func (s *Service) CreateSession(ctx context.Context, siteID string) (*sitehub.Session, string, error) {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return nil, "", err
	}

	token, err := s.tokenGen.Token()
	if err != nil {
		return nil, "", &sitehub.Error{Code: sitehub.EInternal, Op: sitehub.OpCreateSession, Err: err}
	}
	csrf, err := s.tokenGen.Token()
	if err != nil {
		return nil, "", &sitehub.Error{Code: sitehub.EInternal, Op: sitehub.OpCreateSession, Err: err}
	}

	now := s.clock.Now().UTC()
	session := &sitehub.Session{
		Key:       token,
		SiteID:    siteID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionLength),
	}

	if err := kv.SetJSON(ctx, s.store, sessionKey(token), session, s.sessionLength); err != nil {
		return nil, "", err
	}
	if err := s.store.Set(ctx, csrfKey(token), []byte(csrf), s.sessionLength); err != nil {
		// The session record exists but has its TTL; it will age out.
		// Surface the failure so the login attempt fails hard.
		return nil, "", err
	}

	return session, csrf, nil
}

// FindSession resolves a session key to its live session. Store outage and
// missing key are distinguished for callers and logs: an outage must not be
// reported as an auth failure on paths that go on to mutate state.
func (s *Service) FindSession(ctx context.Context, key string) (*sitehub.Session, error) {
	if key == "" {
		return nil, ErrSessionNotFound
	}
	var session sitehub.Session
	if err := kv.GetJSON(ctx, s.store, sessionKey(key), &session); err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		s.log.Error("session lookup failed", zap.String("op", sitehub.OpFindSession), zap.Error(err))
		return nil, err
	}
	if err := session.ExpiredAt(s.clock.Now()); err != nil {
		return nil, err
	}
	return &session, nil
}

// VerifyCSRF checks supplied against the CSRF token paired with key using a
// constant-time comparison.
func (s *Service) VerifyCSRF(ctx context.Context, key, supplied string) error {
	if key == "" || supplied == "" {
		return ErrCSRFMismatch
	}
	stored, err := s.store.Get(ctx, csrfKey(key))
	if err != nil {
		if kv.IsNotFound(err) {
			return ErrCSRFMismatch
		}
		s.log.Error("csrf lookup failed", zap.Error(err))
		return err
	}
	if subtle.ConstantTimeCompare(stored, []byte(supplied)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// ExpireSession revokes a session and its paired CSRF token. Revocation is
// best-effort and idempotent: the client clears its cookie regardless, so a
// failed delete is logged rather than surfaced, and the TTL bounds how long
// an orphaned record can linger.
func (s *Service) ExpireSession(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.store.Del(ctx, sessionKey(key)); err != nil {
		s.log.Warn("failed to delete session record",
			zap.String("op", sitehub.OpExpireSession), zap.Error(err))
	}
	if err := s.store.Del(ctx, csrfKey(key)); err != nil {
		s.log.Warn("failed to delete csrf record",
			zap.String("op", sitehub.OpExpireSession), zap.Error(err))
	}
	return nil
}
