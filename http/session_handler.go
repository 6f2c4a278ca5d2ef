package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/authorizer"
)

// Cookie and header names are part of the frontend contract.
const (
	cookieAdminToken = "adminToken"
	cookieSiteID     = "siteId"
	csrfHeader       = "X-CSRF-Token"
)

// ErrLoginFailed is the constant-shape login failure: callers cannot tell a
// missing site from a wrong password.
var ErrLoginFailed = &sitehub.Error{
	Code: sitehub.EUnauthorized,
	Msg:  "site id or password is incorrect",
}

// SessionHandler serves login, session validation, and logout.
type SessionHandler struct {
	errors    ErrorHandler
	log       *zap.Logger
	sessions  sitehub.SessionService
	passwords sitehub.PasswordsService
}

// NewSessionHandler returns a new instance of SessionHandler.
func NewSessionHandler(log *zap.Logger, sessions sitehub.SessionService, passwords sitehub.PasswordsService) *SessionHandler {
	return &SessionHandler{
		log:       log,
		sessions:  sessions,
		passwords: passwords,
	}
}

type loginRequest struct {
	SiteID   string `json:"siteId"`
	Password string `json:"password"`
}

type loginResponse struct {
	CSRFToken string `json:"csrfToken"`
	SiteID    string `json:"siteId"`
}

// handleLogin is the HTTP handler for POST /api/login.
func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.HandleHTTPError(ctx, ErrLoginFailed, w)
		return
	}

	if err := h.passwords.ComparePassword(ctx, req.SiteID, req.Password); err != nil {
		// Store outage must surface as an availability failure, not as a
		// rejected login.
		if sitehub.ErrorCode(err) == sitehub.EUnavailable {
			h.errors.HandleHTTPError(ctx, err, w)
			return
		}
		h.errors.HandleHTTPError(ctx, ErrLoginFailed, w)
		return
	}

	session, csrf, err := h.sessions.CreateSession(ctx, req.SiteID)
	if err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	setSessionCookies(w, session)
	_ = encodeResponse(ctx, w, http.StatusOK, loginResponse{
		CSRFToken: csrf,
		SiteID:    session.SiteID,
	})
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	SiteID string `json:"siteId,omitempty"`
}

// handleValidate is the HTTP handler for GET /api/validate. It reports
// whether the presented cookie is a live session for the queried site; it
// never errors on an invalid session, it just answers no.
func (h *SessionHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := r.URL.Query().Get("siteId")

	key := sessionKeyFromCookie(r)
	if key == "" || siteID == "" {
		_ = encodeResponse(ctx, w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	session, err := h.sessions.FindSession(ctx, key)
	if err != nil || session.SiteID != siteID {
		_ = encodeResponse(ctx, w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	_ = encodeResponse(ctx, w, http.StatusOK, validateResponse{Valid: true, SiteID: session.SiteID})
}

// handleLogout is the HTTP handler for POST /api/logout. Logout is
// idempotent: no cookie, an unknown session, or a store failure all still
// clear the client's cookies and answer success.
func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if key := sessionKeyFromCookie(r); key != "" {
		if err := h.sessions.ExpireSession(ctx, key); err != nil {
			h.log.Warn("session revocation failed during logout", zap.Error(err))
		}
	}

	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// sessionKeyFromCookie extracts the admin session key, or "".
func sessionKeyFromCookie(r *http.Request) string {
	c, err := r.Cookie(cookieAdminToken)
	if err != nil {
		return ""
	}
	return c.Value
}

// credentialFromRequest gathers everything a request presented for the
// authorizer to judge.
func credentialFromRequest(r *http.Request) authorizer.Credential {
	cred := authorizer.Credential{
		SessionKey: sessionKeyFromCookie(r),
		CSRFToken:  r.Header.Get(csrfHeader),
	}
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		cred.Bearer = strings.TrimPrefix(v, "Bearer ")
	}
	return cred
}

func setSessionCookies(w http.ResponseWriter, s *sitehub.Session) {
	maxAge := int(time.Until(s.ExpiresAt) / time.Second)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAdminToken,
		Value:    s.Key,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	// The siteId cookie is read by the dashboard frontend; it is not a
	// credential.
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSiteID,
		Value:    s.SiteID,
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{cookieAdminToken, cookieSiteID} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}
