package authorizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
)

// OperationClass partitions every request the guard sees. Mutations are
// always AdminWrite; the request classifier may downgrade a read to
// PublicRead but can never reach a mutating handler.
type OperationClass int

const (
	// PublicRead serves a site's published content to any visitor.
	PublicRead OperationClass = iota
	// AdminRead loads content into the editor; cookie session only.
	AdminRead
	// AdminWrite mutates tenant state; cookie session or operator bearer.
	AdminWrite
)

func (c OperationClass) String() string {
	switch c {
	case PublicRead:
		return "public-read"
	case AdminRead:
		return "admin-read"
	case AdminWrite:
		return "admin-write"
	}
	return "unknown"
}

// Credential carries whatever the request presented. Empty fields mean the
// channel was absent.
type Credential struct {
	SessionKey string // adminToken cookie value
	CSRFToken  string // X-CSRF-Token header value
	Bearer     string // Authorization: Bearer value
}

// BearerValidator validates the operator bearer credential.
type BearerValidator interface {
	Validate(token string) error
}

var (
	// ErrUnauthenticated is returned when no credential was presented.
	ErrUnauthenticated = &sitehub.Error{
		Code: sitehub.EUnauthorized,
		Msg:  "authentication required",
	}

	// ErrWrongTenant is returned when a valid session is used against a
	// site other than the one it was minted for. The message never says
	// which site the session actually belongs to.
	ErrWrongTenant = &sitehub.Error{
		Code: sitehub.EForbidden,
		Msg:  "not authorized for this site",
	}
)

// Authorizer is the single choke point deciding whether a request may act on
// a tenant. Every sensitive handler routes its decision through Authorize;
// no handler performs its own cookie or CSRF checks.
type Authorizer struct {
	sessions sitehub.SessionService
	bearer   BearerValidator
	log      *zap.Logger
}

// New creates an Authorizer.
func New(sessions sitehub.SessionService, bearer BearerValidator) *Authorizer {
	return &Authorizer{
		sessions: sessions,
		bearer:   bearer,
		log:      zap.NewNop(),
	}
}

// WithLogger sets the logger on the authorizer.
func (a *Authorizer) WithLogger(log *zap.Logger) {
	a.log = log
}

// Authorize returns nil to allow cred to perform class against targetSiteID,
// or a coded error describing the denial.
//
// Policy:
//
//	PublicRead   no credential, no CSRF
//	AdminRead    session bound to targetSiteID + CSRF
//	AdminWrite   session bound to targetSiteID + CSRF, or operator bearer
func (a *Authorizer) Authorize(ctx context.Context, cred Credential, targetSiteID string, class OperationClass) error {
	if class == PublicRead {
		// Tenant isolation for public reads is structural: the storage key
		// is derived from targetSiteID, so no other tenant's data is
		// reachable here.
		return nil
	}

	if err := sitehub.ValidSiteID(targetSiteID); err != nil {
		return err
	}

	if cred.SessionKey == "" && cred.Bearer == "" {
		return ErrUnauthenticated
	}

	if cred.SessionKey != "" {
		return a.authorizeSession(ctx, cred, targetSiteID, class)
	}

	// Bearer-only path. The operator surface may write but the editor read
	// path stays cookie-bound.
	if class != AdminWrite {
		return ErrUnauthenticated
	}
	if a.bearer == nil {
		return ErrUnauthenticated
	}
	if err := a.bearer.Validate(cred.Bearer); err != nil {
		a.log.Info("bearer credential rejected",
			zap.String("site", targetSiteID), zap.String("class", class.String()))
		return err
	}
	return nil
}

func (a *Authorizer) authorizeSession(ctx context.Context, cred Credential, targetSiteID string, class OperationClass) error {
	session, err := a.sessions.FindSession(ctx, cred.SessionKey)
	if err != nil {
		return err
	}

	// The core tenant-isolation invariant: a session is only ever valid for
	// the one site it was minted for. Checked before CSRF so a forged
	// cross-tenant request never gets a CSRF oracle.
	if session.SiteID != targetSiteID {
		a.log.Warn("cross-tenant request denied",
			zap.String("target", targetSiteID), zap.String("class", class.String()))
		return ErrWrongTenant
	}

	// Cookie-authenticated reads and writes both require the CSRF pair.
	if err := a.sessions.VerifyCSRF(ctx, cred.SessionKey, cred.CSRFToken); err != nil {
		return err
	}

	return nil
}
