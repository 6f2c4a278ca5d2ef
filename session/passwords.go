package session

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/kv"
)

// MinPasswordLength is the shortest admin password we allow into the system.
const MinPasswordLength = 6

// HashCost is the bcrypt cost for admin passwords.
const HashCost = 12

var (
	// EIncorrectPassword is returned when any password comparison fails in
	// which we do not want to leak information. A missing site and a wrong
	// password produce the identical error.
	EIncorrectPassword = &sitehub.Error{
		Code: sitehub.EUnauthorized,
		Msg:  "your site id or password is incorrect",
	}

	// EShortPassword is used when a password is less than the minimum
	// acceptable length.
	EShortPassword = &sitehub.Error{
		Code: sitehub.EInvalid,
		Msg:  "passwords must be at least 6 characters long",
	}
)

// HashPassword produces the salted hash stored in a site's settings. It is
// the single hashing primitive in the system; onboarding calls it too.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", EShortPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", &sitehub.Error{Code: sitehub.EInternal, Err: err}
	}
	return string(hash), nil
}

// Passwords implements sitehub.PasswordsService against the settings record.
// The stored hash never crosses this package's boundary.
type Passwords struct {
	store kv.Store
}

// NewPasswords creates the passwords service.
func NewPasswords(store kv.Store) *Passwords {
	return &Passwords{store: store}
}

var _ sitehub.PasswordsService = (*Passwords)(nil)

// SetPassword stores the password hash on the site's settings.
func (p *Passwords) SetPassword(ctx context.Context, siteID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	key := kv.SiteSettings(siteID)
	var settings sitehub.SiteSettings
	if err := kv.GetJSON(ctx, p.store, key, &settings); err != nil {
		if kv.IsNotFound(err) {
			return &sitehub.Error{Code: sitehub.ENotFound, Msg: "site not found"}
		}
		return err
	}
	settings.AdminPasswordHash = hash
	return kv.SetJSON(ctx, p.store, key, &settings, 0)
}

// ComparePassword compares a provided password with the stored hash. Store
// outage propagates as its own failure; everything else collapses into the
// constant-shape EIncorrectPassword.
func (p *Passwords) ComparePassword(ctx context.Context, siteID, password string) error {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return EIncorrectPassword
	}

	var settings sitehub.SiteSettings
	if err := kv.GetJSON(ctx, p.store, kv.SiteSettings(siteID), &settings); err != nil {
		if kv.IsNotFound(err) {
			return EIncorrectPassword
		}
		return err
	}
	if settings.AdminPasswordHash == "" {
		return EIncorrectPassword
	}

	if err := bcrypt.CompareHashAndPassword([]byte(settings.AdminPasswordHash), []byte(password)); err != nil {
		return EIncorrectPassword
	}
	return nil
}
