package tenant

import (
	"github.com/entry-nets/sitehub"
)

var (
	// ErrSiteNotFound is when the target site has no content record.
	ErrSiteNotFound = &sitehub.Error{
		Code: sitehub.ENotFound,
		Msg:  "site not found",
	}

	// ErrSiteExists is used when attempting to create a site whose id is
	// already taken. The existing site's content is never overwritten.
	ErrSiteExists = &sitehub.Error{
		Code: sitehub.EConflict,
		Msg:  "a site with this id already exists",
	}

	// ErrProtectedSite is returned for deletion of a reserved tenant.
	ErrProtectedSite = &sitehub.Error{
		Code: sitehub.EForbidden,
		Msg:  "this site cannot be deleted",
	}

	// ErrTemplateMissing is when the designated template site has no
	// content to clone from.
	ErrTemplateMissing = &sitehub.Error{
		Code: sitehub.ENotFound,
		Msg:  "template site content is missing",
	}

	// ErrMediaNotFound is when a media entry with the given public id is
	// not on the site's media list.
	ErrMediaNotFound = &sitehub.Error{
		Code: sitehub.ENotFound,
		Msg:  "media item not found",
	}
)

// ErrIncompleteDelete reports a cascading deletion that attempted every key
// but could not remove all of them.
func ErrIncompleteDelete(err error) *sitehub.Error {
	return &sitehub.Error{
		Code: sitehub.EUnavailable,
		Msg:  "site deletion incomplete",
		Err:  err,
	}
}
