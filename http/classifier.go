package http

import (
	"net/http"
	"net/url"
	"strings"
)

// Classification says which behavior a shared read endpoint applies.
type Classification int

const (
	// Public is a visitor fetch of the rendered site's own content.
	Public Classification = iota
	// Admin is a dashboard-origin request and gets the full session checks.
	Admin
)

func (c Classification) String() string {
	if c == Admin {
		return "admin"
	}
	return "public"
}

// adminPathPrefix is the dashboard's mount point in the frontend.
const adminPathPrefix = "/admin"

// Classify decides whether a request came from the admin dashboard or from
// a rendered public site. The explicit query parameter wins; otherwise the
// referrer path decides.
//
// A Public classification short-circuits reads to the public path even when
// a session cookie is present; that bypass is intentional (the rendered site
// fetches its own content without a login) and is only ever consulted for
// reads. Mutating handlers never call Classify.
func Classify(r *http.Request) Classification {
	if r.URL.Query().Get("admin") == "true" {
		return Admin
	}

	ref := r.Referer()
	if ref == "" {
		return Public
	}
	u, err := url.Parse(ref)
	if err != nil {
		return Public
	}
	if strings.Contains(u.Path, adminPathPrefix) {
		return Admin
	}
	return Public
}
