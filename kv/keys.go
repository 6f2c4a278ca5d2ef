package kv

// Key layout for the flat namespace. Frozen for compatibility with existing
// deployments; changing any prefix orphans live data.
//
//	site:{siteId}:client    published content document
//	site:{siteId}:settings  private settings (password hash, billing ids)
//	site:{siteId}:media     ordered media list
//	site:{siteId}:deploy    cached deployment status
//	session:{token}         admin session record
//	csrf:{token}            CSRF token paired with the session
const (
	SitePrefix = "site:"

	clientSuffix   = ":client"
	settingsSuffix = ":settings"
	mediaSuffix    = ":media"
	deploySuffix   = ":deploy"
)

// SiteClient returns the content key for siteID.
func SiteClient(siteID string) string { return SitePrefix + siteID + clientSuffix }

// SiteSettings returns the settings key for siteID.
func SiteSettings(siteID string) string { return SitePrefix + siteID + settingsSuffix }

// SiteMedia returns the media list key for siteID.
func SiteMedia(siteID string) string { return SitePrefix + siteID + mediaSuffix }

// SiteDeploy returns the deploy status key for siteID.
func SiteDeploy(siteID string) string { return SitePrefix + siteID + deploySuffix }

// SiteIDFromClientKey extracts the site id from a content key, or "" when
// the key is not a content key.
func SiteIDFromClientKey(key string) string {
	if len(key) <= len(SitePrefix)+len(clientSuffix) {
		return ""
	}
	if key[:len(SitePrefix)] != SitePrefix || key[len(key)-len(clientSuffix):] != clientSuffix {
		return ""
	}
	return key[len(SitePrefix) : len(key)-len(clientSuffix)]
}
