package tenant

import (
	_ "embed"
	"encoding/json"

	"github.com/entry-nets/sitehub"
)

// fallbackJSON is a bundled snapshot of the template site's content. Public
// content reads degrade to it when the store is unreachable so the rendered
// site keeps serving something through an outage.
//
//go:embed fallback.json
var fallbackJSON []byte

// FallbackContent parses the bundled content snapshot.
func FallbackContent() (*sitehub.ClientContent, error) {
	var content sitehub.ClientContent
	if err := json.Unmarshal(fallbackJSON, &content); err != nil {
		return nil, &sitehub.Error{
			Code: sitehub.EInternal,
			Msg:  "bundled fallback content is corrupt",
			Err:  err,
		}
	}
	return &content, nil
}
