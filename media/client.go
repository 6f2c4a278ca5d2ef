// Package media is the boundary to the external media host. The binary
// upload pipeline lives with the host; the core only needs to delete assets
// when an admin removes them from a gallery.
package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
)

// DefaultTimeout bounds every call to the media host.
const DefaultTimeout = 15 * time.Second

// Client implements sitehub.MediaService over the host's admin API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a media host client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zap.NewNop(),
	}
}

// WithLogger sets the logger on the client.
func (c *Client) WithLogger(log *zap.Logger) {
	c.log = log
}

// WithHTTPClient overrides the underlying http client, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) {
	c.httpClient = h
}

var _ sitehub.MediaService = (*Client)(nil)

// Delete removes the asset with publicID from the host. A host failure is
// fatal to the single delete call it belongs to, nothing more.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return &sitehub.Error{Code: sitehub.EInvalid, Msg: "publicId is required"}
	}

	u := c.baseURL + "/resources/" + url.PathEscape(publicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &sitehub.Error{
			Code: sitehub.EUpstream,
			Msg:  "media host delete failed",
			Err:  err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &sitehub.Error{
			Code: sitehub.EUpstream,
			Msg:  "media host delete failed",
			Err:  fmt.Errorf("media host returned %s", resp.Status),
		}
	}
	return nil
}
