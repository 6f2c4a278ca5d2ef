// Package deploy talks to the external deploy platform. Every call carries
// an explicit timeout and failures surface as upstream errors; callers are
// expected to degrade rather than block on this service.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
)

// DefaultTimeout bounds every call to the platform.
const DefaultTimeout = 10 * time.Second

// Client implements sitehub.DeployService over the platform's HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a deploy platform client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
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

var _ sitehub.DeployService = (*Client)(nil)

func upstreamErr(op string, err error) *sitehub.Error {
	return &sitehub.Error{
		Code: sitehub.EUpstream,
		Msg:  "deploy platform request failed",
		Op:   op,
		Err:  err,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		// Retries on the caller side must not double-provision.
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("deploy platform returned %s", resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// CreateProject registers a project for siteID on the platform.
func (c *Client) CreateProject(ctx context.Context, siteID string, env map[string]string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]interface{}{
		"name": siteID,
		"env":  env,
	}
	if err := c.do(ctx, http.MethodPost, "/projects", body, &out); err != nil {
		return "", upstreamErr("deploy.CreateProject", err)
	}
	return out.ID, nil
}

// TriggerDeployment starts a deployment of the given project.
func (c *Client) TriggerDeployment(ctx context.Context, projectID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]interface{}{
		"project": projectID,
	}
	if err := c.do(ctx, http.MethodPost, "/deployments", body, &out); err != nil {
		return "", upstreamErr("deploy.TriggerDeployment", err)
	}
	return out.ID, nil
}

// DeploymentStatus polls the platform for a site's latest deployment state.
func (c *Client) DeploymentStatus(ctx context.Context, siteID string) (*sitehub.DeployStatus, error) {
	var out struct {
		State     string `json:"state"`
		ProjectID string `json:"projectId"`
		DeployID  string `json:"deploymentId"`
	}
	path := "/deployments/latest?site=" + url.QueryEscape(siteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, upstreamErr("deploy.DeploymentStatus", err)
	}
	return &sitehub.DeployStatus{
		SiteID:    siteID,
		State:     sitehub.DeployState(out.State),
		ProjectID: out.ProjectID,
		DeployID:  out.DeployID,
	}, nil
}
