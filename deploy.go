package sitehub

import "context"

// DeployState is the deploy platform's view of a site's last deployment.
type DeployState string

const (
	DeployBuilding DeployState = "building"
	DeployReady    DeployState = "ready"
	DeployError    DeployState = "error"
)

// DeployStatus is the cached/polled deployment state for one site.
type DeployStatus struct {
	SiteID    string      `json:"siteId"`
	State     DeployState `json:"state"`
	ProjectID string      `json:"projectId,omitempty"`
	DeployID  string      `json:"deploymentId,omitempty"`
}

// DeployService provisions sites on the external deploy platform. Every call
// is best-effort from the caller's perspective: provisioning failure never
// rolls back durable tenant state.
type DeployService interface {
	CreateProject(ctx context.Context, siteID string, env map[string]string) (projectID string, err error)
	TriggerDeployment(ctx context.Context, projectID string) (deployID string, err error)
	DeploymentStatus(ctx context.Context, siteID string) (*DeployStatus, error)
}

// MediaService is the boundary to the external media host. Uploads happen
// out of band; the core only deletes assets by their public id.
type MediaService interface {
	Delete(ctx context.Context, publicID string) error
}
