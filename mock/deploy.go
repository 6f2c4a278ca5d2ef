package mock

import (
	"context"

	"github.com/entry-nets/sitehub"
)

var _ sitehub.DeployService = (*DeployService)(nil)

// DeployService is a function-field mock of sitehub.DeployService.
type DeployService struct {
	CreateProjectFn     func(ctx context.Context, siteID string, env map[string]string) (string, error)
	TriggerDeploymentFn func(ctx context.Context, projectID string) (string, error)
	DeploymentStatusFn  func(ctx context.Context, siteID string) (*sitehub.DeployStatus, error)
}

// CreateProject calls CreateProjectFn, defaulting to a fixed project id.
func (s *DeployService) CreateProject(ctx context.Context, siteID string, env map[string]string) (string, error) {
	if s.CreateProjectFn == nil {
		return "prj_" + siteID, nil
	}
	return s.CreateProjectFn(ctx, siteID, env)
}

// TriggerDeployment calls TriggerDeploymentFn, defaulting to a fixed id.
func (s *DeployService) TriggerDeployment(ctx context.Context, projectID string) (string, error) {
	if s.TriggerDeploymentFn == nil {
		return "dpl_" + projectID, nil
	}
	return s.TriggerDeploymentFn(ctx, projectID)
}

// DeploymentStatus calls DeploymentStatusFn, defaulting to ready.
func (s *DeployService) DeploymentStatus(ctx context.Context, siteID string) (*sitehub.DeployStatus, error) {
	if s.DeploymentStatusFn == nil {
		return &sitehub.DeployStatus{SiteID: siteID, State: sitehub.DeployReady}, nil
	}
	return s.DeploymentStatusFn(ctx, siteID)
}

var _ sitehub.MediaService = (*MediaService)(nil)

// MediaService is a function-field mock of sitehub.MediaService.
type MediaService struct {
	DeleteFn func(ctx context.Context, publicID string) error
}

// Delete calls DeleteFn, defaulting to success.
func (s *MediaService) Delete(ctx context.Context, publicID string) error {
	if s.DeleteFn == nil {
		return nil
	}
	return s.DeleteFn(ctx, publicID)
}
