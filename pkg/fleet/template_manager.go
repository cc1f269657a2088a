package fleet

import (
	"context"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// TemplateAPI is the slice of the fleet manager that owns boot templates.
type TemplateAPI interface {
	FindBootTemplates(ctx context.Context, fleetID string) ([]entities.BootTemplate, error)
	CreateBootTemplate(ctx context.Context, fleetID string, payload string) (entities.BootTemplateVersion, error)
	CreateBootTemplateVersion(ctx context.Context, templateID string, payload string) (entities.BootTemplateVersion, error)
}

// TemplateManager owns the versioned boot configuration of a fleet.
type TemplateManager struct {
	api TemplateAPI
}

func NewTemplateManager(api TemplateAPI) *TemplateManager {
	return &TemplateManager{api: api}
}

// EnsureVersion publishes the rendered boot payload as a new immutable
// template version. A fleet with no template gets a fresh one at version 1;
// an existing template gets a new version appended. Calling it twice with
// the same payload yields two distinct, functionally equivalent versions.
// An ambiguous lookup is fatal: two templates matching one fleet's naming
// convention cannot be resolved without an operator.
func (m *TemplateManager) EnsureVersion(ctx context.Context, fleetID string, payload string) (entities.BootTemplateVersion, error) {
	templates, err := m.api.FindBootTemplates(ctx, fleetID)
	if err != nil {
		return entities.BootTemplateVersion{}, &TemplateLookupError{FleetID: fleetID, Err: err}
	}

	switch len(templates) {
	case 0:
		version, err := m.api.CreateBootTemplate(ctx, fleetID, payload)
		if err != nil {
			return entities.BootTemplateVersion{}, &TemplateLookupError{FleetID: fleetID, Err: err}
		}
		logger.Info("created boot template",
			zap.String("fleetId", fleetID),
			zap.String("templateId", version.TemplateID),
			zap.Int64("version", version.Version))
		return version, nil
	case 1:
		version, err := m.api.CreateBootTemplateVersion(ctx, templates[0].ID, payload)
		if err != nil {
			return entities.BootTemplateVersion{}, &TemplateLookupError{FleetID: fleetID, Err: err}
		}
		logger.Info("appended boot template version",
			zap.String("fleetId", fleetID),
			zap.String("templateId", version.TemplateID),
			zap.Int64("version", version.Version))
		return version, nil
	default:
		return entities.BootTemplateVersion{}, &TemplateLookupError{FleetID: fleetID, Matches: len(templates)}
	}
}
