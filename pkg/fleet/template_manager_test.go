package fleet

import (
	"context"
	"errors"
	"testing"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
)

type fakeTemplateAPI struct {
	templates []entities.BootTemplate
	findErr   error

	createCalls  int
	versionCalls int
	nextVersion  int64
}

func (f *fakeTemplateAPI) FindBootTemplates(_ context.Context, _ string) ([]entities.BootTemplate, error) {
	return f.templates, f.findErr
}

func (f *fakeTemplateAPI) CreateBootTemplate(_ context.Context, fleetID string, payload string) (entities.BootTemplateVersion, error) {
	f.createCalls++
	return entities.BootTemplateVersion{TemplateID: "lt-new", Version: 1, Payload: payload}, nil
}

func (f *fakeTemplateAPI) CreateBootTemplateVersion(_ context.Context, templateID string, payload string) (entities.BootTemplateVersion, error) {
	f.versionCalls++
	return entities.BootTemplateVersion{TemplateID: templateID, Version: f.nextVersion, Payload: payload}, nil
}

func TestEnsureVersionCreatesTemplateWhenNoneExists(t *testing.T) {
	api := &fakeTemplateAPI{}
	mgr := NewTemplateManager(api)

	version, err := mgr.EnsureVersion(context.Background(), "web-fleet", "payload")
	if err != nil {
		t.Fatalf("EnsureVersion returned error: %v", err)
	}
	if version.Version != 1 {
		t.Fatalf("expected version 1 for a fresh template, got %d", version.Version)
	}
	if api.createCalls != 1 {
		t.Fatalf("expected exactly one template creation, got %d", api.createCalls)
	}
	if api.versionCalls != 0 {
		t.Fatalf("expected no version appends, got %d", api.versionCalls)
	}
}

func TestEnsureVersionAppendsToExistingTemplate(t *testing.T) {
	api := &fakeTemplateAPI{
		templates:   []entities.BootTemplate{{ID: "lt-1", Name: "web-fleet-boot", LatestVersion: 4}},
		nextVersion: 5,
	}
	mgr := NewTemplateManager(api)

	version, err := mgr.EnsureVersion(context.Background(), "web-fleet", "payload")
	if err != nil {
		t.Fatalf("EnsureVersion returned error: %v", err)
	}
	if version.Version <= 4 {
		t.Fatalf("expected a version greater than 4, got %d", version.Version)
	}
	if version.TemplateID != "lt-1" {
		t.Fatalf("expected version appended to lt-1, got %s", version.TemplateID)
	}
	if api.createCalls != 0 {
		t.Fatalf("expected no template creation, got %d", api.createCalls)
	}
}

func TestEnsureVersionRejectsAmbiguousLookup(t *testing.T) {
	api := &fakeTemplateAPI{
		templates: []entities.BootTemplate{
			{ID: "lt-1", Name: "web-fleet-boot"},
			{ID: "lt-2", Name: "web-fleet-boot"},
		},
	}
	mgr := NewTemplateManager(api)

	_, err := mgr.EnsureVersion(context.Background(), "web-fleet", "payload")
	var lookupErr *TemplateLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected TemplateLookupError, got %v", err)
	}
	if lookupErr.Matches != 2 {
		t.Fatalf("expected 2 matches reported, got %d", lookupErr.Matches)
	}
	if api.createCalls != 0 || api.versionCalls != 0 {
		t.Fatalf("ambiguous lookup must not mutate templates")
	}
}

func TestEnsureVersionWrapsLookupFailure(t *testing.T) {
	underlying := errors.New("provider unavailable")
	api := &fakeTemplateAPI{findErr: underlying}
	mgr := NewTemplateManager(api)

	_, err := mgr.EnsureVersion(context.Background(), "web-fleet", "payload")
	var lookupErr *TemplateLookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected TemplateLookupError, got %v", err)
	}
	if !errors.Is(err, underlying) {
		t.Fatalf("expected the provider error to be wrapped, got %v", err)
	}
}

func TestEnsureVersionTwiceYieldsDistinctVersions(t *testing.T) {
	api := &fakeTemplateAPI{
		templates:   []entities.BootTemplate{{ID: "lt-1", Name: "web-fleet-boot", LatestVersion: 1}},
		nextVersion: 2,
	}
	mgr := NewTemplateManager(api)

	first, err := mgr.EnsureVersion(context.Background(), "web-fleet", "payload")
	if err != nil {
		t.Fatalf("first EnsureVersion returned error: %v", err)
	}
	api.nextVersion = 3
	second, err := mgr.EnsureVersion(context.Background(), "web-fleet", "payload")
	if err != nil {
		t.Fatalf("second EnsureVersion returned error: %v", err)
	}
	if first.Version == second.Version {
		t.Fatalf("identical payloads must still yield distinct versions, both got %d", first.Version)
	}
}
