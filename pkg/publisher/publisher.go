package publisher

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// Publisher turns a deployment request into an immutable artifact
// reference the fleet can pull. How the artifact is built, scanned and
// pushed is opaque to the pipeline; it only needs pass/fail.
type Publisher interface {
	Publish(ctx context.Context, req entities.DeploymentRequest) (string, error)
}

// PublishError names the stage of the build/scan/push step that failed.
type PublishError struct {
	Stage string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("artifact publish failed at %s: %v", e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// CommandPublisher shells out to the container toolchain, mirroring the
// CI steps the pipeline replaces: build, vulnerability scan, push.
type CommandPublisher struct {
	registry string
	image    string
	run      func(ctx context.Context, name string, args ...string) error
}

func NewCommandPublisher(registry, image string) *CommandPublisher {
	return &CommandPublisher{
		registry: registry,
		image:    image,
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

func (p *CommandPublisher) Publish(ctx context.Context, req entities.DeploymentRequest) (string, error) {
	ref := fmt.Sprintf("%s/%s:%s", p.registry, p.image, req.ArtifactRef)

	stages := []struct {
		name string
		cmd  []string
	}{
		{"build", []string{"docker", "build", "-t", ref, "."}},
		{"scan", []string{"trivy", "image", "--exit-code", "1", "--severity", "HIGH,CRITICAL", ref}},
		{"push", []string{"docker", "push", ref}},
	}

	for _, stage := range stages {
		logger.Info("publishing artifact",
			zap.String("stage", stage.name),
			zap.String("artifactRef", ref))
		if err := p.run(ctx, stage.cmd[0], stage.cmd[1:]...); err != nil {
			return "", &PublishError{Stage: stage.name, Err: err}
		}
	}
	return ref, nil
}

// PrebuiltPublisher resolves the artifact reference without building
// anything, for invocations where CI already pushed the image.
type PrebuiltPublisher struct {
	registry string
	image    string
}

func NewPrebuiltPublisher(registry, image string) *PrebuiltPublisher {
	return &PrebuiltPublisher{registry: registry, image: image}
}

func (p *PrebuiltPublisher) Publish(_ context.Context, req entities.DeploymentRequest) (string, error) {
	if p.registry == "" || p.image == "" {
		return req.ArtifactRef, nil
	}
	return fmt.Sprintf("%s/%s:%s", p.registry, p.image, req.ArtifactRef), nil
}
