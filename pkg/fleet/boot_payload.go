package fleet

import (
	"fmt"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
)

// RenderBootPayload renders the boot instructions a replaced instance runs
// on startup: runtime install, artifact pull, process launch, log shipping.
// The payload is opaque to the fleet manager; it only stores and hands it
// to new instances.
func RenderBootPayload(req entities.DeploymentRequest, artifactRef string) string {
	return fmt.Sprintf(`#!/bin/bash
set -euo pipefail

# runtime
yum install -y docker amazon-cloudwatch-agent
systemctl enable --now docker

# artifact
docker pull %s

# service
docker run -d --restart=always --name app \
  -p 8080:8080 \
  -e DEPLOY_ENV=%s \
  --log-driver=awslogs \
  --log-opt awslogs-group=/fleet/%s \
  %s

systemctl enable --now amazon-cloudwatch-agent
`, artifactRef, req.Environment, req.FleetID, artifactRef)
}
