package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
)

// Sink names accepted for RECORD_SINK.
const (
	SinkPostgres = "postgres"
	SinkS3       = "s3"
)

// Config carries every input the rollout pipeline consumes. It is built
// once from the environment and treated as immutable afterwards.
type Config struct {
	Environment entities.Environment
	FleetID     string

	ArtifactRegistry string
	ArtifactImage    string
	ArtifactRef      string
	GitBranch        string
	GitCommit        string

	HealthEndpoint     string
	HealthMaxAttempts  int
	HealthProbeSpacing time.Duration
	HealthFailClosed   bool

	PollInterval  time.Duration
	TimeoutBudget time.Duration

	MinHealthyPercentage int32
	InstanceWarmup       time.Duration
	SkipMatching         bool

	RecordSink   string
	RecordBucket string

	NotifyWebhookURL string
	Operator         string
	AWSRegion        string
}

// ValidationError reports every required input that is missing, so one
// failed run surfaces the full list instead of the first field.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// FromEnv reads the pipeline configuration from environment variables,
// applying the reference defaults for everything optional.
func FromEnv() Config {
	return Config{
		Environment: entities.Environment(os.Getenv("DEPLOY_ENV")),
		FleetID:     os.Getenv("FLEET_ID"),

		ArtifactRegistry: os.Getenv("ARTIFACT_REGISTRY"),
		ArtifactImage:    os.Getenv("ARTIFACT_IMAGE"),
		ArtifactRef:      os.Getenv("ARTIFACT_REF"),
		GitBranch:        os.Getenv("GIT_BRANCH"),
		GitCommit:        os.Getenv("GIT_COMMIT"),

		HealthEndpoint:     os.Getenv("HEALTH_ENDPOINT"),
		HealthMaxAttempts:  envInt("HEALTH_MAX_ATTEMPTS", 10),
		HealthProbeSpacing: envDuration("HEALTH_PROBE_SPACING", 30*time.Second),
		HealthFailClosed:   envBool("HEALTH_FAIL_CLOSED", false),

		PollInterval:  envDuration("REFRESH_POLL_INTERVAL", 30*time.Second),
		TimeoutBudget: envDuration("REFRESH_TIMEOUT_BUDGET", 600*time.Second),

		MinHealthyPercentage: int32(envInt("MIN_HEALTHY_PERCENTAGE", 90)),
		InstanceWarmup:       envDuration("INSTANCE_WARMUP", 60*time.Second),
		SkipMatching:         envBool("SKIP_MATCHING", true),

		RecordSink:   envString("RECORD_SINK", SinkPostgres),
		RecordBucket: os.Getenv("RECORD_BUCKET"),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		Operator:         envString("DEPLOY_OPERATOR", os.Getenv("USER")),
		AWSRegion:        os.Getenv("AWS_REGION"),
	}
}

// Validate returns a ValidationError naming every missing required field.
// The pipeline must never issue an external call when this fails.
func (c Config) Validate() error {
	var missing []string
	if c.Environment == "" {
		missing = append(missing, "DEPLOY_ENV")
	}
	if c.FleetID == "" {
		missing = append(missing, "FLEET_ID")
	}
	if c.ArtifactRef == "" {
		missing = append(missing, "ARTIFACT_REF")
	}
	if c.HealthEndpoint == "" {
		missing = append(missing, "HEALTH_ENDPOINT")
	}
	if c.RecordSink == SinkS3 && c.RecordBucket == "" {
		missing = append(missing, "RECORD_BUCKET")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Request builds the immutable deployment request this configuration
// describes.
func (c Config) Request() entities.DeploymentRequest {
	return entities.DeploymentRequest{
		ArtifactRef: c.ArtifactRef,
		Environment: c.Environment,
		FleetID:     c.FleetID,
		GitBranch:   c.GitBranch,
		GitCommit:   c.GitCommit,
	}
}

// Policy builds the rollout policy this configuration describes.
func (c Config) Policy() entities.RolloutPolicy {
	return entities.RolloutPolicy{
		MinHealthyPercentage: c.MinHealthyPercentage,
		InstanceWarmup:       c.InstanceWarmup,
		SkipMatching:         c.SkipMatching,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go duration strings ("45s", "10m") and, for
// compatibility with the old shell pipeline, bare integers of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
