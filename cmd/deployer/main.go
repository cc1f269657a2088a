package main

import (
	"context"
	"errors"
	"os"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/config"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
	"github.com/taskfleet/deployer-backend/pkg/fleet"
	awsfleet "github.com/taskfleet/deployer-backend/pkg/infrastructure/aws"
	"github.com/taskfleet/deployer-backend/pkg/infrastructure/postgres/connection"
	"github.com/taskfleet/deployer-backend/pkg/infrastructure/postgres/repositories"
	s3sink "github.com/taskfleet/deployer-backend/pkg/infrastructure/s3"
	"github.com/taskfleet/deployer-backend/pkg/notify"
	"github.com/taskfleet/deployer-backend/pkg/pipeline"
	"github.com/taskfleet/deployer-backend/pkg/publisher"
	"github.com/taskfleet/deployer-backend/pkg/recorder"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Exit codes: 0 success (or skipped environment), 1 aborted,
// 3 timed out (inconclusive, the refresh may still be progressing).
const (
	exitOK       = 0
	exitAborted  = 1
	exitTimedOut = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	logger.Init()

	// Load .env file if it exists (optional for CI runtime)
	if err := godotenv.Load(".env"); err != nil {
		logger.Infof("No .env file found, using environment variables: %s", err)
	}

	cfg := config.FromEnv()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitAborted
	}

	// Unsupported environments are a deliberate no-op, not an error.
	if !cfg.Environment.Supported() {
		logger.Info("environment not eligible for deployment, skipping",
			zap.String("environment", string(cfg.Environment)))
		return exitOK
	}

	ctx := context.Background()

	fleetClient, err := awsfleet.NewFleetClient(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Error("failed to initialize fleet client", zap.Error(err))
		return exitAborted
	}

	sink, err := buildSink(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize record sink", zap.Error(err))
		return exitAborted
	}

	var notifier pipeline.Notifier = notify.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, nil)
	}

	pipe := pipeline.New(
		cfg,
		publisher.NewCommandPublisher(cfg.ArtifactRegistry, cfg.ArtifactImage),
		fleet.NewTemplateManager(fleetClient),
		fleet.NewRefreshController(fleetClient),
		fleet.NewHealthVerifier(nil),
		recorder.New(sink, cfg.Operator),
		notifier,
	)

	result, err := pipe.Run(ctx, cfg.Request())
	if err != nil {
		var phaseErr *pipeline.PhaseError
		if errors.As(err, &phaseErr) {
			logger.Error("deployment failed",
				zap.String("phase", string(phaseErr.Phase)),
				zap.Error(phaseErr.Err))
		} else {
			logger.Error("deployment failed", zap.Error(err))
		}
		return exitAborted
	}

	if result.Outcome == entities.OutcomeTimedOut {
		logger.Warn("deployment inconclusive: refresh timed out, check the fleet manager before retrying")
		return exitTimedOut
	}

	return exitOK
}

func buildSink(ctx context.Context, cfg config.Config) (recorder.Sink, error) {
	if cfg.RecordSink == config.SinkS3 {
		return s3sink.NewSinkFromRegion(ctx, cfg.AWSRegion, cfg.RecordBucket)
	}

	postgresDB, err := connection.Init(
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DB"),
		os.Getenv("POSTGRES_PORT"),
	)
	if err != nil {
		return nil, err
	}
	return repositories.NewDeploymentRecordRepository(postgresDB), nil
}
