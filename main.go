package main

import (
	"context"
	"log"
	"os"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/api/routes"
	"github.com/taskfleet/deployer-backend/pkg/api/servers"
	"github.com/taskfleet/deployer-backend/pkg/config"
	"github.com/taskfleet/deployer-backend/pkg/fleet"
	awsfleet "github.com/taskfleet/deployer-backend/pkg/infrastructure/aws"
	"github.com/taskfleet/deployer-backend/pkg/infrastructure/postgres/connection"
	"github.com/taskfleet/deployer-backend/pkg/infrastructure/postgres/repositories"
	s3sink "github.com/taskfleet/deployer-backend/pkg/infrastructure/s3"
	"github.com/taskfleet/deployer-backend/pkg/notify"
	"github.com/taskfleet/deployer-backend/pkg/pipeline"
	"github.com/taskfleet/deployer-backend/pkg/publisher"
	"github.com/taskfleet/deployer-backend/pkg/recorder"
	"github.com/taskfleet/deployer-backend/pkg/services"
	"github.com/taskfleet/deployer-backend/pkg/taskmanager"

	"github.com/gin-contrib/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {

	logger.Init()

	// Load .env file if it exists (optional for Docker runtime)
	if err := godotenv.Load(".env"); err != nil {
		logger.Infof("No .env file found, using environment variables: %s", err)
	}

	port := os.Getenv("PORT")

	if port == "" {
		port = "8000"
	}

	cfg := config.FromEnv()

	postgresUser := os.Getenv("POSTGRES_USER")
	postgresHost := os.Getenv("POSTGRES_HOST")
	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	postgresDatabase := os.Getenv("POSTGRES_DB")
	postgresPort := os.Getenv("POSTGRES_PORT")

	postgresDB, err := connection.Init(
		postgresUser,
		postgresHost,
		postgresPassword,
		postgresDatabase,
		postgresPort,
	)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}

	ctx := context.Background()

	fleetClient, err := awsfleet.NewFleetClient(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Fatal("Failed to initialize fleet client", zap.Error(err))
	}

	recordRepo := repositories.NewDeploymentRecordRepository(postgresDB)

	var sink recorder.Sink = recordRepo
	if cfg.RecordSink == config.SinkS3 {
		s3Sink, err := s3sink.NewSinkFromRegion(ctx, cfg.AWSRegion, cfg.RecordBucket)
		if err != nil {
			logger.Fatal("Failed to initialize s3 record sink", zap.Error(err))
		}
		sink = s3Sink
	}

	var notifier pipeline.Notifier = notify.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, nil)
	}

	// The API path assumes CI already pushed the image; the pipeline only
	// resolves the reference.
	pipe := pipeline.New(
		cfg,
		publisher.NewPrebuiltPublisher(cfg.ArtifactRegistry, cfg.ArtifactImage),
		fleet.NewTemplateManager(fleetClient),
		fleet.NewRefreshController(fleetClient),
		fleet.NewHealthVerifier(nil),
		recorder.New(sink, cfg.Operator),
		notifier,
	)

	deploymentService := services.NewDeploymentService(
		pipe,
		recordRepo,
		taskmanager.NewTaskManager(2, 16),
	)

	server := servers.NewServer(postgresDB, deploymentService)
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"*"}

	server.Use(cors.New(corsConfig))

	routes.SetupRoutes(server)

	err = server.Start(port)
	if err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		log.Fatal(err)
	}
}
