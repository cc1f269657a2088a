package routes

import (
	"github.com/taskfleet/deployer-backend/pkg/api/handlers"
	"github.com/taskfleet/deployer-backend/pkg/api/servers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(server *servers.Server) {
	apiV1 := server.Router.Group("/api/v1")
	setupV1Routes(apiV1, server)

	healthGroup := server.Router.Group("/health")
	setupHealthRoutes(healthGroup)

	taskGroup := server.Router.Group("/tasks")
	setupTaskRoutes(taskGroup)
}

func setupV1Routes(router *gin.RouterGroup, server *servers.Server) {
	setupDeploymentRoutes(router.Group("/deployments"), server)
}

func setupHealthRoutes(router *gin.RouterGroup) {
	handler := handlers.NewHealthHandler()
	router.GET("", handler.GetHealth)
}

func setupTaskRoutes(router *gin.RouterGroup) {
	handler := handlers.NewTaskHandler()
	router.GET("", handler.GetTasks)
}

func setupDeploymentRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewDeploymentHandler(server)
	router.POST("", handler.Deploy)
	router.GET("", handler.GetRecords)
	router.GET("/:id", handler.GetRecordByID)
}
