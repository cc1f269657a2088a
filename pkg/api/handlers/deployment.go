package handlers

import (
	"net/http"

	"github.com/taskfleet/deployer-backend/pkg/api/dtos"
	"github.com/taskfleet/deployer-backend/pkg/api/servers"
	"github.com/taskfleet/deployer-backend/pkg/services"

	"github.com/gin-gonic/gin"
)

type DeploymentHandler struct {
	DeploymentService *services.DeploymentService
}

func NewDeploymentHandler(server *servers.Server) *DeploymentHandler {
	return &DeploymentHandler{
		DeploymentService: server.Deployments,
	}
}

func (h *DeploymentHandler) Deploy(c *gin.Context) {
	var request dtos.DeployRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := h.DeploymentService.TriggerDeployment(c.Request.Context(), request.ToEntity())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "OK", "runId": runID})
}

func (h *DeploymentHandler) GetRecords(c *gin.Context) {
	if artifactRef := c.Query("artifactRef"); artifactRef != "" {
		records, err := h.DeploymentService.GetRecordsByArtifactRef(c.Request.Context(), artifactRef)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
		return
	}

	records, err := h.DeploymentService.GetRecords(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *DeploymentHandler) GetRecordByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	record, err := h.DeploymentService.GetRecordByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}
