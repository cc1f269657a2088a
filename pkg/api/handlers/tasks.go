package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct{}

func NewTaskHandler() *TaskHandler {
	return &TaskHandler{}
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	c.JSON(http.StatusOK, []string{})
}
