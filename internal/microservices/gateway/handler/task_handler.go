package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/microservices/gateway/dto"
	"taskhub/internal/microservices/gateway/facade"
	"taskhub/internal/microservices/gateway/middleware"
)

type TaskHandler struct {
	tasks *facade.TasksClient
}

func NewTaskHandler(tasks *facade.TasksClient) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"title":           req.Title,
		"description":     req.Description,
		"priority":        req.Priority,
		"deadline":        req.Deadline,
		"assignedUserIds": req.AssignedUserIDs,
		"createdBy":       middleware.UserID(c),
	}
	reply, err := h.tasks.Create(c.Request.Context(), payload)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusCreated, reply)
}

func (h *TaskHandler) List(c *gin.Context) {
	var query dto.ListTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.tasks.FindAll(c.Request.Context(), query)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *TaskHandler) Get(c *gin.Context) {
	reply, err := h.tasks.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"taskId":          c.Param("id"),
		"updatedBy":       middleware.UserID(c),
		"title":           req.Title,
		"description":     req.Description,
		"status":          req.Status,
		"priority":        req.Priority,
		"deadline":        req.Deadline,
		"assignedUserIds": req.AssignedUserIDs,
	}
	reply, err := h.tasks.Update(c.Request.Context(), payload)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	reply, err := h.tasks.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *TaskHandler) CreateComment(c *gin.Context) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"taskId":  c.Param("id"),
		"userId":  middleware.UserID(c),
		"content": req.Content,
	}
	reply, err := h.tasks.CreateComment(c.Request.Context(), payload)
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusCreated, reply)
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	reply, err := h.tasks.FindComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}

func (h *TaskHandler) ListHistory(c *gin.Context) {
	reply, err := h.tasks.FindHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeFacadeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, reply)
}
