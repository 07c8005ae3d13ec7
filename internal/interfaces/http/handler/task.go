package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	taskingapp "github.com/taskprod/backend/internal/application/tasking"
	"github.com/taskprod/backend/internal/domain/shared"
)

// TaskHandler handles task-related API endpoints
type TaskHandler struct {
	BaseHandler
	taskService *taskingapp.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *taskingapp.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// Create godoc
// @Summary      Create a task
// @Description  due_date must lie in the future. Any authenticated user may create a task.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        request body taskingapp.CreateTaskRequest true "Task creation request"
// @Success      201 {object} dto.Response{data=taskingapp.TaskResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req taskingapp.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, task)
}

// GetByID returns a task visible to the caller. Tasks assigned to someone
// else answer 404 for non-staff callers.
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, task)
}

// List godoc
// @Summary      List tasks
// @Description  Staff see every task, other users only their own
// @Tags         tasks
// @Produce      json
// @Param        search query string false "Substring of title or description"
// @Param        status query string false "pending, inprogress or completed"
// @Param        product query string false "Product ID" format(uuid)
// @Param        assigned_user query string false "Assignee ID" format(uuid)
// @Param        ordering query string false "due_date, created_at; prefix - for descending"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]taskingapp.TaskResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	var filter taskingapp.TaskListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	verr := &shared.ValidationError{}
	filter.ProductID = queryUUID(c, "product", verr)
	filter.AssignedUserID = queryUUID(c, "assigned_user", verr)
	if err := verr.OrNil(); err != nil {
		h.HandleError(c, err)
		return
	}

	page, err := h.taskService.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	SuccessPage(c, page)
}

// Update handles both PUT and PATCH
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req taskingapp.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, task)
}

// Delete soft deletes the task and answers 204
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.SoftDelete(c.Request.Context(), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SoftDelete marks the task deleted
func (h *TaskHandler) SoftDelete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.SoftDelete(c.Request.Context(), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Detail(c, http.StatusOK, "soft deleted")
}

// Restore is staff only
func (h *TaskHandler) Restore(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.Restore(c.Request.Context(), actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Detail(c, http.StatusOK, "restored")
}
