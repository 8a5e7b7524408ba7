package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// TaskHandler exposes task CRUD and the completion endpoint.
type TaskHandler struct {
	tasks      *service.TaskService
	completion *service.CompletionService
}

// NewTaskHandler constructs TaskHandler.
func NewTaskHandler(tasks *service.TaskService, completion *service.CompletionService) *TaskHandler {
	return &TaskHandler{tasks: tasks, completion: completion}
}

// Create godoc
// @Summary Create a task for one of the teacher's students
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body models.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	task, err := h.tasks.Create(c.Request.Context(), scope.ActorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// List godoc
// @Summary List tasks visible to the caller
// @Tags Tasks
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param subjectId query string false "Filter by subject"
// @Param type query string false "Filter by task type"
// @Param from query string false "Window overlap start (YYYY-MM-DD)"
// @Param to query string false "Window overlap end (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	var filter models.TaskFilter
	filter.StudentID = c.Query("studentId")
	filter.SubjectID = c.Query("subjectId")
	filter.Type = models.TaskType(strings.TrimSpace(c.Query("type")))
	if raw, err := parseDateQuery(c, "from", zeroTime); err != nil {
		response.Error(c, err)
		return
	} else if !raw.IsZero() {
		filter.From = &raw
	}
	if raw, err := parseDateQuery(c, "to", zeroTime); err != nil {
		response.Error(c, err)
		return
	} else if !raw.IsZero() {
		filter.To = &raw
	}
	filter.Page, filter.PageSize = parsePage(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	tasks, total, err := h.tasks.List(c.Request.Context(), scopeFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, tasks, pagination)
}

// Get godoc
// @Summary Get task detail with derived status
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Update godoc
// @Summary Update an uncompleted task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body models.UpdateTaskRequest true "Task payload"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	var req models.UpdateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	task, err := h.tasks.Update(c.Request.Context(), scope.ActorID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Delete godoc
// @Summary Delete a task, preserving detached score history
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 204
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	scope := scopeFromContext(c)
	if err := h.tasks.Delete(c.Request.Context(), scope.ActorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete the authenticated student's task
// @Description Scored task types require correct/wrong/blank counts that sum to the declared question count.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body models.CompleteTaskRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	var req models.CompleteTaskRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	if scope.Role != models.RoleStudent {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	result, err := h.completion.Complete(c.Request.Context(), scope.ActorID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
