package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// StudentHandler exposes student endpoints, including the task calendar,
// dashboard, curriculum assignments, and score history.
type StudentHandler struct {
	students   *service.StudentService
	tasks      *service.TaskService
	dashboards *service.DashboardService
	curriculum *service.CurriculumService
	results    *service.TestResultService
	deleter    *service.DeletionService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(
	students *service.StudentService,
	tasks *service.TaskService,
	dashboards *service.DashboardService,
	curriculum *service.CurriculumService,
	results *service.TestResultService,
	deleter *service.DeletionService,
) *StudentHandler {
	return &StudentHandler{
		students:   students,
		tasks:      tasks,
		dashboards: dashboards,
		curriculum: curriculum,
		results:    results,
		deleter:    deleter,
	}
}

// Create godoc
// @Summary Register a student under the authenticated teacher
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req models.CreateStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	student, err := h.students.Create(c.Request.Context(), scope.ActorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// List godoc
// @Summary List students visible to the caller
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or email"
// @Param active query bool false "Filter by account status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.ActorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	switch c.Query("active") {
	case "true":
		v := true
		filter.Active = &v
	case "false":
		v := false
		filter.Active = &v
	}
	filter.Page, filter.PageSize = parsePage(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, total, err := h.students.List(c.Request.Context(), scopeFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req models.UpdateStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Update(c.Request.Context(), scopeFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SetStatus godoc
// @Summary Activate or deactivate a student account
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [patch]
func (h *StudentHandler) SetStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.SetStatus(c.Request.Context(), scopeFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student and their task history
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	scope := scopeFromContext(c)
	if _, err := h.students.Get(c.Request.Context(), scope, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.deleter.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTasks godoc
// @Summary List a student's tasks for a date range
// @Description Materializes any missing routine instances before listing.
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "Range start (YYYY-MM-DD), defaults to today"
// @Param to query string false "Range end (YYYY-MM-DD), defaults to from + 6 days"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/tasks [get]
func (h *StudentHandler) ListTasks(c *gin.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, err := parseDateQuery(c, "from", today)
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "to", from.AddDate(0, 0, 6))
	if err != nil {
		response.Error(c, err)
		return
	}

	tasks, err := h.tasks.ListStudentRange(c.Request.Context(), scopeFromContext(c), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// Dashboard godoc
// @Summary Get the student's daily dashboard
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/dashboard [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	// Visibility check happens through the student lookup; the dashboard
	// service itself is scope-agnostic.
	if _, err := h.students.Get(c.Request.Context(), scopeFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	dashboard, err := h.dashboards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// ListSubjects godoc
// @Summary List a student's subject assignments with progress
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects [get]
func (h *StudentHandler) ListSubjects(c *gin.Context) {
	assignments, err := h.curriculum.ListAssignments(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// AssignSubject godoc
// @Summary Assign a subject to the student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/subjects/{subjectId} [post]
func (h *StudentHandler) AssignSubject(c *gin.Context) {
	scope := scopeFromContext(c)
	assignment, err := h.curriculum.AssignSubject(c.Request.Context(), scope.ActorID, c.Param("id"), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// UnassignSubject godoc
// @Summary Remove a subject assignment and its progress
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Router /students/{id}/subjects/{subjectId} [delete]
func (h *StudentHandler) UnassignSubject(c *gin.Context) {
	scope := scopeFromContext(c)
	if err := h.curriculum.UnassignSubject(c.Request.Context(), scope.ActorID, c.Param("id"), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CompleteTopic godoc
// @Summary Mark a curriculum topic as completed for the student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param topicId path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/topics/{topicId}/complete [post]
func (h *StudentHandler) CompleteTopic(c *gin.Context) {
	scope := scopeFromContext(c)
	progress, err := h.curriculum.CompleteTopic(c.Request.Context(), scope.ActorID, c.Param("id"), c.Param("topicId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// ListResults godoc
// @Summary List a student's test score history
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/test-results [get]
func (h *StudentHandler) ListResults(c *gin.Context) {
	var from, to *time.Time
	if raw, err := parseDateQuery(c, "from", time.Time{}); err != nil {
		response.Error(c, err)
		return
	} else if !raw.IsZero() {
		from = &raw
	}
	if raw, err := parseDateQuery(c, "to", time.Time{}); err != nil {
		response.Error(c, err)
		return
	} else if !raw.IsZero() {
		to = &raw
	}

	results, err := h.results.ListForStudent(c.Request.Context(), scopeFromContext(c), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
