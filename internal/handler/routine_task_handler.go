package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// RoutineTaskHandler exposes routine template management for teachers.
type RoutineTaskHandler struct {
	routines *service.RoutineTaskService
}

// NewRoutineTaskHandler constructs RoutineTaskHandler.
func NewRoutineTaskHandler(routines *service.RoutineTaskService) *RoutineTaskHandler {
	return &RoutineTaskHandler{routines: routines}
}

// Create godoc
// @Summary Create or extend a routine template
// @Description Posting an existing template name merges weekdays and roster into the template instead of duplicating it.
// @Tags Routines
// @Accept json
// @Produce json
// @Param payload body models.CreateRoutineTaskRequest true "Routine payload"
// @Success 201 {object} response.Envelope
// @Router /routine-tasks [post]
func (h *RoutineTaskHandler) Create(c *gin.Context) {
	var req models.CreateRoutineTaskRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	routine, err := h.routines.Create(c.Request.Context(), scope.ActorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, routine)
}

// List godoc
// @Summary List the teacher's routine templates
// @Tags Routines
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /routine-tasks [get]
func (h *RoutineTaskHandler) List(c *gin.Context) {
	scope := scopeFromContext(c)
	routines, err := h.routines.List(c.Request.Context(), scope.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routines, nil)
}

// Get godoc
// @Summary Get a routine template with its roster
// @Tags Routines
// @Produce json
// @Param id path string true "Routine ID"
// @Success 200 {object} response.Envelope
// @Router /routine-tasks/{id} [get]
func (h *RoutineTaskHandler) Get(c *gin.Context) {
	scope := scopeFromContext(c)
	routine, err := h.routines.Get(c.Request.Context(), scope.ActorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routine, nil)
}

// Update godoc
// @Summary Update a routine template
// @Tags Routines
// @Accept json
// @Produce json
// @Param id path string true "Routine ID"
// @Param payload body models.UpdateRoutineTaskRequest true "Routine payload"
// @Success 200 {object} response.Envelope
// @Router /routine-tasks/{id} [put]
func (h *RoutineTaskHandler) Update(c *gin.Context) {
	var req models.UpdateRoutineTaskRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	routine, err := h.routines.Update(c.Request.Context(), scope.ActorID, c.Param("id"), req, req.StudentIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routine, nil)
}

// Deactivate godoc
// @Summary Deactivate a routine template
// @Description Stops future expansion; already materialized instances stay.
// @Tags Routines
// @Produce json
// @Param id path string true "Routine ID"
// @Success 204
// @Router /routine-tasks/{id} [delete]
func (h *RoutineTaskHandler) Deactivate(c *gin.Context) {
	scope := scopeFromContext(c)
	if err := h.routines.Deactivate(c.Request.Context(), scope.ActorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
