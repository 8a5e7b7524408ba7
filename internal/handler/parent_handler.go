package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// ParentHandler exposes parent administration endpoints.
type ParentHandler struct {
	parents *service.ParentService
	deleter *service.DeletionService
}

// NewParentHandler constructs ParentHandler.
func NewParentHandler(parents *service.ParentService, deleter *service.DeletionService) *ParentHandler {
	return &ParentHandler{parents: parents, deleter: deleter}
}

// Create godoc
// @Summary Register a parent under the authenticated teacher
// @Tags Parents
// @Accept json
// @Produce json
// @Param payload body models.CreateParentRequest true "Parent payload"
// @Success 201 {object} response.Envelope
// @Router /parents [post]
func (h *ParentHandler) Create(c *gin.Context) {
	var req models.CreateParentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	parent, err := h.parents.Create(c.Request.Context(), scope.ActorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, parent)
}

// List godoc
// @Summary List parents visible to the caller
// @Tags Parents
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /parents [get]
func (h *ParentHandler) List(c *gin.Context) {
	var filter models.ActorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = parsePage(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	parents, total, err := h.parents.List(c.Request.Context(), scopeFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, parents, pagination)
}

// Get godoc
// @Summary Get parent detail
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /parents/{id} [get]
func (h *ParentHandler) Get(c *gin.Context) {
	parent, err := h.parents.Get(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parent, nil)
}

// Update godoc
// @Summary Update parent profile and student link
// @Tags Parents
// @Accept json
// @Produce json
// @Param id path string true "Parent ID"
// @Param payload body models.UpdateParentRequest true "Parent payload"
// @Success 200 {object} response.Envelope
// @Router /parents/{id} [put]
func (h *ParentHandler) Update(c *gin.Context) {
	var req models.UpdateParentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	parent, err := h.parents.Update(c.Request.Context(), scopeFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parent, nil)
}

// SetStatus godoc
// @Summary Activate or deactivate a parent account
// @Tags Parents
// @Accept json
// @Produce json
// @Param id path string true "Parent ID"
// @Param payload body models.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /parents/{id}/status [patch]
func (h *ParentHandler) SetStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	parent, err := h.parents.SetStatus(c.Request.Context(), scopeFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parent, nil)
}

// Delete godoc
// @Summary Delete a parent account
// @Description Fails with HAS_DEPENDENT while the parent is linked to a student.
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Success 204
// @Router /parents/{id} [delete]
func (h *ParentHandler) Delete(c *gin.Context) {
	if _, err := h.parents.Get(c.Request.Context(), scopeFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.deleter.DeleteParent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
