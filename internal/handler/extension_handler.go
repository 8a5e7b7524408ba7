package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// ExtensionHandler exposes the extension request flow.
type ExtensionHandler struct {
	extensions *service.ExtensionService
}

// NewExtensionHandler constructs ExtensionHandler.
func NewExtensionHandler(extensions *service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

// Request godoc
// @Summary Request more time on an uncompleted task
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body models.CreateExtensionRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Router /tasks/{id}/extension-requests [post]
func (h *ExtensionHandler) Request(c *gin.Context) {
	var req models.CreateExtensionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	request, err := h.extensions.Request(c.Request.Context(), scope.ActorID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List extension requests on the teacher's tasks
// @Tags Extensions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /extension-requests [get]
func (h *ExtensionHandler) List(c *gin.Context) {
	scope := scopeFromContext(c)
	requests, err := h.extensions.ListForTeacher(c.Request.Context(), scope.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Decide godoc
// @Summary Approve or reject an extension request
// @Description Approval pushes the task's end window forward by the approved day count.
// @Tags Extensions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.DecideExtensionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /extension-requests/{id} [patch]
func (h *ExtensionHandler) Decide(c *gin.Context) {
	var req models.DecideExtensionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	scope := scopeFromContext(c)
	request, err := h.extensions.Decide(c.Request.Context(), scope.ActorID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
