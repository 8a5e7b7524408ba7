package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/service"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// CurriculumHandler serves the read-only class/subject/topic hierarchy.
type CurriculumHandler struct {
	curriculum *service.CurriculumService
}

// NewCurriculumHandler constructs CurriculumHandler.
func NewCurriculumHandler(curriculum *service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

// ListClasses godoc
// @Summary List grade-level classes
// @Tags Curriculum
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *CurriculumHandler) ListClasses(c *gin.Context) {
	classes, err := h.curriculum.ListClasses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// ListSubjects godoc
// @Summary List a class's subjects
// @Tags Curriculum
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects [get]
func (h *CurriculumHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.curriculum.ListSubjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ListTopics godoc
// @Summary List a subject's topics in curriculum order
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/topics [get]
func (h *CurriculumHandler) ListTopics(c *gin.Context) {
	topics, err := h.curriculum.ListTopics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, nil)
}
