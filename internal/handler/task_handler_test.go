package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/edutrack-io/kocluk-api/internal/middleware"
	"github.com/edutrack-io/kocluk-api/internal/models"
)

func newTestContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestTaskHandlerCompleteRejectsNonStudent(t *testing.T) {
	handler := NewTaskHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodPost, "/tasks/task-1/complete", `{}`)
	c.Params = gin.Params{{Key: "id", Value: "task-1"}}
	c.Set(middleware.ContextScopeKey, models.AccessScope{Role: models.RoleTeacher, ActorID: "teacher-1"})

	handler.Complete(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTaskHandlerCompleteRejectsMalformedBody(t *testing.T) {
	handler := NewTaskHandler(nil, nil)

	c, rec := newTestContext(t, http.MethodPost, "/tasks/task-1/complete", `{"correct_answers": "twelve"}`)
	c.Params = gin.Params{{Key: "id", Value: "task-1"}}
	c.Set(middleware.ContextScopeKey, models.AccessScope{Role: models.RoleStudent, ActorID: "student-1"})

	handler.Complete(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerListTasksRejectsBadDate(t *testing.T) {
	handler := &StudentHandler{}

	c, rec := newTestContext(t, http.MethodGet, "/students/student-1/tasks?from=31-12-2025", "")
	c.Params = gin.Params{{Key: "id", Value: "student-1"}}
	c.Set(middleware.ContextScopeKey, models.AccessScope{Role: models.RoleStudent, ActorID: "student-1"})

	handler.ListTasks(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "from")
}

func TestExtensionHandlerRequestRejectsOutOfRangeDays(t *testing.T) {
	handler := NewExtensionHandler(nil)

	c, rec := newTestContext(t, http.MethodPost, "/tasks/task-1/extension-requests", `{"requested_days": 0, "reason": "need more time"}`)
	c.Params = gin.Params{{Key: "id", Value: "task-1"}}
	c.Set(middleware.ContextScopeKey, models.AccessScope{Role: models.RoleStudent, ActorID: "student-1"})

	handler.Request(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReportHandlerCreateRejectsUnknownFormat(t *testing.T) {
	handler := NewReportHandler(nil)

	body := `{"student_id": "4f8b9a64-8a2e-4c7e-9a53-0d6f0a1b2c3d", "format": "docx", "range_start": "2025-03-01", "range_end": "2025-03-31"}`
	c, rec := newTestContext(t, http.MethodPost, "/reports", body)
	c.Set(middleware.ContextScopeKey, models.AccessScope{Role: models.RoleTeacher, ActorID: "teacher-1"})

	handler.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
