package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

func runChain(t *testing.T, claims *models.JWTClaims, handlers ...gin.HandlerFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	reached := false
	chain := append(handlers, func(c *gin.Context) { reached = true })
	for _, h := range chain {
		h(c)
		if c.IsAborted() {
			break
		}
	}
	return rec, reached
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleTeacher, ActorID: "teacher-1"}
	_, reached := runChain(t, claims, RequireRoles(models.RoleAdmin, models.RoleTeacher))
	assert.True(t, reached)
}

func TestRequireRolesBlocksOtherRole(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleStudent, ActorID: "student-1"}
	rec, reached := runChain(t, claims, RequireRoles(models.RoleAdmin, models.RoleTeacher))
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesBlocksMissingClaims(t *testing.T) {
	rec, reached := runChain(t, nil, RequireRoles(models.RoleAdmin))
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeParentLookup struct {
	parent *models.ParentDetail
	err    error
}

func (f *fakeParentLookup) FindByID(context.Context, string) (*models.ParentDetail, error) {
	return f.parent, f.err
}

func TestResolveScopeCarriesParentStudentLink(t *testing.T) {
	studentID := "student-7"
	lookup := &fakeParentLookup{parent: &models.ParentDetail{
		Parent: models.Parent{ID: "parent-1", StudentID: &studentID},
	}}
	claims := &models.JWTClaims{Role: models.RoleParent, ActorID: "parent-1"}

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	c.Set(ContextUserKey, claims)

	ResolveScope(lookup)(c)

	assert.False(t, c.IsAborted())
	value, exists := c.Get(ContextScopeKey)
	assert.True(t, exists)
	scope := value.(models.AccessScope)
	assert.Equal(t, models.RoleParent, scope.Role)
	assert.Equal(t, "parent-1", scope.ActorID)
	if assert.NotNil(t, scope.StudentID) {
		assert.Equal(t, "student-7", *scope.StudentID)
	}
}

func TestResolveScopeTeacherNeedsNoLookup(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleTeacher, ActorID: "teacher-1"}

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	c.Set(ContextUserKey, claims)

	ResolveScope(&fakeParentLookup{err: errors.New("lookup should not run")})(c)

	assert.False(t, c.IsAborted())
	value, _ := c.Get(ContextScopeKey)
	scope := value.(models.AccessScope)
	assert.Equal(t, "teacher-1", scope.ActorID)
	assert.Nil(t, scope.StudentID)
}
