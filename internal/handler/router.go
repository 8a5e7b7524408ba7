package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/middleware"
	"github.com/edutrack-io/kocluk-api/internal/models"
	"github.com/edutrack-io/kocluk-api/internal/service"
)

// ParentResolver looks up parent rows for scope resolution.
type ParentResolver interface {
	FindByID(ctx context.Context, id string) (*models.ParentDetail, error)
}

// RouterConfig bundles the handlers and cross-cutting dependencies that route
// registration needs.
type RouterConfig struct {
	Auth       *AuthHandler
	Teachers   *TeacherHandler
	Students   *StudentHandler
	Parents    *ParentHandler
	Tasks      *TaskHandler
	Routines   *RoutineTaskHandler
	Extensions *ExtensionHandler
	Curriculum *CurriculumHandler
	Reports    *ReportHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
	ParentLookup   ParentResolver

	APIPrefix      string
	ReportsEnabled bool
}

// RegisterRoutes wires every endpoint under the API prefix. Auth endpoints and
// the signed report download are public; everything else sits behind JWT and
// scope resolution, with role gates per route group.
func RegisterRoutes(r *gin.Engine, cfg RouterConfig) {
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/refresh", cfg.Auth.Refresh)
	}

	if cfg.ReportsEnabled {
		// Token-authenticated, no JWT: links are shared with parents.
		api.GET("/reports/download", cfg.Reports.Download)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(cfg.AuthService))
	protected.Use(middleware.ResolveScope(cfg.ParentLookup))

	protected.GET("/auth/me", cfg.Auth.Me)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	teacherOrAdmin := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	teachers := protected.Group("/teachers", adminOnly)
	{
		teachers.POST("", cfg.Teachers.Create)
		teachers.GET("", cfg.Teachers.List)
		teachers.GET("/:id", cfg.Teachers.Get)
		teachers.PUT("/:id", cfg.Teachers.Update)
		teachers.PATCH("/:id/status", cfg.Teachers.SetStatus)
		teachers.DELETE("/:id", cfg.Teachers.Delete)
	}

	students := protected.Group("/students")
	{
		students.POST("", teacherOrAdmin, cfg.Students.Create)
		students.GET("", cfg.Students.List)
		students.GET("/:id", cfg.Students.Get)
		students.PUT("/:id", teacherOrAdmin, cfg.Students.Update)
		students.PATCH("/:id/status", teacherOrAdmin, cfg.Students.SetStatus)
		students.DELETE("/:id", teacherOrAdmin, cfg.Students.Delete)

		students.GET("/:id/tasks", cfg.Students.ListTasks)
		students.GET("/:id/dashboard", cfg.Students.Dashboard)
		students.GET("/:id/test-results", cfg.Students.ListResults)

		students.GET("/:id/subjects", cfg.Students.ListSubjects)
		students.POST("/:id/subjects/:subjectId", teacherOrAdmin, cfg.Students.AssignSubject)
		students.DELETE("/:id/subjects/:subjectId", teacherOrAdmin, cfg.Students.UnassignSubject)
		students.POST("/:id/topics/:topicId/complete", teacherOrAdmin, cfg.Students.CompleteTopic)
	}

	parents := protected.Group("/parents")
	{
		parents.POST("", teacherOrAdmin, cfg.Parents.Create)
		parents.GET("", teacherOrAdmin, cfg.Parents.List)
		parents.GET("/:id", cfg.Parents.Get)
		parents.PUT("/:id", teacherOrAdmin, cfg.Parents.Update)
		parents.PATCH("/:id/status", teacherOrAdmin, cfg.Parents.SetStatus)
		parents.DELETE("/:id", teacherOrAdmin, cfg.Parents.Delete)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.POST("", teacherOrAdmin, cfg.Tasks.Create)
		tasks.GET("", cfg.Tasks.List)
		tasks.GET("/:id", cfg.Tasks.Get)
		tasks.PUT("/:id", teacherOrAdmin, cfg.Tasks.Update)
		tasks.DELETE("/:id", teacherOrAdmin, cfg.Tasks.Delete)
		tasks.POST("/:id/complete", studentOnly, cfg.Tasks.Complete)
		tasks.POST("/:id/extension-requests", studentOnly, cfg.Extensions.Request)
	}

	extensions := protected.Group("/extension-requests", teacherOrAdmin)
	{
		extensions.GET("", cfg.Extensions.List)
		extensions.PATCH("/:id", cfg.Extensions.Decide)
	}

	routines := protected.Group("/routine-tasks", teacherOrAdmin)
	{
		routines.POST("", cfg.Routines.Create)
		routines.GET("", cfg.Routines.List)
		routines.GET("/:id", cfg.Routines.Get)
		routines.PUT("/:id", cfg.Routines.Update)
		routines.DELETE("/:id", cfg.Routines.Deactivate)
	}

	curriculum := protected.Group("")
	{
		curriculum.GET("/classes", cfg.Curriculum.ListClasses)
		curriculum.GET("/classes/:id/subjects", cfg.Curriculum.ListSubjects)
		curriculum.GET("/subjects/:id/topics", cfg.Curriculum.ListTopics)
	}

	if cfg.ReportsEnabled {
		reports := protected.Group("/reports", teacherOrAdmin)
		{
			reports.POST("", cfg.Reports.Create)
			reports.GET("/:id", cfg.Reports.Get)
		}
	}

	if cfg.MetricsService != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsService.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
