package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type dashboardTaskStore interface {
	ListForStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Task, error)
}

// DashboardService builds the student's daily summary with a Redis
// read-through cache. Any write touching the student's tasks invalidates the
// snapshot, so a cache hit is always consistent with the store.
type DashboardService struct {
	tasks    dashboardTaskStore
	expander taskExpander
	cache    dashboardCache
	ttl      time.Duration
	enabled  bool
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(tasks dashboardTaskStore, expander taskExpander, cache dashboardCache, ttl time.Duration, enabled bool, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		tasks:    tasks,
		expander: expander,
		cache:    cache,
		ttl:      ttl,
		enabled:  enabled,
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics attaches the cache lookup observer.
func (s *DashboardService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// Get returns the student's dashboard for today, from cache when possible.
func (s *DashboardService) Get(ctx context.Context, studentID string) (*models.StudentDashboard, error) {
	now := s.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	key := s.cacheKey(studentID, day)

	if s.enabled {
		var cached models.StudentDashboard
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.ObserveCacheLookup(true)
			return &cached, nil
		}
		s.metrics.ObserveCacheLookup(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if _, err := s.expander.EnsureExpanded(ctx, studentID, day, day); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListForStudentRange(ctx, studentID, day, day.Add(24*time.Hour-time.Second))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list dashboard tasks")
	}

	dashboard := buildDashboard(studentID, day, tasks, now)

	if s.enabled {
		if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return dashboard, nil
}

// InvalidateStudent drops every cached dashboard for the student.
func (s *DashboardService) InvalidateStudent(ctx context.Context, studentID string) error {
	if !s.enabled {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, fmt.Sprintf("dashboard:%s:*", studentID))
}

func (s *DashboardService) cacheKey(studentID string, day time.Time) string {
	return fmt.Sprintf("dashboard:%s:%s", studentID, day.Format("2006-01-02"))
}

func buildDashboard(studentID string, day time.Time, tasks []models.Task, now time.Time) *models.StudentDashboard {
	decorated := AttachStatus(tasks, now)

	var overdue, completed int
	var scoreSum float64
	var scoreCount int
	for _, task := range decorated {
		switch task.Status {
		case models.TaskStatusOverdue:
			overdue++
		case models.TaskStatusCompleted:
			completed++
			if task.NetScore != nil {
				scoreSum += *task.NetScore
				scoreCount++
			}
		}
	}

	dashboard := &models.StudentDashboard{
		StudentID:      studentID,
		Date:           day.Format("2006-01-02"),
		Tasks:          decorated,
		OverdueCount:   overdue,
		CompletedCount: completed,
		GeneratedAt:    now,
	}
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		dashboard.AverageNetScore = &avg
	}
	return dashboard
}
