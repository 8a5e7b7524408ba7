package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edutrack-io/kocluk-api/internal/models"
)

// CurriculumRepository reads the class/subject/topic hierarchy. The hierarchy
// is seeded data; this API never mutates it.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs a CurriculumRepository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// ListClasses returns all classes ordered by grade level.
func (r *CurriculumRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, grade_level, created_at FROM classes ORDER BY grade_level, name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListSubjectsByClass returns a class's subjects in display order.
func (r *CurriculumRepository) ListSubjectsByClass(ctx context.Context, classID string) ([]models.Subject, error) {
	const query = `SELECT id, class_id, name, position, created_at FROM subjects WHERE class_id = $1 ORDER BY position, name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindSubject fetches a single subject.
func (r *CurriculumRepository) FindSubject(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, class_id, name, position, created_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListTopicsBySubject returns a subject's topics in curriculum order.
func (r *CurriculumRepository) ListTopicsBySubject(ctx context.Context, subjectID string) ([]models.Topic, error) {
	const query = `SELECT id, subject_id, name, position, created_at FROM topics WHERE subject_id = $1 ORDER BY position`
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, query, subjectID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// FindTopic fetches a single topic.
func (r *CurriculumRepository) FindTopic(ctx context.Context, id string) (*models.Topic, error) {
	const query = `SELECT id, subject_id, name, position, created_at FROM topics WHERE id = $1`
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}
