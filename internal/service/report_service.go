package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
	"github.com/edutrack-io/kocluk-api/pkg/export"
	"github.com/edutrack-io/kocluk-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, errorMessage *string) error
	AttachFile(ctx context.Context, id, filePath, token string, expiresAt time.Time) error
}

type reportTaskStore interface {
	ListForStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.Task, error)
}

type reportResultStore interface {
	ListByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.TestResult, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type reportSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

type exporter interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReportService generates coaching reports asynchronously: a request queues a
// job, a worker renders the student's tasks and test results for the range
// into PDF or CSV, and the file is fetched later through a signed token.
type ReportService struct {
	reports  reportJobStore
	tasks    reportTaskStore
	results  reportResultStore
	students taskStudentStore
	storage  reportStorage
	signer   reportSigner
	pdf      exporter
	csv      exporter
	queue    *jobs.Queue[string]
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService constructs a ReportService. Call StartWorkers before
// enqueueing.
func NewReportService(
	reports reportJobStore,
	tasks reportTaskStore,
	results reportResultStore,
	students taskStudentStore,
	storage reportStorage,
	signer reportSigner,
	queueCfg jobs.QueueConfig,
	logger *zap.Logger,
) *ReportService {
	s := &ReportService{
		reports:  reports,
		tasks:    tasks,
		results:  results,
		students: students,
		storage:  storage,
		signer:   signer,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		logger:   logger,
		now:      time.Now,
	}
	s.queue = jobs.NewQueue("reports", s.process, queueCfg)
	return s
}

// SetMetrics attaches the report duration and failure collectors.
func (s *ReportService) SetMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// StartWorkers begins queue consumption.
func (s *ReportService) StartWorkers(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopWorkers drains the queue workers.
func (s *ReportService) StopWorkers() {
	s.queue.Stop()
}

// Request queues a report job for one of the teacher's students.
func (s *ReportService) Request(ctx context.Context, teacherID, studentID string, format models.ReportFormat, from, to time.Time) (*models.ReportJob, error) {
	if format != models.ReportFormatPDF && format != models.ReportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range end precedes range start")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if student.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	job := &models.ReportJob{
		TeacherID:  teacherID,
		StudentID:  studentID,
		Format:     format,
		Status:     models.ReportStatusQueued,
		RangeStart: from,
		RangeEnd:   to,
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "queue report")
	}

	if err := s.queue.Enqueue(jobs.Job[string]{Payload: job.ID}); err != nil {
		msg := err.Error()
		if updateErr := s.reports.UpdateStatus(ctx, job.ID, models.ReportStatusFailed, &msg); updateErr != nil {
			s.logger.Error("report status update failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue report")
	}

	s.logger.Info("report queued",
		zap.String("job_id", job.ID),
		zap.String("student_id", studentID),
		zap.String("format", string(format)))
	return job, nil
}

// Get returns a teacher's report job.
func (s *ReportService) Get(ctx context.Context, teacherID, jobID string) (*models.ReportJob, error) {
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load report")
	}
	if job.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return job, nil
}

// OpenDownload validates a signed token and opens the rendered file.
func (s *ReportService) OpenDownload(ctx context.Context, token string) (*os.File, *models.ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	if job.Status != models.ReportStatusCompleted || job.FilePath == nil || *job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "open report file")
	}
	return file, job, nil
}

// process renders one queued job. Runs on a queue worker.
func (s *ReportService) process(ctx context.Context, queued jobs.Job[string]) error {
	start := s.now()
	err := s.render(ctx, queued.Payload)
	s.metrics.ObserveReportJob(s.now().Sub(start), err != nil)
	return err
}

func (s *ReportService) render(ctx context.Context, jobID string) error {
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", jobID, err)
	}
	if err := s.reports.UpdateStatus(ctx, job.ID, models.ReportStatusProcessing, nil); err != nil {
		return err
	}

	data, err := s.buildDataset(ctx, job)
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}

	renderer := s.pdf
	ext := "pdf"
	if job.Format == models.ReportFormatCSV {
		renderer = s.csv
		ext = "csv"
	}
	rendered, err := renderer.Render(*data)
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}

	filename := fmt.Sprintf("%s/%s.%s", job.StudentID, job.ID, ext)
	relPath, err := s.storage.Save(filename, rendered)
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return s.fail(ctx, job.ID, err)
	}
	if err := s.reports.AttachFile(ctx, job.ID, relPath, token, expiresAt); err != nil {
		return err
	}

	s.logger.Info("report rendered", zap.String("job_id", job.ID), zap.String("file", relPath))
	return nil
}

func (s *ReportService) fail(ctx context.Context, jobID string, cause error) error {
	msg := cause.Error()
	if err := s.reports.UpdateStatus(ctx, jobID, models.ReportStatusFailed, &msg); err != nil {
		s.logger.Error("report status update failed", zap.String("job_id", jobID), zap.Error(err))
	}
	return cause
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (*export.Dataset, error) {
	tasks, err := s.tasks.ListForStudentRange(ctx, job.StudentID, job.RangeStart, job.RangeEnd)
	if err != nil {
		return nil, fmt.Errorf("list report tasks: %w", err)
	}
	results, err := s.results.ListByStudentRange(ctx, job.StudentID, job.RangeStart, job.RangeEnd)
	if err != nil {
		return nil, fmt.Errorf("list report results: %w", err)
	}

	now := s.now().UTC()
	headers := []string{"Date", "Kind", "Description", "Status", "Net Score"}
	rows := make([]map[string]string, 0, len(tasks)+len(results))

	for _, task := range tasks {
		status := ClassifyTask(task.EndAt, task.CompletedAt, now)
		row := map[string]string{
			"Date":        task.StartAt.Format("2006-01-02"),
			"Kind":        string(task.Type),
			"Description": task.Description,
			"Status":      string(status),
			"Net Score":   "",
		}
		if task.NetScore != nil {
			row["Net Score"] = strconv.FormatFloat(*task.NetScore, 'f', 2, 64)
		}
		rows = append(rows, row)
	}
	for _, result := range results {
		rows = append(rows, map[string]string{
			"Date":        result.TakenAt.Format("2006-01-02"),
			"Kind":        "test_result",
			"Description": result.SubjectName,
			"Status":      "recorded",
			"Net Score":   strconv.FormatFloat(result.NetScore, 'f', 2, 64),
		})
	}

	return &export.Dataset{
		Title:   fmt.Sprintf("Coaching report %s - %s", job.RangeStart.Format("2006-01-02"), job.RangeEnd.Format("2006-01-02")),
		Headers: headers,
		Rows:    rows,
	}, nil
}
