package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
	"github.com/edutrack-io/kocluk-api/pkg/jobs"
)

type fakeReportJobStore struct {
	jobs     map[string]*models.ReportJob
	statuses []models.ReportStatus
	attached string
}

func newFakeReportJobStore() *fakeReportJobStore {
	return &fakeReportJobStore{jobs: map[string]*models.ReportJob{}}
}

func (f *fakeReportJobStore) Create(_ context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeReportJobStore) FindByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	copied := *job
	return &copied, nil
}

func (f *fakeReportJobStore) UpdateStatus(_ context.Context, id string, status models.ReportStatus, errorMessage *string) error {
	f.statuses = append(f.statuses, status)
	if job, ok := f.jobs[id]; ok {
		job.Status = status
		job.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeReportJobStore) AttachFile(_ context.Context, id, filePath, token string, expiresAt time.Time) error {
	f.attached = filePath
	if job, ok := f.jobs[id]; ok {
		job.Status = models.ReportStatusCompleted
		job.FilePath = &filePath
		job.DownloadToken = &token
		job.ExpiresAt = &expiresAt
	}
	return nil
}

type fakeReportTaskStore struct {
	tasks []models.Task
	err   error
}

func (f *fakeReportTaskStore) ListForStudentRange(context.Context, string, time.Time, time.Time) ([]models.Task, error) {
	return f.tasks, f.err
}

type fakeReportResultStore struct {
	results []models.TestResult
}

func (f *fakeReportResultStore) ListByStudentRange(context.Context, string, time.Time, time.Time) ([]models.TestResult, error) {
	return f.results, nil
}

type fakeOwnedStudentStore struct {
	teacherID string
}

func (f *fakeOwnedStudentStore) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	detail := &models.StudentDetail{Active: true}
	detail.ID = id
	detail.TeacherID = f.teacherID
	return detail, nil
}

type fakeReportStorage struct {
	saved map[string][]byte
}

func (f *fakeReportStorage) Save(filename string, data []byte) (string, error) {
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[filename] = data
	return filename, nil
}

func (f *fakeReportStorage) Open(string) (*os.File, error) {
	return nil, errors.New("not used")
}

type fakeReportSigner struct{}

func (fakeReportSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	return "token-" + jobID, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), nil
}

func (fakeReportSigner) Parse(string, bool) (string, string, time.Time, error) {
	return "", "", time.Time{}, errors.New("not used")
}

func newReportFixture(jobStore *fakeReportJobStore, taskStore *fakeReportTaskStore) *ReportService {
	return NewReportService(
		jobStore,
		taskStore,
		&fakeReportResultStore{},
		&fakeOwnedStudentStore{teacherID: "teacher-1"},
		&fakeReportStorage{},
		fakeReportSigner{},
		jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()},
		zap.NewNop(),
	)
}

func TestReportRequestRejectsUnknownFormat(t *testing.T) {
	svc := newReportFixture(newFakeReportJobStore(), &fakeReportTaskStore{})

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Request(context.Background(), "teacher-1", "student-1", "docx", from, from.AddDate(0, 0, 7))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportRequestHidesForeignStudent(t *testing.T) {
	svc := newReportFixture(newFakeReportJobStore(), &fakeReportTaskStore{})

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Request(context.Background(), "teacher-2", "student-1", models.ReportFormatPDF, from, from.AddDate(0, 0, 7))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportRequestMarksJobFailedWhenQueueStopped(t *testing.T) {
	jobStore := newFakeReportJobStore()
	svc := newReportFixture(jobStore, &fakeReportTaskStore{})
	// Workers never started, so the enqueue cannot succeed.

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Request(context.Background(), "teacher-1", "student-1", models.ReportFormatCSV, from, from.AddDate(0, 0, 7))
	require.Error(t, err)
	require.Contains(t, jobStore.statuses, models.ReportStatusFailed)
}

func TestReportProcessRendersAndAttachesFile(t *testing.T) {
	jobStore := newFakeReportJobStore()
	completed := time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)
	score := 17.5
	taskStore := &fakeReportTaskStore{tasks: []models.Task{
		{
			ID:          "task-1",
			StudentID:   "student-1",
			Description: "Deneme çözümü",
			Type:        models.TaskTypePracticeExam,
			StartAt:     time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			EndAt:       time.Date(2025, 3, 5, 23, 59, 0, 0, time.UTC),
			CompletedAt: &completed,
			NetScore:    &score,
		},
	}}
	svc := newReportFixture(jobStore, taskStore)

	job := &models.ReportJob{
		TeacherID:  "teacher-1",
		StudentID:  "student-1",
		Format:     models.ReportFormatCSV,
		Status:     models.ReportStatusQueued,
		RangeStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, jobStore.Create(context.Background(), job))

	err := svc.process(context.Background(), jobs.Job[string]{Payload: job.ID})
	require.NoError(t, err)

	assert.Equal(t, "student-1/"+job.ID+".csv", jobStore.attached)
	stored, findErr := jobStore.FindByID(context.Background(), job.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.ReportStatusCompleted, stored.Status)
	require.NotNil(t, stored.DownloadToken)
	assert.Equal(t, "token-"+job.ID, *stored.DownloadToken)
}

func TestReportProcessRecordsFailure(t *testing.T) {
	jobStore := newFakeReportJobStore()
	taskStore := &fakeReportTaskStore{err: errors.New("connection reset")}
	svc := newReportFixture(jobStore, taskStore)

	job := &models.ReportJob{
		TeacherID:  "teacher-1",
		StudentID:  "student-1",
		Format:     models.ReportFormatPDF,
		Status:     models.ReportStatusQueued,
		RangeStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, jobStore.Create(context.Background(), job))

	err := svc.process(context.Background(), jobs.Job[string]{Payload: job.ID})
	require.Error(t, err)

	stored, findErr := jobStore.FindByID(context.Background(), job.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "connection reset")
}

func TestReportGetHidesOtherTeachersJobs(t *testing.T) {
	jobStore := newFakeReportJobStore()
	svc := newReportFixture(jobStore, &fakeReportTaskStore{})

	job := &models.ReportJob{TeacherID: "teacher-1", StudentID: "student-1", Format: models.ReportFormatPDF, Status: models.ReportStatusQueued}
	require.NoError(t, jobStore.Create(context.Background(), job))

	_, err := svc.Get(context.Background(), "teacher-2", job.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
