package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

// memoryCache mimics Redis semantics closely enough for invalidation tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func newTestCache(repo CacheRepository) *CacheService {
	return NewCacheService(repo, nil, CacheOptions{Enabled: true, Prefix: "test", RetryAttempts: 3}, nil)
}

// fakeEnrollmentRepo keeps rows in memory and counts calls.
type fakeEnrollmentRepo struct {
	rows       map[string]models.Enrollment
	findErrs   []error
	findCalls  int
	bulkCalls  int
	writeCalls int
	writeErr   error
	createLost bool
}

func newFakeEnrollmentRepo(rows ...models.Enrollment) *fakeEnrollmentRepo {
	repo := &fakeEnrollmentRepo{rows: make(map[string]models.Enrollment)}
	for _, row := range rows {
		repo.rows[row.ID] = row
	}
	return repo
}

func (f *fakeEnrollmentRepo) FindLatest(_ context.Context, userID, courseID string) (*models.Enrollment, error) {
	f.findCalls++
	if len(f.findErrs) > 0 {
		err := f.findErrs[0]
		f.findErrs = f.findErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var latest *models.Enrollment
	for _, row := range f.rows {
		row := row
		if row.UserID != userID || row.CourseID != courseID {
			continue
		}
		if latest == nil || row.EnrolledAt.After(latest.EnrolledAt) {
			latest = &row
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (f *fakeEnrollmentRepo) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (f *fakeEnrollmentRepo) CreatePending(_ context.Context, userID, courseID string) (*models.Enrollment, bool, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return nil, false, f.writeErr
	}
	if f.createLost {
		f.rows["raced"] = models.Enrollment{ID: "raced", UserID: userID, CourseID: courseID, Status: models.EnrollmentStatusPending, EnrolledAt: time.Now()}
		return nil, false, nil
	}
	row := models.Enrollment{ID: "created", UserID: userID, CourseID: courseID, Status: models.EnrollmentStatusPending, EnrolledAt: time.Now()}
	f.rows[row.ID] = row
	return &row, true, nil
}

func (f *fakeEnrollmentRepo) RenewExpired(_ context.Context, id string) (*models.Enrollment, error) {
	f.writeCalls++
	row, ok := f.rows[id]
	if !ok || row.Status != models.EnrollmentStatusExpired {
		return nil, sql.ErrNoRows
	}
	row.Status = models.EnrollmentStatusPending
	f.rows[id] = row
	return &row, nil
}

func (f *fakeEnrollmentRepo) UpdateStatus(_ context.Context, id string, update models.EnrollmentStatusUpdate) (*models.Enrollment, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	row.Status = update.Status
	row.ExpiryDate = update.ExpiryDate
	f.rows[id] = row
	return &row, nil
}

func (f *fakeEnrollmentRepo) BulkUpdateStatus(_ context.Context, ids []string, update models.EnrollmentStatusUpdate) ([]models.Enrollment, error) {
	f.bulkCalls++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	var updated []models.Enrollment
	for _, id := range ids {
		row, ok := f.rows[id]
		if !ok {
			continue
		}
		row.Status = update.Status
		row.ExpiryDate = update.ExpiryDate
		f.rows[id] = row
		updated = append(updated, row)
	}
	return updated, nil
}

func (f *fakeEnrollmentRepo) Delete(_ context.Context, id string) (*models.Enrollment, error) {
	f.writeCalls++
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(f.rows, id)
	return &row, nil
}

func (f *fakeEnrollmentRepo) ListByUser(_ context.Context, userID string) ([]models.EnrollmentWithCourse, error) {
	var out []models.EnrollmentWithCourse
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, models.EnrollmentWithCourse{Enrollment: row, Course: models.Course{ID: row.CourseID, Title: "Course " + row.CourseID}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEnrollmentRepo) ListByCourse(_ context.Context, courseID string) ([]models.EnrollmentWithProfile, error) {
	var out []models.EnrollmentWithProfile
	for _, row := range f.rows {
		if row.CourseID == courseID {
			name := "User " + row.UserID
			out = append(out, models.EnrollmentWithProfile{Enrollment: row, Profile: models.ProfileSummary{FullName: &name}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEnrollmentRepo) ListPending(_ context.Context) ([]models.PendingEnrollment, error) {
	var out []models.PendingEnrollment
	for _, row := range f.rows {
		if row.Status == models.EnrollmentStatusPending {
			out = append(out, models.PendingEnrollment{ID: row.ID, UserID: row.UserID, CourseID: row.CourseID, Status: row.Status})
		}
	}
	return out, nil
}

type fakeCourseRepo struct {
	courses map[string]models.Course
	err     error
	calls   int
}

func (f *fakeCourseRepo) List(_ context.Context) ([]models.Course, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	course, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}
