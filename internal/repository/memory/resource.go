package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/domain"
	models "lectern/internal/domain/models/resource"
	resourceRepo "lectern/internal/domain/repositories/resource"
)

// ResourceStore is an in-memory ResourceStore used in dev mode and tests.
// Fail* hooks inject per-path errors; nil hooks never fail.
type ResourceStore struct {
	mutex sync.RWMutex
	table map[string]map[string]*models.ResourceRecord // course -> path -> record

	FailUpsert func(path string) error
	FailUpdate func(path string) error
	FailDelete func(path string) error
}

// NewResourceStore creates an empty store
func NewResourceStore() *ResourceStore {
	return &ResourceStore{table: make(map[string]map[string]*models.ResourceRecord)}
}

var _ resourceRepo.ResourceStore = (*ResourceStore)(nil)

func (s *ResourceStore) course(courseID string) map[string]*models.ResourceRecord {
	rows, ok := s.table[courseID]
	if !ok {
		rows = make(map[string]*models.ResourceRecord)
		s.table[courseID] = rows
	}
	return rows
}

func (s *ResourceStore) query(courseID string, keep func(path string) bool) []models.ResourceRecord {
	rows := s.table[courseID]
	out := make([]models.ResourceRecord, 0, len(rows))
	for path, rec := range rows {
		if keep(path) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *ResourceStore) List(ctx context.Context, courseID string) ([]models.ResourceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.query(courseID, func(string) bool { return true }), nil
}

func (s *ResourceStore) Get(ctx context.Context, courseID, path string) (*models.ResourceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if rec, ok := s.table[courseID][path]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("resource not found: %s", path)}
}

func (s *ResourceStore) ListByPrefix(ctx context.Context, courseID, prefix string) ([]models.ResourceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.query(courseID, func(path string) bool { return strings.HasPrefix(path, prefix) }), nil
}

func (s *ResourceStore) Upsert(ctx context.Context, rec *models.ResourceRecord, mode models.UpsertMode) error {
	if s.FailUpsert != nil {
		if err := s.FailUpsert(rec.Path); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows := s.course(rec.CourseID)
	now := time.Now()

	existing, ok := rows[rec.Path]
	if !ok {
		stored := *rec
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
		stored.UpdatedAt = now
		rows[rec.Path] = &stored
		*rec = stored
		return nil
	}

	if existing.Kind != rec.Kind {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a %s already exists at %q", existing.Kind, rec.Path),
			ResourceType: string(existing.Kind),
			ResourceID:   existing.ID,
		}
	}

	if mode == models.UpsertReplace {
		existing.Name = rec.Name
		existing.Size = rec.Size
		existing.URL = rec.URL
		existing.MimeType = rec.MimeType
		existing.ObjectKey = rec.ObjectKey
		existing.UpdatedAt = now
	}
	*rec = *existing
	return nil
}

func (s *ResourceStore) Update(ctx context.Context, courseID, path string, patch models.ResourcePatch) error {
	if s.FailUpdate != nil {
		if err := s.FailUpdate(path); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows := s.course(courseID)
	rec, ok := rows[path]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("resource not found: %s", path)}
	}
	if patch.Path != path {
		if other, taken := rows[patch.Path]; taken {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a %s already exists at %q", other.Kind, patch.Path),
				ResourceType: string(other.Kind),
				ResourceID:   other.ID,
			}
		}
	}

	delete(rows, path)
	rec.Path = patch.Path
	rec.Name = patch.Name
	rec.UpdatedAt = time.Now()
	rows[patch.Path] = rec
	return nil
}

func (s *ResourceStore) DeleteByPath(ctx context.Context, courseID, path string) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(path); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows := s.course(courseID)
	if _, ok := rows[path]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("resource not found: %s", path)}
	}
	delete(rows, path)
	return nil
}

func (s *ResourceStore) DeleteByPrefix(ctx context.Context, courseID, prefix string) (int64, error) {
	if s.FailDelete != nil {
		if err := s.FailDelete(prefix); err != nil {
			return 0, err
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var n int64
	rows := s.course(courseID)
	for path := range rows {
		if strings.HasPrefix(path, prefix) {
			delete(rows, path)
			n++
		}
	}
	return n, nil
}
