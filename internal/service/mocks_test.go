package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mlender/goalplan/internal/models"
)

// Common test errors
var (
	errMockWrite = errors.New("mock write error")
	errMockRead  = errors.New("mock read error")
)

// mockScheduleStore is an in-memory ScheduleStore. Reads hand out deep
// copies so a test only observes state that was actually written back.
type mockScheduleStore struct {
	mu       sync.Mutex
	docs     map[string]*models.Schedule // userID|date
	failGets map[string]bool             // date → fail Get
	failPuts map[string]bool             // date → fail Upsert
	Upserts  int
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{
		docs:     make(map[string]*models.Schedule),
		failGets: make(map[string]bool),
		failPuts: make(map[string]bool),
	}
}

func key(userID, date string) string { return userID + "|" + date }

func cloneDoc(doc *models.Schedule) *models.Schedule {
	out := *doc
	out.Instances = append([]models.BlockInstance(nil), doc.Instances...)
	return &out
}

func (m *mockScheduleStore) Get(ctx context.Context, userID, date string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGets[date] {
		return nil, errMockRead
	}
	doc, ok := m.docs[key(userID, date)]
	if !ok {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

func (m *mockScheduleStore) Upsert(ctx context.Context, userID, date string, instances []models.BlockInstance) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPuts[date] {
		return nil, errMockWrite
	}
	m.Upserts++
	doc := &models.Schedule{
		UserID:    userID,
		Date:      date,
		Instances: append([]models.BlockInstance(nil), instances...),
		UpdatedAt: time.Now(),
	}
	m.docs[key(userID, date)] = doc
	return cloneDoc(doc), nil
}

func (m *mockScheduleStore) ListByUser(ctx context.Context, userID string) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, doc := range m.docs {
		if doc.UserID == userID {
			out = append(out, cloneDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// instancesOn returns the stored instances for (userID, date).
func (m *mockScheduleStore) instancesOn(t *testing.T, userID, date string) []models.BlockInstance {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key(userID, date)]
	if !ok {
		return nil
	}
	return append([]models.BlockInstance(nil), doc.Instances...)
}

// mockSeriesStore is an in-memory SeriesStore.
type mockSeriesStore struct {
	mu     sync.Mutex
	series map[string]*models.Series
}

func newMockSeriesStore() *mockSeriesStore {
	return &mockSeriesStore{series: make(map[string]*models.Series)}
}

func cloneSeries(s *models.Series) *models.Series {
	out := *s
	out.Rule.DaysOfWeek = append([]int(nil), s.Rule.DaysOfWeek...)
	out.Rule.Exceptions = append([]string(nil), s.Rule.Exceptions...)
	return &out
}

func (m *mockSeriesStore) Create(ctx context.Context, s *models.Series) (*models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.series[s.ID]; exists {
		return nil, fmt.Errorf("series %s already exists", s.ID)
	}
	m.series[s.ID] = cloneSeries(s)
	return s, nil
}

func (m *mockSeriesStore) GetByID(ctx context.Context, id string) (*models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[id]
	if !ok {
		return nil, nil
	}
	return cloneSeries(s), nil
}

func (m *mockSeriesStore) ListByUser(ctx context.Context, userID string) ([]*models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Series
	for _, s := range m.series {
		if s.UserID == userID {
			out = append(out, cloneSeries(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSeriesStore) All(ctx context.Context) ([]*models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Series
	for _, s := range m.series {
		out = append(out, cloneSeries(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSeriesStore) Update(ctx context.Context, s *models.Series) (*models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.series[s.ID]; !ok {
		return nil, &models.NotFoundError{Resource: "series", ID: s.ID}
	}
	m.series[s.ID] = cloneSeries(s)
	return s, nil
}

// newTestService wires a Service onto fresh in-memory stores with logging
// silenced.
func newTestService(t *testing.T) (*Service, *mockScheduleStore, *mockSeriesStore) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	schedules := newMockScheduleStore()
	series := newMockSeriesStore()
	return New(l, nil, schedules, series, 0), schedules, series
}
