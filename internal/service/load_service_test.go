package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type teacherReaderStub struct {
	teachers map[string]*models.Teacher
	order    []string
}

func (s teacherReaderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

func (s teacherReaderStub) List(ctx context.Context) ([]models.Teacher, error) {
	out := make([]models.Teacher, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.teachers[id])
	}
	return out, nil
}

type slotListerStub struct {
	byTeacher map[string][]models.TimeSlot
}

func (s slotListerStub) ListSlotsByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TimeSlot, error) {
	return s.byTeacher[teacherID], nil
}

type loadStoreStub struct {
	loads map[string]*models.TeacherLoad
}

func (s *loadStoreStub) Get(ctx context.Context, teacherID string) (*models.TeacherLoad, error) {
	load, ok := s.loads[teacherID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return load, nil
}

func (s *loadStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, load *models.TeacherLoad) error {
	copied := *load
	s.loads[load.TeacherID] = &copied
	return nil
}

func slotAt(start, end string) models.TimeSlot {
	return models.TimeSlot{StartTime: start, EndTime: end}
}

func newLoadFixture(t *testing.T, slots map[string][]models.TimeSlot) (*LoadService, *loadStoreStub) {
	teachers := teacherReaderStub{
		teachers: map[string]*models.Teacher{
			"t1": {ID: "t1", FullName: "Teacher One", MaxWeeklyHours: 20},
			"t2": {ID: "t2", FullName: "Teacher Two", MaxWeeklyHours: 10},
		},
		order: []string{"t1", "t2"},
	}
	store := &loadStoreStub{loads: map[string]*models.TeacherLoad{}}
	return NewLoadService(nil, teachers, slotListerStub{byTeacher: slots}, store, nil, 20), store
}

func TestComputeWeeklyHours(t *testing.T) {
	slots := []models.TimeSlot{
		slotAt("08:30", "10:00"),
		slotAt("10:15", "11:45"),
		slotAt("13:00", "14:30"),
	}
	assert.InDelta(t, 4.5, ComputeWeeklyHours(slots), 0.001)
	assert.Zero(t, ComputeWeeklyHours(nil))
	assert.Zero(t, ComputeWeeklyHours([]models.TimeSlot{slotAt("10:00", "08:30")}))
	assert.Zero(t, ComputeWeeklyHours([]models.TimeSlot{slotAt("bad", "10:00")}))
}

func TestLoadServiceRecompute(t *testing.T) {
	svc, store := newLoadFixture(t, map[string][]models.TimeSlot{
		"t1": {slotAt("08:30", "10:00"), slotAt("10:15", "11:45")},
	})

	hours, err := svc.Recompute(context.Background(), "t1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, hours, 0.001)

	load := store.loads["t1"]
	require.NotNil(t, load)
	assert.InDelta(t, 3.0, load.WeeklyHours, 0.001)
	assert.InDelta(t, 20.0, load.MaxWeeklyHours, 0.001)
}

func TestLoadServiceRecomputeUnknownTeacher(t *testing.T) {
	svc, _ := newLoadFixture(t, nil)

	_, err := svc.Recompute(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLoadServiceGetLoadSpringsIntoExistence(t *testing.T) {
	svc, _ := newLoadFixture(t, nil)

	load, err := svc.GetLoad(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, "t2", load.TeacherID)
	assert.Zero(t, load.WeeklyHours)
	assert.InDelta(t, 10.0, load.MaxWeeklyHours, 0.001)
	assert.False(t, load.IsFull())
	assert.InDelta(t, 10.0, load.HoursLeft(), 0.001)
}

func TestLoadServiceSyncAll(t *testing.T) {
	svc, store := newLoadFixture(t, map[string][]models.TimeSlot{
		"t1": {slotAt("08:30", "10:00")},
	})
	// A stale aggregate well off the recomputed value counts as updated.
	store.loads["t1"] = &models.TeacherLoad{TeacherID: "t1", WeeklyHours: 9.0, MaxWeeklyHours: 20}
	// t2 has no slots and no stored load: recomputes to 0, below the change
	// threshold.
	result, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalTeachers)
	assert.Equal(t, 1, result.TeachersUpdated)
	assert.Empty(t, result.Errors)
	assert.InDelta(t, 1.5, store.loads["t1"].WeeklyHours, 0.001)
}

func TestLoadServiceSyncAllBelowThresholdNotCounted(t *testing.T) {
	svc, store := newLoadFixture(t, map[string][]models.TimeSlot{
		"t1": {slotAt("08:30", "10:00")},
	})
	store.loads["t1"] = &models.TeacherLoad{TeacherID: "t1", WeeklyHours: 1.45, MaxWeeklyHours: 20}

	result, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	// 1.45 -> 1.5 is a 0.05h drift, within the 0.1h tolerance.
	assert.Zero(t, result.TeachersUpdated)
}

func TestTeacherLoadBoundaries(t *testing.T) {
	full := models.TeacherLoad{WeeklyHours: 20, MaxWeeklyHours: 20}
	assert.True(t, full.IsFull())
	assert.Zero(t, full.HoursLeft())

	nearly := models.TeacherLoad{WeeklyHours: 19.5, MaxWeeklyHours: 20}
	assert.False(t, nearly.IsFull())
	assert.InDelta(t, 0.5, nearly.HoursLeft(), 0.001)

	over := models.TeacherLoad{WeeklyHours: 21, MaxWeeklyHours: 20}
	assert.True(t, over.IsFull())
	assert.Zero(t, over.HoursLeft())
}
