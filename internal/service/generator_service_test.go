package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type classReaderStub struct {
	classes map[string]*models.Class
}

func (s classReaderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type subjectReaderStub struct {
	eligible []models.EligibleSubject
}

func (s subjectReaderStub) ListEligibleByClass(ctx context.Context, classID string) ([]models.EligibleSubject, error) {
	return s.eligible, nil
}

// timetableStoreStub keeps slots in memory. External bookings simulate slots
// belonging to other classes' schedules.
type timetableStoreStub struct {
	schedule  *models.WeeklySchedule
	slots     []models.TimeSlot
	external  map[string][]string // templateID -> busy teacher IDs
	deleted   int64
	scheduled int
}

func (s *timetableStoreStub) FindScheduleByClass(ctx context.Context, classID string) (*models.WeeklySchedule, error) {
	if s.schedule == nil {
		return nil, sql.ErrNoRows
	}
	return s.schedule, nil
}

func (s *timetableStoreStub) CreateSchedule(ctx context.Context, exec sqlx.ExtContext, schedule *models.WeeklySchedule) error {
	s.scheduled++
	schedule.ID = fmt.Sprintf("sched-%d", s.scheduled)
	s.schedule = schedule
	return nil
}

func (s *timetableStoreStub) TouchSchedule(ctx context.Context, exec sqlx.ExtContext, id string) error {
	return nil
}

func (s *timetableStoreStub) CountSlots(ctx context.Context, scheduleID string) (int, error) {
	return len(s.slots), nil
}

func (s *timetableStoreStub) DeleteSlotsBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error) {
	s.deleted = int64(len(s.slots))
	s.slots = nil
	return s.deleted, nil
}

func (s *timetableStoreStub) CreateSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error {
	slot.ID = fmt.Sprintf("slot-%d", len(s.slots)+1)
	s.slots = append(s.slots, *slot)
	return nil
}

func (s *timetableStoreStub) TeacherOccupiesTemplate(ctx context.Context, exec sqlx.ExtContext, teacherID, templateID string) (bool, error) {
	for _, busy := range s.external[templateID] {
		if busy == teacherID {
			return true, nil
		}
	}
	for _, slot := range s.slots {
		if slot.TeacherID == teacherID && slot.TemplateID == templateID {
			return true, nil
		}
	}
	return false, nil
}

func (s *timetableStoreStub) OccupiedRooms(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]string, error) {
	var rooms []string
	for _, slot := range s.slots {
		if slot.TemplateID == templateID {
			rooms = append(rooms, slot.Classroom)
		}
	}
	return rooms, nil
}

type loadRecomputerStub struct {
	recomputed []string
}

func (s *loadRecomputerStub) RecomputeWithExec(ctx context.Context, exec sqlx.ExtContext, teacherID string) (float64, error) {
	s.recomputed = append(s.recomputed, teacherID)
	return 0, nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func threeSubjects() []models.EligibleSubject {
	return []models.EligibleSubject{
		{SubjectID: "sub-1", SubjectName: "Algorithms", TeacherID: "t1", TeacherName: "Teacher One"},
		{SubjectID: "sub-2", SubjectName: "Databases", TeacherID: "t2", TeacherName: "Teacher Two"},
		{SubjectID: "sub-3", SubjectName: "Networks", TeacherID: "t3", TeacherName: "Teacher Three"},
	}
}

type generatorFixture struct {
	service *GeneratorService
	store   *timetableStoreStub
	loads   *loadRecomputerStub
	mock    sqlmock.Sqlmock
}

func newGeneratorFixture(t *testing.T, eligible []models.EligibleSubject) *generatorFixture {
	store := &timetableStoreStub{external: map[string][]string{}}
	loads := &loadRecomputerStub{}
	tx, mock := newTxProviderMock(t)

	service := NewGeneratorService(
		classReaderStub{classes: map[string]*models.Class{"class-1": {ID: "class-1", Name: "L3 Info"}}},
		subjectReaderStub{eligible: eligible},
		store,
		loads,
		tx,
		nil,
		nil,
		nil,
		nil,
		GeneratorConfig{MinPopulatedSlots: 15, FallbackClassroom: "B101", SmartModeDefault: true},
	)
	return &generatorFixture{service: service, store: store, loads: loads, mock: mock}
}

func TestGeneratorServiceFillsFullGrid(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	assert.True(t, result.Updated)
	assert.Equal(t, 20, result.CreatedSlots)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 20, result.CreatedSlots+len(result.Errors))
	assert.Equal(t, 3, result.TeachersUpdated)
	assert.Len(t, f.store.slots, 20)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGeneratorServiceDayMajorRotation(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	bySlotTemplate := map[string]models.TimeSlot{}
	for _, slot := range f.store.slots {
		bySlotTemplate[slot.TemplateID] = slot
	}

	// index = dayIndex*4 + window, modulo the subject count.
	assert.Equal(t, "sub-1", bySlotTemplate["Monday-1"].SubjectID)
	assert.Equal(t, "sub-2", bySlotTemplate["Monday-2"].SubjectID)
	assert.Equal(t, "sub-3", bySlotTemplate["Monday-3"].SubjectID)
	assert.Equal(t, "sub-1", bySlotTemplate["Monday-4"].SubjectID)
	assert.Equal(t, "sub-2", bySlotTemplate["Tuesday-1"].SubjectID)
	assert.Equal(t, "sub-2", bySlotTemplate["Friday-1"].SubjectID) // 4*4+0 = 16, 16 mod 3 = 1
}

func TestGeneratorServiceDenormalisesTemplateFields(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	for _, slot := range f.store.slots {
		tpl, ok := models.TemplateByID(slot.TemplateID)
		require.True(t, ok)
		assert.Equal(t, tpl.Day, slot.Day)
		assert.Equal(t, tpl.StartTime, slot.StartTime)
		assert.Equal(t, tpl.EndTime, slot.EndTime)
		assert.NotEmpty(t, slot.Classroom)
	}
}

func TestGeneratorServicePopulatedScheduleIsNoop(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.store.schedule = &models.WeeklySchedule{ID: "sched-1", ClassID: "class-1"}
	for i := 0; i < 16; i++ {
		f.store.slots = append(f.store.slots, models.TimeSlot{ID: fmt.Sprintf("old-%d", i)})
	}

	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	assert.False(t, result.Updated)
	assert.Equal(t, 16, result.CreatedSlots)
	assert.Equal(t, 16, result.OldSlotCount)
	assert.Len(t, f.store.slots, 16, "no-op run must not touch existing slots")
	assert.Empty(t, f.loads.recomputed)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGeneratorServiceForceUpdateReplacesSlots(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.store.schedule = &models.WeeklySchedule{ID: "sched-1", ClassID: "class-1"}
	for i := 0; i < 16; i++ {
		f.store.slots = append(f.store.slots, models.TimeSlot{ID: fmt.Sprintf("old-%d", i)})
	}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1", ForceUpdate: true})
	require.NoError(t, err)

	assert.True(t, result.Updated)
	assert.Equal(t, 20, result.CreatedSlots)
	assert.Equal(t, 16, result.OldSlotCount)
	assert.EqualValues(t, 16, f.store.deleted)
	assert.Len(t, f.store.slots, 20)
}

func TestGeneratorServiceSparseScheduleRegenerates(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.store.schedule = &models.WeeklySchedule{ID: "sched-1", ClassID: "class-1"}
	f.store.slots = append(f.store.slots, models.TimeSlot{ID: "old-1"})
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	// Below the populated threshold the schedule is filled even without force,
	// but existing slots are kept.
	assert.True(t, result.Updated)
	assert.Zero(t, f.store.deleted)
	assert.Len(t, f.store.slots, 21)
}

func TestGeneratorServiceNoEligibleSubjects(t *testing.T) {
	f := newGeneratorFixture(t, nil)

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoEligibleSubjects.Code, appErr.Code)
	assert.Empty(t, f.store.slots, "failed precondition must not mutate anything")
	assert.Nil(t, f.store.schedule)
}

func TestGeneratorServiceClassNotFound(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGeneratorServiceValidation(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGeneratorServiceSmartModeSubstitutes(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	// t1 is booked elsewhere at Monday-1; the round-robin pick for that cell
	// is sub-1/t1, so a substitute must step in.
	f.store.external["Monday-1"] = []string{"t1"}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	assert.Equal(t, 20, result.CreatedSlots)
	assert.Empty(t, result.Errors)
	for _, slot := range f.store.slots {
		if slot.TemplateID == "Monday-1" {
			assert.Equal(t, "sub-2", slot.SubjectID, "first free eligible subject substitutes")
		}
	}
}

func TestGeneratorServiceSmartModeSkipsWhenNobodyFree(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.store.external["Monday-1"] = []string{"t1", "t2", "t3"}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	assert.Equal(t, 19, result.CreatedSlots)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "no teacher available for Monday at 08:30", result.Errors[0])
	assert.Equal(t, 20, result.CreatedSlots+len(result.Errors))
}

func TestGeneratorServiceSmartModeOffIgnoresBookings(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.store.external["Monday-1"] = []string{"t1", "t2", "t3"}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	smartMode := false
	result, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1", SmartMode: &smartMode})
	require.NoError(t, err)

	assert.Equal(t, 20, result.CreatedSlots)
	assert.Empty(t, result.Errors)
	for _, slot := range f.store.slots {
		if slot.TemplateID == "Monday-1" {
			assert.Equal(t, "sub-1", slot.SubjectID, "dumb mode keeps the round-robin pick")
		}
	}
}

func TestGeneratorServiceRecomputesEachTouchedTeacherOnce(t *testing.T) {
	f := newGeneratorFixture(t, threeSubjects())
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-1"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, f.loads.recomputed)
}

func TestTeacherLocksOrderedRelease(t *testing.T) {
	locks := newTeacherLocks()

	done := make(chan struct{})
	go func() {
		// Duplicate ids collapse to a single lock per teacher.
		release := locks.acquire([]string{"t2", "t1", "t1"})
		release()

		// Reacquiring after release must not deadlock.
		release = locks.acquire([]string{"t1", "t2"})
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock acquisition blocked")
	}
}
