package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type timetableReader interface {
	FindScheduleByClass(ctx context.Context, classID string) (*models.WeeklySchedule, error)
	ListDetailsByClass(ctx context.Context, classID string) ([]models.TimeSlotDetail, error)
	ListDetailsByTeacher(ctx context.Context, teacherID string) ([]models.TimeSlotDetail, error)
	FindSlotByID(ctx context.Context, id string) (*models.TimeSlot, error)
	CreateSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error
	UpdateSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error
	DeleteSlot(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// TimetableService serves the read-side projections of schedules and handles
// administrative slot edits. Every edit recomputes the affected teacher loads
// in the same transaction, so the aggregate never drifts from the slot set.
type TimetableService struct {
	timetable timetableReader
	classes   availabilityClassReader
	teachers  loadTeacherReader
	subjects  subjectReader
	loads     loadRecomputer
	tx        txProvider
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService wires the timetable read/edit service.
func NewTimetableService(
	timetable timetableReader,
	classes availabilityClassReader,
	teachers loadTeacherReader,
	subjects subjectReader,
	loads loadRecomputer,
	tx txProvider,
	cache cacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		timetable: timetable,
		classes:   classes,
		teachers:  teachers,
		subjects:  subjects,
		loads:     loads,
		tx:        tx,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// ClassTimetable returns one class's weekly schedule for display. A class
// that was never generated yields an empty timetable, not an error.
func (s *TimetableService) ClassTimetable(ctx context.Context, classID string) (*dto.ClassTimetable, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	result := &dto.ClassTimetable{
		ClassID:   class.ID,
		ClassName: class.Name,
		Slots:     []models.TimeSlotDetail{},
	}

	schedule, err := s.timetable.FindScheduleByClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}

	slots, err := s.timetable.ListDetailsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class slots")
	}
	sortDetails(slots)

	result.ScheduleID = schedule.ID
	result.Slots = slots
	result.TotalSlots = len(slots)
	result.HasSchedule = true
	return result, nil
}

// TeacherTimetable returns one teacher's slots across every class, with the
// load summary alongside.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID string) (*dto.TeacherTimetable, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	slots, err := s.timetable.ListDetailsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher slots")
	}
	sortDetails(slots)

	bare := make([]models.TimeSlot, len(slots))
	days := make(map[string]struct{})
	for i, slot := range slots {
		bare[i] = slot.TimeSlot
		days[slot.Day] = struct{}{}
	}
	totalHours := ComputeWeeklyHours(bare)

	maxHours := teacher.MaxWeeklyHours
	if maxHours <= 0 {
		maxHours = 20
	}

	return &dto.TeacherTimetable{
		TeacherID:       teacher.ID,
		TeacherName:     teacher.FullName,
		WeeklyHours:     totalHours,
		MaxWeeklyHours:  maxHours,
		IsFull:          totalHours >= maxHours,
		Slots:           slots,
		TotalSlots:      len(slots),
		TotalHours:      totalHours,
		DaysWithClasses: len(days),
	}, nil
}

// CreateSlot places a single slot administratively, outside a generation run.
// Occupation is not enforced here; the conflict detector surfaces any
// double-booking an admin creates on purpose.
func (s *TimetableService) CreateSlot(ctx context.Context, req dto.SlotUpsertRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	slot, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.timetable.CreateSlot(ctx, tx, slot); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
		}
		if _, err := s.loads.RecomputeWithExec(ctx, tx, slot.TeacherID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return slot, nil
}

// UpdateSlot edits an existing slot, recomputing both the old and the new
// teacher's load when the edit moves the slot between teachers.
func (s *TimetableService) UpdateSlot(ctx context.Context, id string, req dto.SlotUpsertRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	existing, err := s.timetable.FindSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}

	slot, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	slot.ID = existing.ID
	slot.CreatedAt = existing.CreatedAt

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.timetable.UpdateSlot(ctx, tx, slot); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot")
		}
		if _, err := s.loads.RecomputeWithExec(ctx, tx, slot.TeacherID); err != nil {
			return err
		}
		if existing.TeacherID != slot.TeacherID {
			if _, err := s.loads.RecomputeWithExec(ctx, tx, existing.TeacherID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return slot, nil
}

// DeleteSlot removes a slot and recomputes its teacher's load.
func (s *TimetableService) DeleteSlot(ctx context.Context, id string) error {
	existing, err := s.timetable.FindSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.timetable.DeleteSlot(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
		}
		if _, err := s.loads.RecomputeWithExec(ctx, tx, existing.TeacherID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// buildSlot resolves a slot payload against the grid and the catalog,
// denormalising day, times and teacher onto the row.
func (s *TimetableService) buildSlot(ctx context.Context, req dto.SlotUpsertRequest) (*models.TimeSlot, error) {
	tpl, ok := models.TemplateByID(req.TemplateID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown slot template")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject.TeacherID == nil || *subject.TeacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject has no teacher assigned")
	}

	if !models.KnownClassroom(req.Classroom) {
		s.logger.Warn("slot placed in a room outside the pool", zap.String("classroom", req.Classroom))
	}

	return &models.TimeSlot{
		ScheduleID: req.ScheduleID,
		TemplateID: tpl.ID,
		Day:        tpl.Day,
		StartTime:  tpl.StartTime,
		EndTime:    tpl.EndTime,
		SubjectID:  subject.ID,
		TeacherID:  *subject.TeacherID,
		Classroom:  req.Classroom,
	}, nil
}

func (s *TimetableService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

func (s *TimetableService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("failed to invalidate timetable caches", zap.Error(err))
	}
}

// sortDetails orders display rows by grid position. Rows referencing an
// unknown template sort last by creation time.
func sortDetails(slots []models.TimeSlotDetail) {
	position := make(map[string]int)
	for i, tpl := range models.Grid() {
		position[tpl.ID] = i
	}
	sort.SliceStable(slots, func(i, j int) bool {
		pi, iOK := position[slots[i].TemplateID]
		pj, jOK := position[slots[j].TemplateID]
		if iOK && jOK {
			return pi < pj
		}
		if iOK != jOK {
			return iOK
		}
		return slots[i].CreatedAt.Before(slots[j].CreatedAt)
	})
}
