package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type loadTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	List(ctx context.Context) ([]models.Teacher, error)
}

type loadSlotLister interface {
	ListSlotsByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TimeSlot, error)
}

type loadStore interface {
	Get(ctx context.Context, teacherID string) (*models.TeacherLoad, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, load *models.TeacherLoad) error
}

// LoadService keeps the per-teacher weekly-hours aggregate in sync with the
// persisted slot set. It always recomputes from scratch: recomputation is
// idempotent, so duplicate or out-of-order calls converge once the slot set
// is correct.
type LoadService struct {
	exec     sqlx.ExtContext
	teachers loadTeacherReader
	slots    loadSlotLister
	loads    loadStore
	logger   *zap.Logger

	defaultMaxHours float64
}

// NewLoadService wires the load synchronizer.
func NewLoadService(exec sqlx.ExtContext, teachers loadTeacherReader, slots loadSlotLister, loads loadStore, logger *zap.Logger, defaultMaxHours float64) *LoadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMaxHours <= 0 {
		defaultMaxHours = 20
	}
	return &LoadService{
		exec:            exec,
		teachers:        teachers,
		slots:           slots,
		loads:           loads,
		logger:          logger,
		defaultMaxHours: defaultMaxHours,
	}
}

// ComputeWeeklyHours sums slot durations in hours, rounded to 2 decimals.
// Pure function over the slot set; callers decide where the slots come from.
func ComputeWeeklyHours(slots []models.TimeSlot) float64 {
	var total float64
	for _, slot := range slots {
		total += slot.DurationHours()
	}
	return math.Round(total*100) / 100
}

// Recompute refreshes one teacher's aggregate from the full slot set and
// returns the new value.
func (s *LoadService) Recompute(ctx context.Context, teacherID string) (float64, error) {
	return s.RecomputeWithExec(ctx, s.exec, teacherID)
}

// RecomputeWithExec recomputes on the given executor so generation runs can
// include their uncommitted slots in the sum.
func (s *LoadService) RecomputeWithExec(ctx context.Context, exec sqlx.ExtContext, teacherID string) (float64, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	slots, err := s.slots.ListSlotsByTeacher(ctx, exec, teacherID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher slots")
	}

	hours := ComputeWeeklyHours(slots)
	load := &models.TeacherLoad{
		TeacherID:      teacherID,
		WeeklyHours:    hours,
		MaxWeeklyHours: s.maxHoursFor(teacher),
	}
	if err := s.loads.Upsert(ctx, exec, load); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store teacher load")
	}

	s.logger.Debug("teacher load recomputed",
		zap.String("teacher_id", teacherID),
		zap.Float64("weekly_hours", hours),
	)
	return hours, nil
}

// GetLoad returns the stored aggregate, or a zeroed one for a teacher that
// has never been referenced by a slot.
func (s *LoadService) GetLoad(ctx context.Context, teacherID string) (*models.TeacherLoad, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	load, err := s.loads.Get(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.TeacherLoad{TeacherID: teacherID, MaxWeeklyHours: s.maxHoursFor(teacher)}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher hours")
	}
	return load, nil
}

// SyncAll recomputes every teacher's aggregate and reports how many changed
// by more than 0.1h. Individual failures are collected, not fatal.
func (s *LoadService) SyncAll(ctx context.Context) (*dto.LoadSyncResult, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	result := &dto.LoadSyncResult{TotalTeachers: len(teachers), Errors: []string{}}
	for _, teacher := range teachers {
		var oldHours float64
		if load, err := s.loads.Get(ctx, teacher.ID); err == nil {
			oldHours = load.WeeklyHours
		}

		newHours, err := s.Recompute(ctx, teacher.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("teacher %s: %v", teacher.ID, err))
			continue
		}
		if math.Abs(newHours-oldHours) > 0.1 {
			result.TeachersUpdated++
			s.logger.Info("teacher load changed",
				zap.String("teacher_id", teacher.ID),
				zap.Float64("old_hours", oldHours),
				zap.Float64("new_hours", newHours),
			)
		}
	}
	return result, nil
}

func (s *LoadService) maxHoursFor(teacher *models.Teacher) float64 {
	if teacher.MaxWeeklyHours > 0 {
		return teacher.MaxWeeklyHours
	}
	return s.defaultMaxHours
}
