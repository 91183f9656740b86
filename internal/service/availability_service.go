package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type availabilityTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListApproved(ctx context.Context) ([]models.Teacher, error)
}

type availabilityClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type availabilitySlotReader interface {
	ListSlotsByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TimeSlot, error)
}

type loadProvider interface {
	GetLoad(ctx context.Context, teacherID string) (*models.TeacherLoad, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AvailabilityService answers "can this teacher take on this class" before any
// assignment is made. The check is advisory: it inspects the weekly-hours cap
// first, then probes every grid cell for an existing booking held by the
// teacher. Any booking at all blocks the new class, regardless of what the
// candidate class's own schedule holds.
type AvailabilityService struct {
	exec     sqlx.ExtContext
	teachers availabilityTeacherReader
	classes  availabilityClassReader
	slots    availabilitySlotReader
	loads    loadProvider
	cache    cacheStore
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewAvailabilityService wires the availability checker.
func NewAvailabilityService(
	exec sqlx.ExtContext,
	teachers availabilityTeacherReader,
	classes availabilityClassReader,
	slots availabilitySlotReader,
	loads loadProvider,
	cache cacheStore,
	metrics *MetricsService,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &AvailabilityService{
		exec:     exec,
		teachers: teachers,
		classes:  classes,
		slots:    slots,
		loads:    loads,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Check reports whether a teacher can take on a class. Capacity is checked
// before collisions: a full teacher is unavailable even with a free grid.
func (s *AvailabilityService) Check(ctx context.Context, teacherID, classID string) (*dto.AvailabilityResult, error) {
	cacheKey := fmt.Sprintf("timetable:availability:%s:%s", teacherID, classID)
	if s.cache != nil {
		var cached dto.AvailabilityResult
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	load, err := s.loads.GetLoad(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	result := &dto.AvailabilityResult{
		TeacherID: teacherID,
		ClassID:   classID,
		HoursLeft: load.HoursLeft(),
	}

	if load.IsFull() {
		result.Available = false
		result.HoursLeft = 0
		result.Message = fmt.Sprintf("%s is at full capacity (%.2f/%.2f hours)", teacher.FullName, load.WeeklyHours, load.MaxWeeklyHours)
		s.storeCache(ctx, cacheKey, result)
		return result, nil
	}

	collision, found, err := s.findCollision(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if found {
		result.Available = false
		result.HoursLeft = 0
		result.Message = fmt.Sprintf("%s already teaches on %s at %s", teacher.FullName, collision.Day, collision.StartTime)
		s.storeCache(ctx, cacheKey, result)
		return result, nil
	}

	result.Available = true
	result.Message = fmt.Sprintf("%s is available (%.2f hours left)", teacher.FullName, result.HoursLeft)
	s.storeCache(ctx, cacheKey, result)
	return result, nil
}

// findCollision returns the first grid cell, in day-major order, where the
// teacher already holds a slot.
func (s *AvailabilityService) findCollision(ctx context.Context, teacherID string) (models.SlotTemplate, bool, error) {
	teacherSlots, err := s.slots.ListSlotsByTeacher(ctx, s.exec, teacherID)
	if err != nil {
		return models.SlotTemplate{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher slots")
	}
	if len(teacherSlots) == 0 {
		return models.SlotTemplate{}, false, nil
	}

	busy := make(map[string]struct{}, len(teacherSlots))
	for _, slot := range teacherSlots {
		busy[slot.TemplateID] = struct{}{}
	}

	for _, tpl := range models.Grid() {
		if _, teacherBooked := busy[tpl.ID]; teacherBooked {
			return tpl, true, nil
		}
	}
	return models.SlotTemplate{}, false, nil
}

// ListForClass projects availability for every approved teacher against one
// class, the staffing view admins use when assigning subjects.
func (s *AvailabilityService) ListForClass(ctx context.Context, classID string) (*dto.AvailableTeachersResult, error) {
	cacheKey := fmt.Sprintf("timetable:available:%s", classID)
	if s.cache != nil {
		var cached dto.AvailableTeachersResult
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	teachers, err := s.teachers.ListApproved(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved teachers")
	}

	result := &dto.AvailableTeachersResult{
		Class:         *class,
		Teachers:      make([]dto.AvailableTeacher, 0, len(teachers)),
		TotalTeachers: len(teachers),
	}

	for _, teacher := range teachers {
		check, err := s.Check(ctx, teacher.ID, classID)
		if err != nil {
			s.logger.Warn("availability check failed",
				zap.String("teacher_id", teacher.ID),
				zap.String("class_id", classID),
				zap.Error(err),
			)
			continue
		}
		load, err := s.loads.GetLoad(ctx, teacher.ID)
		if err != nil {
			s.logger.Warn("failed to load teacher hours",
				zap.String("teacher_id", teacher.ID),
				zap.Error(err),
			)
			continue
		}

		row := dto.AvailableTeacher{
			ID:           teacher.ID,
			Name:         teacher.FullName,
			Email:        teacher.Email,
			Available:    check.Available,
			Message:      check.Message,
			CurrentHours: load.WeeklyHours,
			MaxHours:     load.MaxWeeklyHours,
			HoursLeft:    load.HoursLeft(),
			IsFull:       load.IsFull(),
		}
		if row.Available {
			result.AvailableCount++
		}
		result.Teachers = append(result.Teachers, row)
	}

	s.storeCache(ctx, cacheKey, result)
	return result, nil
}

func (s *AvailabilityService) storeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache availability", zap.String("key", key), zap.Error(err))
	}
}
