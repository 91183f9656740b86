package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type generatorClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type generatorSubjectReader interface {
	ListEligibleByClass(ctx context.Context, classID string) ([]models.EligibleSubject, error)
}

type timetableStore interface {
	FindScheduleByClass(ctx context.Context, classID string) (*models.WeeklySchedule, error)
	CreateSchedule(ctx context.Context, exec sqlx.ExtContext, schedule *models.WeeklySchedule) error
	TouchSchedule(ctx context.Context, exec sqlx.ExtContext, id string) error
	CountSlots(ctx context.Context, scheduleID string) (int, error)
	DeleteSlotsBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error)
	CreateSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error
	TeacherOccupiesTemplate(ctx context.Context, exec sqlx.ExtContext, teacherID, templateID string) (bool, error)
	OccupiedRooms(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]string, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type loadRecomputer interface {
	RecomputeWithExec(ctx context.Context, exec sqlx.ExtContext, teacherID string) (float64, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GeneratorConfig governs generator behaviour.
type GeneratorConfig struct {
	MinPopulatedSlots int
	FallbackClassroom string
	SmartModeDefault  bool
}

// GeneratorService fills a class's weekly schedule by rotating its eligible
// subjects across the fixed grid. Allocation is greedy and strictly one class
// at a time: a primary round-robin pick per cell, then a bounded linear scan
// for a substitute when the pick's teacher is busy. It is deliberately not a
// constraint solver.
type GeneratorService struct {
	classes   generatorClassReader
	subjects  generatorSubjectReader
	timetable timetableStore
	loads     loadRecomputer
	tx        txProvider
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GeneratorConfig

	locks *teacherLocks
}

// NewGeneratorService wires the schedule generator.
func NewGeneratorService(
	classes generatorClassReader,
	subjects generatorSubjectReader,
	timetable timetableStore,
	loads loadRecomputer,
	tx txProvider,
	cache cacheInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg GeneratorConfig,
) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinPopulatedSlots <= 0 {
		cfg.MinPopulatedSlots = 15
	}
	if cfg.FallbackClassroom == "" {
		cfg.FallbackClassroom = "B101"
	}
	return &GeneratorService{
		classes:   classes,
		subjects:  subjects,
		timetable: timetable,
		loads:     loads,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		locks:     newTeacherLocks(),
	}
}

// Generate builds or rebuilds one class's weekly schedule.
//
// The delete-then-fill sequence runs inside a single transaction, so readers
// never observe a partially filled schedule. Advisory locks on every teacher
// eligible for the class serialize runs that share a teacher; without them
// two concurrent runs could both pass the occupation check and double-book.
func (s *GeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	smartMode := s.cfg.SmartModeDefault
	if req.SmartMode != nil {
		smartMode = *req.SmartMode
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	eligible, err := s.subjects.ListEligibleByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible subjects")
	}
	if len(eligible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoEligibleSubjects, fmt.Sprintf("class %s has no subject with an approved teacher", class.Name))
	}

	release := s.locks.acquire(teacherIDsOf(eligible))
	defer release()

	start := time.Now()
	result, err := s.generateLocked(ctx, class, eligible, req.ForceUpdate, smartMode)
	if err != nil {
		s.metrics.ObserveGeneration("error", 0, 0, time.Since(start))
		return nil, err
	}

	if result.Updated {
		s.metrics.ObserveGeneration("updated", result.CreatedSlots, len(result.Errors), time.Since(start))
		s.invalidateCaches(ctx)
	} else {
		s.metrics.ObserveGeneration("noop", 0, 0, time.Since(start))
	}
	return result, nil
}

func (s *GeneratorService) generateLocked(ctx context.Context, class *models.Class, eligible []models.EligibleSubject, forceUpdate, smartMode bool) (*dto.GenerationResult, error) {
	schedule, created, err := s.findOrCreatePlan(ctx, class.ID)
	if err != nil {
		return nil, err
	}

	oldCount := 0
	if !created {
		oldCount, err = s.timetable.CountSlots(ctx, schedule.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count existing slots")
		}
		// Already populated: leave the schedule untouched unless forced.
		if !forceUpdate && oldCount >= s.cfg.MinPopulatedSlots {
			s.logger.Info("schedule already populated, skipping generation",
				zap.String("class_id", class.ID),
				zap.Int("slot_count", oldCount),
			)
			return &dto.GenerationResult{
				ScheduleID:   schedule.ID,
				ClassID:      class.ID,
				CreatedSlots: oldCount,
				OldSlotCount: oldCount,
				Errors:       []string{},
				Updated:      false,
			}, nil
		}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin generation transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if schedule.ID == "" {
		if err = s.timetable.CreateSchedule(ctx, tx, schedule); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create weekly schedule")
			return nil, err
		}
	}

	if forceUpdate || created {
		var deleted int64
		if deleted, err = s.timetable.DeleteSlotsBySchedule(ctx, tx, schedule.ID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear existing slots")
			return nil, err
		}
		s.logger.Info("cleared existing slots",
			zap.String("schedule_id", schedule.ID),
			zap.Int64("deleted", deleted),
		)
	}

	createdSlots, touched, cellErrors := s.fillGrid(ctx, tx, schedule.ID, eligible, smartMode)

	teacherIDs := make([]string, 0, len(touched))
	for id := range touched {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)
	for _, teacherID := range teacherIDs {
		if _, recomputeErr := s.loads.RecomputeWithExec(ctx, tx, teacherID); recomputeErr != nil {
			s.logger.Error("failed to recompute teacher load",
				zap.String("teacher_id", teacherID),
				zap.Error(recomputeErr),
			)
			cellErrors = append(cellErrors, fmt.Sprintf("failed to update load for teacher %s", teacherID))
		}
	}

	if err = s.timetable.TouchSchedule(ctx, tx, schedule.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to touch schedule")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generation")
		return nil, err
	}

	s.logger.Info("schedule generated",
		zap.String("class_id", class.ID),
		zap.String("schedule_id", schedule.ID),
		zap.Int("created_slots", createdSlots),
		zap.Int("teachers_updated", len(teacherIDs)),
		zap.Int("cell_errors", len(cellErrors)),
		zap.Bool("smart_mode", smartMode),
	)

	return &dto.GenerationResult{
		ScheduleID:      schedule.ID,
		ClassID:         class.ID,
		CreatedSlots:    createdSlots,
		TeachersUpdated: len(teacherIDs),
		OldSlotCount:    oldCount,
		Errors:          cellErrors,
		Updated:         true,
	}, nil
}

// fillGrid walks the 20 templates in day-major order. Per-cell failures are
// recorded and the walk continues: generation is best-effort per class.
func (s *GeneratorService) fillGrid(ctx context.Context, tx *sqlx.Tx, scheduleID string, eligible []models.EligibleSubject, smartMode bool) (int, map[string]struct{}, []string) {
	createdSlots := 0
	touched := make(map[string]struct{})
	cellErrors := []string{}

	for _, tpl := range models.Grid() {
		index := (tpl.DayIndex*models.WindowsPerDay + tpl.Window) % len(eligible)
		subject := eligible[index]

		if smartMode {
			busy, err := s.timetable.TeacherOccupiesTemplate(ctx, tx, subject.TeacherID, tpl.ID)
			if err != nil {
				cellErrors = append(cellErrors, fmt.Sprintf("cell %s %s: %v", tpl.Day, tpl.StartTime, err))
				continue
			}
			if busy {
				substitute, found, err := s.findSubstitute(ctx, tx, eligible, subject.SubjectID, tpl.ID)
				if err != nil {
					cellErrors = append(cellErrors, fmt.Sprintf("cell %s %s: %v", tpl.Day, tpl.StartTime, err))
					continue
				}
				if !found {
					cellErrors = append(cellErrors, fmt.Sprintf("no teacher available for %s at %s", tpl.Day, tpl.StartTime))
					continue
				}
				subject = substitute
			}
		}

		classroom, err := s.pickClassroom(ctx, tx, tpl.ID)
		if err != nil {
			cellErrors = append(cellErrors, fmt.Sprintf("cell %s %s: %v", tpl.Day, tpl.StartTime, err))
			continue
		}

		slot := &models.TimeSlot{
			ScheduleID: scheduleID,
			TemplateID: tpl.ID,
			Day:        tpl.Day,
			StartTime:  tpl.StartTime,
			EndTime:    tpl.EndTime,
			SubjectID:  subject.SubjectID,
			TeacherID:  subject.TeacherID,
			Classroom:  classroom,
		}
		if err := s.timetable.CreateSlot(ctx, tx, slot); err != nil {
			cellErrors = append(cellErrors, fmt.Sprintf("cell %s %s: %v", tpl.Day, tpl.StartTime, err))
			continue
		}

		createdSlots++
		touched[subject.TeacherID] = struct{}{}
	}

	return createdSlots, touched, cellErrors
}

// findSubstitute linearly scans the remaining eligible subjects for one whose
// teacher is free at the template. Bounded by the subject count on purpose.
func (s *GeneratorService) findSubstitute(ctx context.Context, tx *sqlx.Tx, eligible []models.EligibleSubject, excludeSubjectID, templateID string) (models.EligibleSubject, bool, error) {
	for _, candidate := range eligible {
		if candidate.SubjectID == excludeSubjectID {
			continue
		}
		busy, err := s.timetable.TeacherOccupiesTemplate(ctx, tx, candidate.TeacherID, templateID)
		if err != nil {
			return models.EligibleSubject{}, false, err
		}
		if !busy {
			return candidate, true, nil
		}
	}
	return models.EligibleSubject{}, false, nil
}

// pickClassroom returns the first pool room free at the template, falling
// back to the configured default so a cell is always filled once a teacher
// was chosen.
func (s *GeneratorService) pickClassroom(ctx context.Context, tx *sqlx.Tx, templateID string) (string, error) {
	occupied, err := s.timetable.OccupiedRooms(ctx, tx, templateID)
	if err != nil {
		return "", err
	}
	occupiedSet := make(map[string]struct{}, len(occupied))
	for _, room := range occupied {
		occupiedSet[room] = struct{}{}
	}
	for _, room := range models.ClassroomPool {
		if _, taken := occupiedSet[room]; !taken {
			return room, nil
		}
	}
	return s.cfg.FallbackClassroom, nil
}

func (s *GeneratorService) findOrCreatePlan(ctx context.Context, classID string) (*models.WeeklySchedule, bool, error) {
	schedule, err := s.timetable.FindScheduleByClass(ctx, classID)
	if err == nil {
		return schedule, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}
	// Created lazily; the row itself is written inside the generation tx.
	return &models.WeeklySchedule{ClassID: classID}, true, nil
}

func (s *GeneratorService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("failed to invalidate timetable caches", zap.Error(err))
	}
}

func teacherIDsOf(eligible []models.EligibleSubject) []string {
	seen := make(map[string]struct{}, len(eligible))
	ids := make([]string, 0, len(eligible))
	for _, subject := range eligible {
		if _, ok := seen[subject.TeacherID]; ok {
			continue
		}
		seen[subject.TeacherID] = struct{}{}
		ids = append(ids, subject.TeacherID)
	}
	return ids
}

// --- Per-teacher advisory locks ---

// teacherLocks serializes generation runs that share a teacher. Locks are
// always acquired in sorted id order to rule out deadlock between runs.
type teacherLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTeacherLocks() *teacherLocks {
	return &teacherLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *teacherLocks) acquire(teacherIDs []string) func() {
	ids := make([]string, len(teacherIDs))
	copy(ids, teacherIDs)
	sort.Strings(ids)

	acquired := make([]*sync.Mutex, 0, len(ids))
	for i, id := range ids {
		// A repeated id must not lock the same mutex twice.
		if i > 0 && id == ids[i-1] {
			continue
		}
		l.mu.Lock()
		lock, ok := l.locks[id]
		if !ok {
			lock = &sync.Mutex{}
			l.locks[id] = lock
		}
		l.mu.Unlock()

		lock.Lock()
		acquired = append(acquired, lock)
	}

	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}
