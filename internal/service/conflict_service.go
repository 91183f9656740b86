package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

const conflictCacheKey = "timetable:conflicts"

type conflictSlotReader interface {
	ListAllDetails(ctx context.Context) ([]models.TimeSlotDetail, error)
}

// ConflictService scans the full slot set for double-bookings. Detection is
// read-only and on demand: reports are never persisted, and generation does
// not consult them.
type ConflictService struct {
	slots    conflictSlotReader
	cache    cacheStore
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewConflictService wires the conflict detector.
func NewConflictService(slots conflictSlotReader, cache cacheStore, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &ConflictService{
		slots:    slots,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// DetectAll reports every teacher and classroom double-booking across all
// schedules, ordered by grid position.
func (s *ConflictService) DetectAll(ctx context.Context) ([]models.ConflictReport, error) {
	if s.cache != nil {
		var cached []models.ConflictReport
		if err := s.cache.Get(ctx, conflictCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	slots, err := s.slots.ListAllDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}

	teacherGroups := make(map[[2]string][]models.TimeSlotDetail)
	roomGroups := make(map[[2]string][]models.TimeSlotDetail)
	for _, slot := range slots {
		teacherGroups[[2]string{slot.TeacherID, slot.TemplateID}] = append(teacherGroups[[2]string{slot.TeacherID, slot.TemplateID}], slot)
		// Unassigned rooms cannot collide.
		if slot.Classroom != "" {
			roomGroups[[2]string{slot.Classroom, slot.TemplateID}] = append(roomGroups[[2]string{slot.Classroom, slot.TemplateID}], slot)
		}
	}

	reports := []models.ConflictReport{}
	teacherConflicts := 0
	for key, group := range teacherGroups {
		if len(group) < 2 {
			continue
		}
		report := buildReport(models.ConflictTypeTeacher, key[1], group)
		report.TeacherID = key[0]
		reports = append(reports, report)
		teacherConflicts++
	}
	roomConflicts := 0
	for key, group := range roomGroups {
		if len(group) < 2 {
			continue
		}
		report := buildReport(models.ConflictTypeClassroom, key[1], group)
		report.Classroom = key[0]
		reports = append(reports, report)
		roomConflicts++
	}

	sortReports(reports)
	s.metrics.SetConflicts(teacherConflicts, roomConflicts)

	if len(reports) > 0 {
		s.logger.Warn("conflicts detected",
			zap.Int("teacher_conflicts", teacherConflicts),
			zap.Int("classroom_conflicts", roomConflicts),
		)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, conflictCacheKey, reports, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache conflict report", zap.Error(err))
		}
	}
	return reports, nil
}

func buildReport(conflictType, templateID string, group []models.TimeSlotDetail) models.ConflictReport {
	report := models.ConflictReport{
		Type:       conflictType,
		TemplateID: templateID,
		Count:      len(group),
		Entries:    make([]models.ConflictEntry, 0, len(group)),
	}
	if tpl, ok := models.TemplateByID(templateID); ok {
		report.Day = tpl.Day
		report.Time = tpl.Label()
	}
	sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
	for _, slot := range group {
		report.Entries = append(report.Entries, models.ConflictEntry{
			SlotID:      slot.ID,
			ClassID:     slot.ClassID,
			ClassName:   slot.ClassName,
			SubjectID:   slot.SubjectID,
			SubjectName: slot.SubjectName,
			TeacherID:   slot.TeacherID,
			TeacherName: slot.TeacherName,
			Classroom:   slot.Classroom,
		})
	}
	return report
}

// sortReports orders reports by grid position, then type, then the conflicting
// resource, so repeated scans of the same data render identically.
func sortReports(reports []models.ConflictReport) {
	position := make(map[string]int)
	for i, tpl := range models.Grid() {
		position[tpl.ID] = i
	}
	sort.Slice(reports, func(i, j int) bool {
		pi, pj := position[reports[i].TemplateID], position[reports[j].TemplateID]
		if pi != pj {
			return pi < pj
		}
		if reports[i].Type != reports[j].Type {
			return reports[i].Type < reports[j].Type
		}
		if reports[i].TeacherID != reports[j].TeacherID {
			return reports[i].TeacherID < reports[j].TeacherID
		}
		return reports[i].Classroom < reports[j].Classroom
	})
}
