package dto

import "github.com/campus-lms/timetable-api/internal/models"

// GenerateTimetableRequest triggers a generation run for one class.
// SmartMode defaults from configuration when omitted.
type GenerateTimetableRequest struct {
	ClassID     string `json:"classId" validate:"required"`
	ForceUpdate bool   `json:"forceUpdate"`
	SmartMode   *bool  `json:"smartMode"`
}

// GenerationResult reports the outcome of one generation run. Errors collects
// per-cell failures; the run itself is best-effort and does not abort on them.
type GenerationResult struct {
	ScheduleID      string   `json:"schedule_id"`
	ClassID         string   `json:"class_id"`
	CreatedSlots    int      `json:"created_slots"`
	TeachersUpdated int      `json:"teachers_updated"`
	OldSlotCount    int      `json:"old_slot_count"`
	Errors          []string `json:"errors"`
	Updated         bool     `json:"updated"`
}

// AvailabilityResult answers whether a teacher can safely take on a new class.
type AvailabilityResult struct {
	TeacherID string  `json:"teacher_id"`
	ClassID   string  `json:"class_id"`
	Available bool    `json:"available"`
	Message   string  `json:"message"`
	HoursLeft float64 `json:"hours_left"`
}

// AvailableTeacher is one row of the available-teachers projection for a
// candidate class.
type AvailableTeacher struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Available    bool    `json:"available"`
	Message      string  `json:"message"`
	CurrentHours float64 `json:"current_hours"`
	MaxHours     float64 `json:"max_hours"`
	HoursLeft    float64 `json:"hours_left"`
	IsFull       bool    `json:"is_full"`
}

// AvailableTeachersResult lists every approved teacher with availability for
// one class.
type AvailableTeachersResult struct {
	Class          models.Class       `json:"class"`
	Teachers       []AvailableTeacher `json:"teachers"`
	TotalTeachers  int                `json:"total_teachers"`
	AvailableCount int                `json:"available_count"`
}

// ClassTimetable is the display projection of one class's schedule.
type ClassTimetable struct {
	ScheduleID  string                  `json:"schedule_id,omitempty"`
	ClassID     string                  `json:"class_id"`
	ClassName   string                  `json:"class_name"`
	Slots       []models.TimeSlotDetail `json:"slots"`
	TotalSlots  int                     `json:"total_slots"`
	HasSchedule bool                    `json:"has_schedule"`
}

// TeacherTimetable is the display projection of one teacher's slots across
// all classes, with the load summary.
type TeacherTimetable struct {
	TeacherID       string                  `json:"teacher_id"`
	TeacherName     string                  `json:"teacher_name"`
	WeeklyHours     float64                 `json:"weekly_hours"`
	MaxWeeklyHours  float64                 `json:"max_weekly_hours"`
	IsFull          bool                    `json:"is_full"`
	Slots           []models.TimeSlotDetail `json:"slots"`
	TotalSlots      int                     `json:"total_slots"`
	TotalHours      float64                 `json:"total_hours"`
	DaysWithClasses int                     `json:"days_with_classes"`
}

// SlotUpsertRequest creates or updates a time slot administratively, outside
// a generation run.
type SlotUpsertRequest struct {
	ScheduleID string `json:"scheduleId" validate:"required"`
	TemplateID string `json:"templateId" validate:"required"`
	SubjectID  string `json:"subjectId" validate:"required"`
	Classroom  string `json:"classroom" validate:"required"`
}

// LoadSyncResult reports a full recomputation pass over every teacher load.
type LoadSyncResult struct {
	TeachersUpdated int      `json:"teachers_updated"`
	TotalTeachers   int      `json:"total_teachers"`
	Errors          []string `json:"errors"`
}
