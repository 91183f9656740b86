package models

import "time"

// WeeklySchedule is the per-class container of time slots. It is created
// lazily on the first generation run and owns its slots: deleting the
// schedule cascades to them.
type WeeklySchedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlot is a concrete occupation of one slot template for one class.
// Day, StartTime and EndTime are denormalised from the template, and
// TeacherID is denormalised from the subject, so conflict scans and load
// recomputation read slots without joins.
type TimeSlot struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"schedule_id"`
	TemplateID string    `db:"template_id" json:"template_id"`
	Day        string    `db:"day" json:"day"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	Classroom  string    `db:"classroom" json:"classroom"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DurationHours returns the slot length in hours rounded to 2 decimals.
func (s TimeSlot) DurationHours() float64 {
	return DurationHours(s.StartTime, s.EndTime)
}

// TimeSlotDetail is a TimeSlot joined with catalog names for display and
// conflict reporting.
type TimeSlotDetail struct {
	TimeSlot
	ClassID     string `db:"class_id" json:"class_id"`
	ClassName   string `db:"class_name" json:"class_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// TeacherLoad is the cross-cutting aggregate of a teacher's weekly hours.
// WeeklyHours is always recomputed from the full slot set, never hand-edited;
// the row springs into existence zeroed the first time a teacher is
// referenced.
type TeacherLoad struct {
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	WeeklyHours    float64   `db:"weekly_hours" json:"weekly_hours"`
	MaxWeeklyHours float64   `db:"max_weekly_hours" json:"max_weekly_hours"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsFull reports whether the teacher has reached the weekly cap.
func (l TeacherLoad) IsFull() bool {
	return l.WeeklyHours >= l.MaxWeeklyHours
}

// HoursLeft returns the remaining capacity, never negative.
func (l TeacherLoad) HoursLeft() float64 {
	left := l.MaxWeeklyHours - l.WeeklyHours
	if left < 0 {
		return 0
	}
	return left
}
