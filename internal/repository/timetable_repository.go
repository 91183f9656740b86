package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-lms/timetable-api/internal/models"
)

const slotColumns = `id, schedule_id, template_id, day, start_time, end_time, subject_id, teacher_id, classroom, created_at`

const slotDetailQuery = `SELECT ts.id, ts.schedule_id, ts.template_id, ts.day, ts.start_time, ts.end_time,
		ts.subject_id, ts.teacher_id, ts.classroom, ts.created_at,
		ws.class_id AS class_id, c.name AS class_name, s.name AS subject_name, t.full_name AS teacher_name
	FROM time_slots ts
	JOIN weekly_schedules ws ON ws.id = ts.schedule_id
	JOIN classes c ON c.id = ws.class_id
	JOIN subjects s ON s.id = ts.subject_id
	JOIN teachers t ON t.id = ts.teacher_id`

// TimetableRepository persists weekly schedules and their time slots. Writes
// that belong to a generation run take an sqlx.ExtContext so the whole
// delete-then-fill sequence shares one transaction.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// BeginTxx starts a transaction for a generation run.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// FindScheduleByClass loads the class's schedule; sql.ErrNoRows when the
// class has never been generated.
func (r *TimetableRepository) FindScheduleByClass(ctx context.Context, classID string) (*models.WeeklySchedule, error) {
	const query = `SELECT id, class_id, created_at, updated_at FROM weekly_schedules WHERE class_id = $1`
	var schedule models.WeeklySchedule
	if err := r.db.GetContext(ctx, &schedule, query, classID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// CreateSchedule stores a new weekly schedule for a class.
func (r *TimetableRepository) CreateSchedule(ctx context.Context, exec sqlx.ExtContext, schedule *models.WeeklySchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO weekly_schedules (id, class_id, created_at, updated_at) VALUES (:id, :class_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, schedule); err != nil {
		return fmt.Errorf("create weekly schedule: %w", err)
	}
	return nil
}

// TouchSchedule bumps the schedule's updated_at after a generation run.
func (r *TimetableRepository) TouchSchedule(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, `UPDATE weekly_schedules SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("touch weekly schedule: %w", err)
	}
	return nil
}

// CountSlots returns the number of slots currently held by a schedule.
func (r *TimetableRepository) CountSlots(ctx context.Context, scheduleID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM time_slots WHERE schedule_id = $1`, scheduleID); err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return count, nil
}

// DeleteSlotsBySchedule removes every slot of a schedule (full replace).
func (r *TimetableRepository) DeleteSlotsBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) (int64, error) {
	result, err := exec.ExecContext(ctx, `DELETE FROM time_slots WHERE schedule_id = $1`, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("delete slots by schedule: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// CreateSlot stores one time slot.
func (r *TimetableRepository) CreateSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO time_slots (id, schedule_id, template_id, day, start_time, end_time, subject_id, teacher_id, classroom, created_at)
		VALUES (:id, :schedule_id, :template_id, :day, :start_time, :end_time, :subject_id, :teacher_id, :classroom, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// UpdateSlot modifies an administratively edited slot.
func (r *TimetableRepository) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error {
	const query = `UPDATE time_slots SET template_id = :template_id, day = :day, start_time = :start_time, end_time = :end_time,
		subject_id = :subject_id, teacher_id = :teacher_id, classroom = :classroom WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slot); err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	return nil
}

// DeleteSlot removes one slot by id.
func (r *TimetableRepository) DeleteSlot(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	return nil
}

// FindSlotByID loads a slot by id.
func (r *TimetableRepository) FindSlotByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE id = $1`, slotColumns)
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// TeacherOccupiesTemplate reports whether any slot in the system books the
// teacher at the given template. Runs on the generation transaction so slots
// written earlier in the same run are visible.
func (r *TimetableRepository) TeacherOccupiesTemplate(ctx context.Context, exec sqlx.ExtContext, teacherID, templateID string) (bool, error) {
	var count int
	if err := sqlx.GetContext(ctx, exec, &count, `SELECT COUNT(*) FROM time_slots WHERE teacher_id = $1 AND template_id = $2`, teacherID, templateID); err != nil {
		return false, fmt.Errorf("check teacher occupation: %w", err)
	}
	return count > 0, nil
}

// OccupiedRooms lists every classroom already booked at a template.
func (r *TimetableRepository) OccupiedRooms(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]string, error) {
	var rooms []string
	if err := sqlx.SelectContext(ctx, exec, &rooms, `SELECT classroom FROM time_slots WHERE template_id = $1 AND classroom <> ''`, templateID); err != nil {
		return nil, fmt.Errorf("list occupied rooms: %w", err)
	}
	return rooms, nil
}

// ListSlotsByTeacher returns every slot referencing a teacher across all
// classes, on the given executor so in-flight generation writes are counted.
func (r *TimetableRepository) ListSlotsByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE teacher_id = $1 ORDER BY day ASC, start_time ASC`, slotColumns)
	var slots []models.TimeSlot
	if err := sqlx.SelectContext(ctx, exec, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list slots by teacher: %w", err)
	}
	return slots, nil
}

// ListAllDetails returns every persisted slot joined with catalog names, the
// working set of the conflict detector.
func (r *TimetableRepository) ListAllDetails(ctx context.Context) ([]models.TimeSlotDetail, error) {
	query := slotDetailQuery + ` ORDER BY ts.day ASC, ts.start_time ASC, ts.created_at ASC`
	var slots []models.TimeSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list all slot details: %w", err)
	}
	return slots, nil
}

// ListDetailsByClass returns the display rows of one class's schedule.
func (r *TimetableRepository) ListDetailsByClass(ctx context.Context, classID string) ([]models.TimeSlotDetail, error) {
	query := slotDetailQuery + ` WHERE ws.class_id = $1 ORDER BY ts.day ASC, ts.start_time ASC`
	var slots []models.TimeSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list slot details by class: %w", err)
	}
	return slots, nil
}

// ListDetailsByTeacher returns the display rows of one teacher's slots.
func (r *TimetableRepository) ListDetailsByTeacher(ctx context.Context, teacherID string) ([]models.TimeSlotDetail, error) {
	query := slotDetailQuery + ` WHERE ts.teacher_id = $1 ORDER BY ts.day ASC, ts.start_time ASC`
	var slots []models.TimeSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list slot details by teacher: %w", err)
	}
	return slots, nil
}
