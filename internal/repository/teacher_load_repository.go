package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus-lms/timetable-api/internal/models"
)

// TeacherLoadRepository persists the derived weekly-hours aggregate. Rows are
// only ever written through full recomputation.
type TeacherLoadRepository struct {
	db *sqlx.DB
}

// NewTeacherLoadRepository creates a new teacher load repository.
func NewTeacherLoadRepository(db *sqlx.DB) *TeacherLoadRepository {
	return &TeacherLoadRepository{db: db}
}

// Get loads a teacher's aggregate; sql.ErrNoRows when the teacher has never
// been referenced by a slot or an availability check.
func (r *TeacherLoadRepository) Get(ctx context.Context, teacherID string) (*models.TeacherLoad, error) {
	const query = `SELECT teacher_id, weekly_hours, max_weekly_hours, updated_at FROM teacher_loads WHERE teacher_id = $1`
	var load models.TeacherLoad
	if err := r.db.GetContext(ctx, &load, query, teacherID); err != nil {
		return nil, err
	}
	return &load, nil
}

// Upsert stores recomputed hours, creating the row on first reference.
func (r *TeacherLoadRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, load *models.TeacherLoad) error {
	load.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO teacher_loads (teacher_id, weekly_hours, max_weekly_hours, updated_at)
		VALUES (:teacher_id, :weekly_hours, :max_weekly_hours, :updated_at)
		ON CONFLICT (teacher_id) DO UPDATE SET weekly_hours = EXCLUDED.weekly_hours, max_weekly_hours = EXCLUDED.max_weekly_hours, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, load); err != nil {
		return fmt.Errorf("upsert teacher load: %w", err)
	}
	return nil
}

// List returns every stored aggregate.
func (r *TeacherLoadRepository) List(ctx context.Context) ([]models.TeacherLoad, error) {
	const query = `SELECT teacher_id, weekly_hours, max_weekly_hours, updated_at FROM teacher_loads ORDER BY teacher_id ASC`
	var loads []models.TeacherLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("list teacher loads: %w", err)
	}
	return loads, nil
}
