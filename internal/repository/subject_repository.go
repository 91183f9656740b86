package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-lms/timetable-api/internal/models"
)

// SubjectRepository reads the subject catalog snapshot.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID loads a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, class_id, teacher_id, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListEligibleByClass returns the class's subjects that have an approved
// teacher, in stable order. This is the exact set the generator rotates over,
// so the ordering must not depend on query plan: it sorts by creation time
// then id.
func (r *SubjectRepository) ListEligibleByClass(ctx context.Context, classID string) ([]models.EligibleSubject, error) {
	const query = `SELECT s.id AS subject_id, s.name AS subject_name, t.id AS teacher_id, t.full_name AS teacher_name
		FROM subjects s
		JOIN teachers t ON t.id = s.teacher_id
		WHERE s.class_id = $1 AND t.approved = TRUE
		ORDER BY s.created_at ASC, s.id ASC`
	var subjects []models.EligibleSubject
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list eligible subjects: %w", err)
	}
	return subjects, nil
}
