package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campus-lms/timetable-api/internal/models"
)

// ClassRepository reads the class catalog snapshot. Class CRUD lives in the
// surrounding roster system; the engine only consumes it.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID loads a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}
