package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

// ClassRepository reads the class roster.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListSections returns every class with its regular teacher and the number of active
// enrollments. Sections without students are returned with a zero count.
func (r *ClassRepository) ListSections(ctx context.Context) ([]models.ClassSection, error) {
	const query = `SELECT c.id, c.name, COALESCE(c.subject, '') AS subject, COALESCE(c.teacher_id, '') AS teacher_id,
	COUNT(e.id) AS enrolled_count
FROM classes c
LEFT JOIN class_enrollments e ON e.class_id = c.id AND e.status = 'active'
GROUP BY c.id, c.name, c.subject, c.teacher_id
ORDER BY c.id ASC`
	var sections []models.ClassSection
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list class sections: %w", err)
	}
	return sections, nil
}
