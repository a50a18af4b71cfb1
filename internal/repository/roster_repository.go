package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RosterRepository resolves the users affected by a schedule change: the
// class's actively enrolled students with their linked parents, and the
// class's actively assigned teachers.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListActiveStudentContacts returns user ids of actively enrolled students in
// the class together with the parent user id when one is linked.
func (r *RosterRepository) ListActiveStudentContacts(ctx context.Context, classID string) ([]models.StudentContact, error) {
	const query = `SELECT s.user_id AS student_user_id, s.parent_user_id
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.class_id = $1 AND e.status = 'ACTIVE'`
	var contacts []models.StudentContact
	if err := r.db.SelectContext(ctx, &contacts, query, classID); err != nil {
		return nil, fmt.Errorf("list active student contacts: %w", err)
	}
	return contacts, nil
}

// ListActiveTeacherUserIDs returns user ids of teachers actively assigned to
// the class.
func (r *RosterRepository) ListActiveTeacherUserIDs(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT t.user_id
        FROM teacher_assignments ta
        JOIN teachers t ON t.id = ta.teacher_id
        WHERE ta.class_id = $1 AND ta.active = TRUE AND t.active = TRUE`
	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, classID); err != nil {
		return nil, fmt.Errorf("list active teacher user ids: %w", err)
	}
	return userIDs, nil
}
