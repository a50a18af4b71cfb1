package models

// Class is a read-only reference entity owned by the classes module.
type Class struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Subject is a read-only reference entity owned by the subjects module.
type Subject struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Teacher is a read-only reference entity owned by the teachers module.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	UserID   string `db:"user_id" json:"user_id"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

// StudentContact pairs an actively enrolled student's user id with the linked
// parent's, when one exists.
type StudentContact struct {
	StudentUserID string  `db:"student_user_id" json:"student_user_id"`
	ParentUserID  *string `db:"parent_user_id" json:"parent_user_id,omitempty"`
}
