package models

import "time"

// Teacher is a coaching teacher owning students, parents, tasks and routine
// task templates.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Phone     string    `db:"phone" json:"phone"`
	Branch    string    `db:"branch" json:"branch"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail joins the teacher row with its account fields.
type TeacherDetail struct {
	Teacher
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

// Student belongs to exactly one teacher.
type Student struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	SchoolName string    `db:"school_name" json:"school_name"`
	TargetNote string    `db:"target_note" json:"target_note"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the student row with its account fields.
type StudentDetail struct {
	Student
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

// Parent belongs to one teacher and references at most one student.
type Parent struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StudentID *string   `db:"student_id" json:"student_id,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ParentDetail joins the parent row with its account fields.
type ParentDetail struct {
	Parent
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

// CreateTeacherRequest registers a teacher with its account.
type CreateTeacherRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
	Branch   string `json:"branch"`
}

// UpdateTeacherRequest edits a teacher's profile fields.
type UpdateTeacherRequest struct {
	Phone  *string `json:"phone"`
	Branch *string `json:"branch"`
}

// CreateStudentRequest registers a student with its account under a teacher.
type CreateStudentRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FullName   string `json:"full_name" validate:"required"`
	GradeLevel int    `json:"grade_level" validate:"required,min=1,max=12"`
	SchoolName string `json:"school_name"`
	TargetNote string `json:"target_note"`
}

// UpdateStudentRequest edits a student's profile fields.
type UpdateStudentRequest struct {
	GradeLevel *int    `json:"grade_level" validate:"omitempty,min=1,max=12"`
	SchoolName *string `json:"school_name"`
	TargetNote *string `json:"target_note"`
}

// CreateParentRequest registers a parent with its account under a teacher,
// optionally linked to one of the teacher's students.
type CreateParentRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FullName  string  `json:"full_name" validate:"required"`
	Phone     string  `json:"phone"`
	StudentID *string `json:"student_id" validate:"omitempty,uuid"`
}

// UpdateParentRequest edits a parent's profile fields and student link. A
// present-but-null student id breaks the link.
type UpdateParentRequest struct {
	Phone        *string `json:"phone"`
	StudentID    *string `json:"student_id" validate:"omitempty,uuid"`
	ClearStudent bool    `json:"clear_student"`
}

// UpdateStatusRequest toggles an account between ACTIVE and INACTIVE.
type UpdateStatusRequest struct {
	Status AccountStatus `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

// ActorFilter captures list filtering shared by the actor endpoints.
type ActorFilter struct {
	TeacherID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
