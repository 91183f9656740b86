package models

// Conflict report types.
const (
	ConflictTypeTeacher   = "teacher"
	ConflictTypeClassroom = "classroom"
)

// ConflictEntry identifies one slot participating in a double-booking.
type ConflictEntry struct {
	SlotID      string `json:"slot_id"`
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Classroom   string `json:"classroom"`
}

// ConflictReport describes a detected double-booking of a teacher or a
// classroom at one slot template. Reports are produced on demand and never
// persisted.
type ConflictReport struct {
	Type       string          `json:"type"`
	TemplateID string          `json:"template_id"`
	Day        string          `json:"day"`
	Time       string          `json:"time"`
	TeacherID  string          `json:"teacher_id,omitempty"`
	Classroom  string          `json:"classroom,omitempty"`
	Count      int             `json:"count"`
	Entries    []ConflictEntry `json:"entries"`
}
