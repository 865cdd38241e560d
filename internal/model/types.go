package model

import "time"

// Gender is the profile gender enum
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Identity represents a verified phone identity
type Identity struct {
	ID          string
	PhoneNumber string
	VerifiedAt  time.Time
}

// Profile is the persistent user profile document, keyed by identity id
type Profile struct {
	UserID            string    `json:"userId"`
	FullName          string    `json:"fullName"`
	Gender            Gender    `json:"gender"`
	DateOfBirth       string    `json:"dateOfBirth"` // YYYY-MM-DD
	Mobile            string    `json:"mobile"`
	Email             string    `json:"email"`
	City              string    `json:"city"`
	District          string    `json:"district"`
	State             string    `json:"state"`
	Pincode           string    `json:"pincode"`
	ExamName          string    `json:"examName"`
	AttemptYear       string    `json:"attemptYear"`
	Medium            string    `json:"medium"`
	Qualification     string    `json:"qualification"`
	Discipline        string    `json:"discipline"`
	College           string    `json:"college"`
	TakingCoaching    bool      `json:"takingCoaching"`
	CoachingName      string    `json:"coachingName"`
	IsProfileComplete bool      `json:"isProfileComplete"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ProfileUpdate is a partial profile change. Only non-nil fields are applied.
// There is deliberately no way to touch IsProfileComplete or CreatedAt here:
// once a profile is complete it stays complete.
type ProfileUpdate struct {
	FullName       *string `json:"fullName,omitempty"`
	Gender         *Gender `json:"gender,omitempty"`
	DateOfBirth    *string `json:"dateOfBirth,omitempty"`
	Mobile         *string `json:"mobile,omitempty"`
	Email          *string `json:"email,omitempty"`
	City           *string `json:"city,omitempty"`
	District       *string `json:"district,omitempty"`
	State          *string `json:"state,omitempty"`
	Pincode        *string `json:"pincode,omitempty"`
	ExamName       *string `json:"examName,omitempty"`
	AttemptYear    *string `json:"attemptYear,omitempty"`
	Medium         *string `json:"medium,omitempty"`
	Qualification  *string `json:"qualification,omitempty"`
	Discipline     *string `json:"discipline,omitempty"`
	College        *string `json:"college,omitempty"`
	TakingCoaching *bool   `json:"takingCoaching,omitempty"`
	CoachingName   *string `json:"coachingName,omitempty"`
}

// Note is a note document merged with its id on read. The field set is
// opaque to this core; there is no write path.
type Note struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// PDFDescriptor is a derived, read-only record describing one uploaded PDF.
// It is computed by joining a subject document with its pdf sub-collection
// and is never stored directly.
type PDFDescriptor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	ContentType string            `json:"contentType"`
	SubjectName string            `json:"subjectName"`
	SubjectID   string            `json:"subjectId"`
	Description string            `json:"description"`
	Bucket      string            `json:"bucket"`
	Metadata    map[string]string `json:"metadata"`
}

// Task is a planner task under a per-user collection. Fields holds the
// caller-supplied payload; timestamps are server-assigned.
type Task struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Challenge represents an in-flight phone verification awaiting a code
type Challenge struct {
	ID            string
	PhoneNumber   string
	CodeHash      []byte
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	CreatedAt     time.Time
	AttemptCount  int
	LastAttemptAt *time.Time
}
