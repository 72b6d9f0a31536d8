package enrollment

import "time"

type Status string

const (
	Active    Status = "active"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
)

type Source string

const (
	SourcePayment Source = "payment"
	SourceManual  Source = "manual"
	SourcePremium Source = "premium"
)

// PremiumPass is the sentinel course name granting access to every
// course. A premium purchase stores this single row instead of one row
// per course; HasAccess expands it on the read side.
const PremiumPass = "Premium Pass"

type Enrollment struct {
	ID          string     `json:"id" db:"enrollment_id"`
	UserID      string     `json:"userId" db:"user_id"`
	CourseName  string     `json:"courseName" db:"course_name"`
	Status      Status     `json:"status" db:"status"`
	Source      Source     `json:"source" db:"source"`
	Progress    int        `json:"progress" db:"progress"`
	EnrolledAt  time.Time  `json:"enrolledAt" db:"enrolled_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

type GrantNew struct {
	Email      string   `json:"email" validate:"required,email"`
	AccessType string   `json:"accessType" validate:"required,oneof=premium_pass course"`
	Courses    []string `json:"courses" validate:"required_if=AccessType course,dive,required"`
}
