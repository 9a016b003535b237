package models

import "time"

// ErrorResponse represents a generic error structure for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserRole enum (defined here as the canonical type)
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleTutor   UserRole = "tutor"
	UserRoleStudent UserRole = "student"
)

// AttendanceStatus enum. Only "present" records are ever persisted; absence
// is the computed complement.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
)

// MinAttendancePercent is the certificate eligibility threshold (inclusive).
const MinAttendancePercent = 75

// Main Models

type Domain struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Batch struct {
	ID        string    `json:"id"`
	DomainID  string    `json:"domainId"`
	Name      string    `json:"name"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`

	// Enriched fields for responses
	DomainName string `json:"domainName,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	DomainID     string    `json:"domainId,omitempty"`
	BatchID      string    `json:"batchId,omitempty"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is one scheduled class meeting carrying a redeemable attendance
// code. Code and expiry are set at creation and never mutated.
type Session struct {
	ID             string    `json:"id"`
	DomainID       string    `json:"domainId"`
	BatchID        string    `json:"batchId"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	MeetLink       string    `json:"meetLink"`
	AttendanceCode string    `json:"attendanceCode"`
	CodeExpiresAt  time.Time `json:"codeExpiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// StudentSession is a Session enriched with the per-student attended flag.
type StudentSession struct {
	Session
	Attended bool `json:"attended"`
}

type AttendanceRecord struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	SessionID string           `json:"sessionId"`
	BatchID   string           `json:"batchId"`
	DomainID  string           `json:"domainId"`
	Status    AttendanceStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
}

// AttendanceStats is the eligibility summary for one student.
type AttendanceStats struct {
	StudentName      string `json:"studentName"`
	DomainName       string `json:"domainName"`
	TotalSessions    int    `json:"totalSessions"`
	AttendedSessions int    `json:"attendedSessions"`
	Percentage       int    `json:"percentage"`
	IsEligible       bool   `json:"isEligible"`
	MinRequired      int    `json:"minRequired"`
}

type LowAttendanceStudent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	DomainName string `json:"domainName"`
	BatchName  string `json:"batchName"`
	Percentage int    `json:"attendancePercentage"`
}

type DashboardStats struct {
	TotalDomains          int                    `json:"totalDomains"`
	TotalBatches          int                    `json:"totalBatches"`
	TotalStudents         int                    `json:"totalStudents"`
	StudentsBelow75       int                    `json:"studentsBelow75"`
	AverageAttendance     int                    `json:"averageAttendance"`
	LowAttendanceStudents []LowAttendanceStudent `json:"lowAttendanceStudents"`
}

// Request DTOs (Data Transfer Objects)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int      `json:"expires_in"`
	Role        UserRole `json:"role"`
	UserID      string   `json:"user_id"`
}

type CreateDomainRequest struct {
	Name string `json:"name" validate:"required"`
}

type UpdateDomainRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

type CreateBatchRequest struct {
	DomainID  string `json:"domainId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

type CreateStudentRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	DomainID string  `json:"domainId" validate:"required"`
	BatchID  string  `json:"batchId" validate:"required"`
	Password *string `json:"password,omitempty"`
}

type CreateTutorRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	DomainID string  `json:"domainId" validate:"required"`
	Password *string `json:"password,omitempty"`
}

type CreateSessionRequest struct {
	DomainID        string `json:"domainId" validate:"required"`
	BatchID         string `json:"batchId" validate:"required"`
	Date            string `json:"date" validate:"required"`
	Time            string `json:"time" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
	MeetLink        string `json:"meetLink"`
}

type MarkAttendanceRequest struct {
	UserID string `json:"userId" validate:"required"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}
