package attendance

import (
	"context"

	"zapsters-attendance-backend/models"
)

// Store is the persistence contract the service depends on. Implementations
// return ErrNotFound for absent records; any other error is treated as a
// store failure and surfaced to the caller unretried.
type Store interface {
	// Domains
	CreateDomain(ctx context.Context, d models.Domain) error
	UpsertDomain(ctx context.Context, d models.Domain) error
	GetDomain(ctx context.Context, id string) (models.Domain, error)
	ListDomains(ctx context.Context) ([]models.Domain, error)
	UpdateDomain(ctx context.Context, id string, name *string, isActive *bool) (models.Domain, error)
	DeleteDomain(ctx context.Context, id string) error

	// Batches
	CreateBatch(ctx context.Context, b models.Batch) error
	GetBatch(ctx context.Context, id string) (models.Batch, error)
	ListBatches(ctx context.Context, domainID string) ([]models.Batch, error)

	// Users
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByUID(ctx context.Context, uid string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, role models.UserRole, domainID, batchID string) ([]models.User, error)

	// Sessions
	CreateSession(ctx context.Context, s models.Session) error
	SessionByCode(ctx context.Context, code string) (models.Session, error)
	ListSessions(ctx context.Context, domainID, batchID string) ([]models.Session, error)
	CountSessionsByBatch(ctx context.Context, batchID string) (int, error)

	// Attendance records
	// InsertAttendance persists r unless a record for (r.SessionID, r.UserID)
	// already exists; it reports whether the insert happened. The uniqueness
	// guarantee must hold under concurrent calls.
	InsertAttendance(ctx context.Context, r models.AttendanceRecord) (bool, error)
	HasAttendance(ctx context.Context, sessionID, userID string) (bool, error)
	CountAttendanceByUser(ctx context.Context, userID string) (int, error)
	ListAttendanceByUser(ctx context.Context, userID string) ([]models.AttendanceRecord, error)
	ListAttendance(ctx context.Context, domainID, batchID string) ([]models.AttendanceRecord, error)
}
