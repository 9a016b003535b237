package attendance

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"zapsters-attendance-backend/models"
)

// DefaultCodeTTL is the validity window applied when a session is created
// without an explicit duration.
const DefaultCodeTTL = 5 * time.Minute

// Service owns the session/attendance protocol: code issuance, expiry
// enforcement, hierarchy validation, duplicate prevention and eligibility
// derivation. All persistence goes through the injected Store.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// NewServiceWithClock pins the service's notion of "now", which tests use to
// drive codes across their expiry boundary.
func NewServiceWithClock(store Store, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

// Store exposes the underlying store for the surrounding CRUD handlers.
func (svc *Service) Store() Store {
	return svc.store
}

// BatchBelongsToDomain reports whether the batch exists and references the
// given domain. An absent batch fails the check, never passes it.
func (svc *Service) BatchBelongsToDomain(ctx context.Context, batchID, domainID string) (bool, error) {
	b, err := svc.store.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return b.DomainID == domainID, nil
}

// UserMatchesSession reports whether the user's home domain and batch equal
// the session's. Empty fields on the user fail closed.
func UserMatchesSession(u models.User, s models.Session) bool {
	if u.DomainID == "" || u.BatchID == "" {
		return false
	}
	return u.DomainID == s.DomainID && u.BatchID == s.BatchID
}

// CreateSessionInput carries the tutor/admin supplied session parameters.
type CreateSessionInput struct {
	DomainID        string
	BatchID         string
	Date            string
	Time            string
	DurationMinutes int
	MeetLink        string
}

// CreateSession validates the domain/batch pairing, generates a random
// 6-digit attendance code with a fixed expiry and persists the session.
// Generation and persistence are a single attempt; code uniqueness across
// active sessions is probabilistic, not guaranteed.
func (svc *Service) CreateSession(ctx context.Context, in CreateSessionInput) (models.Session, error) {
	ok, err := svc.BatchBelongsToDomain(ctx, in.BatchID, in.DomainID)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, ErrBadHierarchy
	}

	code, err := generateCode()
	if err != nil {
		return models.Session{}, err
	}
	ttl := DefaultCodeTTL
	if in.DurationMinutes > 0 {
		ttl = time.Duration(in.DurationMinutes) * time.Minute
	}

	now := svc.now()
	s := models.Session{
		ID:             uuid.NewString(),
		DomainID:       in.DomainID,
		BatchID:        in.BatchID,
		Date:           in.Date,
		Time:           in.Time,
		MeetLink:       in.MeetLink,
		AttendanceCode: code,
		CodeExpiresAt:  now.Add(ttl),
		CreatedAt:      now,
	}
	if err := svc.store.CreateSession(ctx, s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

// MarkAttendance resolves a submitted code to an active session and records
// presence for the user. Checks run in a fixed order: code lookup, expiry,
// identity, hierarchy, duplicate, commit. The final conditional insert backs
// the duplicate check so two concurrent submissions cannot both commit.
func (svc *Service) MarkAttendance(ctx context.Context, userID, code string) (models.AttendanceRecord, error) {
	s, err := svc.store.SessionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.AttendanceRecord{}, ErrInvalidCode
		}
		return models.AttendanceRecord{}, err
	}

	if svc.now().After(s.CodeExpiresAt) {
		return models.AttendanceRecord{}, ErrCodeExpired
	}

	u, err := svc.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.AttendanceRecord{}, ErrUserNotFound
		}
		return models.AttendanceRecord{}, err
	}

	if !UserMatchesSession(u, s) {
		return models.AttendanceRecord{}, &HierarchyError{
			UserDomain:    u.DomainID,
			UserBatch:     u.BatchID,
			SessionDomain: s.DomainID,
			SessionBatch:  s.BatchID,
		}
	}

	marked, err := svc.store.HasAttendance(ctx, s.ID, u.ID)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if marked {
		return models.AttendanceRecord{}, ErrAlreadyMarked
	}

	r := models.AttendanceRecord{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		SessionID: s.ID,
		BatchID:   s.BatchID,
		DomainID:  s.DomainID,
		Status:    models.StatusPresent,
		Timestamp: svc.now(),
	}
	inserted, err := svc.store.InsertAttendance(ctx, r)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if !inserted {
		// Lost the race to a concurrent submission for the same pair.
		return models.AttendanceRecord{}, ErrAlreadyMarked
	}
	return r, nil
}

// generateCode draws a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate attendance code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
