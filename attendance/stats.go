package attendance

import (
	"context"
	"errors"
	"math"
	"sort"

	"zapsters-attendance-backend/models"
)

// Stats computes the eligibility summary for one student: all-time session
// count for their batch versus all-time attendance records, recomputed fresh
// on every call.
func (svc *Service) Stats(ctx context.Context, userID string) (models.AttendanceStats, error) {
	u, err := svc.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.AttendanceStats{}, ErrUserNotFound
		}
		return models.AttendanceStats{}, err
	}

	domainName := "Unknown Domain"
	if u.DomainID != "" {
		if d, err := svc.store.GetDomain(ctx, u.DomainID); err == nil {
			domainName = d.Name
		} else if !errors.Is(err, ErrNotFound) {
			return models.AttendanceStats{}, err
		}
	}

	total, err := svc.store.CountSessionsByBatch(ctx, u.BatchID)
	if err != nil {
		return models.AttendanceStats{}, err
	}
	attended, err := svc.store.CountAttendanceByUser(ctx, u.ID)
	if err != nil {
		return models.AttendanceStats{}, err
	}

	pct := Percentage(attended, total)
	name := u.Name
	if name == "" {
		name = "Student"
	}
	return models.AttendanceStats{
		StudentName:      name,
		DomainName:       domainName,
		TotalSessions:    total,
		AttendedSessions: attended,
		Percentage:       pct,
		IsEligible:       pct >= models.MinAttendancePercent,
		MinRequired:      models.MinAttendancePercent,
	}, nil
}

// Percentage derives the rounded attendance percentage, 0 when no sessions
// have been scheduled.
func Percentage(attended, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}

// StudentSessions lists every session scheduled for the student's batch with
// an attended flag, newest first.
func (svc *Service) StudentSessions(ctx context.Context, userID string) ([]models.StudentSession, error) {
	u, err := svc.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	sessions, err := svc.store.ListSessions(ctx, "", u.BatchID)
	if err != nil {
		return nil, err
	}
	records, err := svc.store.ListAttendanceByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	attended := make(map[string]struct{}, len(records))
	for _, r := range records {
		attended[r.SessionID] = struct{}{}
	}

	out := make([]models.StudentSession, 0, len(sessions))
	for _, s := range sessions {
		_, ok := attended[s.ID]
		out = append(out, models.StudentSession{Session: s, Attended: ok})
	}
	// Dates are ISO (YYYY-MM-DD) strings, so lexicographic order is
	// chronological.
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}
