package store

import (
	"context"
	"sort"
	"sync"

	"zapsters-attendance-backend/attendance"
	"zapsters-attendance-backend/models"
)

// Mem is a mutex-guarded in-memory Store used by tests. The attendance map
// is keyed by (sessionID, userID) so the uniqueness invariant holds under
// concurrent inserts.
type Mem struct {
	mu         sync.RWMutex
	domains    map[string]models.Domain
	batches    map[string]models.Batch
	users      map[string]models.User
	sessions   map[string]models.Session
	attendance map[attKey]models.AttendanceRecord
}

type attKey struct {
	sessionID string
	userID    string
}

var _ attendance.Store = (*Mem)(nil)

func NewMem() *Mem {
	return &Mem{
		domains:    make(map[string]models.Domain),
		batches:    make(map[string]models.Batch),
		users:      make(map[string]models.User),
		sessions:   make(map[string]models.Session),
		attendance: make(map[attKey]models.AttendanceRecord),
	}
}

// Domains

func (m *Mem) CreateDomain(_ context.Context, d models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[d.ID] = d
	return nil
}

func (m *Mem) UpsertDomain(ctx context.Context, d models.Domain) error {
	return m.CreateDomain(ctx, d)
}

func (m *Mem) GetDomain(_ context.Context, id string) (models.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.domains[id]
	if !ok {
		return models.Domain{}, attendance.ErrNotFound
	}
	return d, nil
}

func (m *Mem) ListDomains(_ context.Context) ([]models.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Domain, 0, len(m.domains))
	for _, d := range m.domains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Mem) UpdateDomain(_ context.Context, id string, name *string, isActive *bool) (models.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[id]
	if !ok {
		return models.Domain{}, attendance.ErrNotFound
	}
	if name != nil {
		d.Name = *name
	}
	if isActive != nil {
		d.IsActive = *isActive
	}
	m.domains[id] = d
	return d, nil
}

func (m *Mem) DeleteDomain(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.domains[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(m.domains, id)
	return nil
}

// Batches

func (m *Mem) CreateBatch(_ context.Context, b models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
	return nil
}

func (m *Mem) GetBatch(_ context.Context, id string) (models.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return models.Batch{}, attendance.ErrNotFound
	}
	return b, nil
}

func (m *Mem) ListBatches(_ context.Context, domainID string) ([]models.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		if domainID != "" && b.DomainID != domainID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Users

func (m *Mem) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Mem) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, attendance.ErrNotFound
	}
	return u, nil
}

func (m *Mem) GetUserByUID(_ context.Context, uid string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.UID == uid {
			return u, nil
		}
	}
	return models.User{}, attendance.ErrNotFound
}

func (m *Mem) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, attendance.ErrNotFound
}

func (m *Mem) ListUsers(_ context.Context, role models.UserRole, domainID, batchID string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		if domainID != "" && u.DomainID != domainID {
			continue
		}
		if batchID != "" && u.BatchID != batchID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Sessions

func (m *Mem) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Mem) SessionByCode(_ context.Context, code string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Deterministic pick when a code collides: the earliest created session.
	var found models.Session
	ok := false
	for _, s := range m.sessions {
		if s.AttendanceCode != code {
			continue
		}
		if !ok || s.CreatedAt.Before(found.CreatedAt) {
			found = s
			ok = true
		}
	}
	if !ok {
		return models.Session{}, attendance.ErrNotFound
	}
	return found, nil
}

func (m *Mem) ListSessions(_ context.Context, domainID, batchID string) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if domainID != "" && s.DomainID != domainID {
			continue
		}
		if batchID != "" && s.BatchID != batchID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (m *Mem) CountSessionsByBatch(ctx context.Context, batchID string) (int, error) {
	ss, err := m.ListSessions(ctx, "", batchID)
	if err != nil {
		return 0, err
	}
	return len(ss), nil
}

// Attendance records

func (m *Mem) InsertAttendance(_ context.Context, r models.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attKey{sessionID: r.SessionID, userID: r.UserID}
	if _, ok := m.attendance[k]; ok {
		return false, nil
	}
	m.attendance[k] = r
	return true, nil
}

func (m *Mem) HasAttendance(_ context.Context, sessionID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.attendance[attKey{sessionID: sessionID, userID: userID}]
	return ok, nil
}

func (m *Mem) CountAttendanceByUser(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k := range m.attendance {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}

func (m *Mem) ListAttendanceByUser(_ context.Context, userID string) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AttendanceRecord
	for k, r := range m.attendance {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Mem) ListAttendance(_ context.Context, domainID, batchID string) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AttendanceRecord, 0, len(m.attendance))
	for _, r := range m.attendance {
		if domainID != "" && r.DomainID != domainID {
			continue
		}
		if batchID != "" && r.BatchID != batchID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
