package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zapsters-attendance-backend/attendance"
	"zapsters-attendance-backend/models"
)

// Postgres implements attendance.Store on a pgx connection pool. Duplicate
// attendance submissions are excluded by the UNIQUE(session_id, user_id)
// index rather than application-side locking.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ attendance.Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Domains

func (p *Postgres) CreateDomain(ctx context.Context, d models.Domain) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO domains(id, name, is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.Name, d.IsActive, d.CreatedAt, d.UpdatedAt)
	return err
}

func (p *Postgres) UpsertDomain(ctx context.Context, d models.Domain) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO domains(id, name, is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE
		 SET name=EXCLUDED.name, is_active=EXCLUDED.is_active, updated_at=EXCLUDED.updated_at`,
		d.ID, d.Name, d.IsActive, d.CreatedAt, d.UpdatedAt)
	return err
}

func (p *Postgres) GetDomain(ctx context.Context, id string) (models.Domain, error) {
	var d models.Domain
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, is_active, created_at, updated_at FROM domains WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Domain{}, attendance.ErrNotFound
		}
		return models.Domain{}, err
	}
	return d, nil
}

func (p *Postgres) ListDomains(ctx context.Context) ([]models.Domain, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, is_active, created_at, updated_at FROM domains ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Domain, 0)
	for rows.Next() {
		var d models.Domain
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateDomain(ctx context.Context, id string, name *string, isActive *bool) (models.Domain, error) {
	var d models.Domain
	err := p.pool.QueryRow(ctx,
		`UPDATE domains
		 SET name=COALESCE($2, name), is_active=COALESCE($3, is_active), updated_at=now()
		 WHERE id=$1
		 RETURNING id, name, is_active, created_at, updated_at`,
		id, name, isActive).
		Scan(&d.ID, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Domain{}, attendance.ErrNotFound
		}
		return models.Domain{}, err
	}
	return d, nil
}

func (p *Postgres) DeleteDomain(ctx context.Context, id string) error {
	cmd, err := p.pool.Exec(ctx, `DELETE FROM domains WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

// Batches

func (p *Postgres) CreateBatch(ctx context.Context, b models.Batch) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO batches(id, domain_id, name, start_date, end_date, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.DomainID, b.Name, b.StartDate, b.EndDate, b.CreatedAt)
	return err
}

func (p *Postgres) GetBatch(ctx context.Context, id string) (models.Batch, error) {
	var b models.Batch
	err := p.pool.QueryRow(ctx,
		`SELECT b.id, b.domain_id, b.name, b.start_date, b.end_date, b.created_at, d.name
		 FROM batches b
		 JOIN domains d ON d.id = b.domain_id
		 WHERE b.id=$1`, id).
		Scan(&b.ID, &b.DomainID, &b.Name, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.DomainName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Batch{}, attendance.ErrNotFound
		}
		return models.Batch{}, err
	}
	return b, nil
}

func (p *Postgres) ListBatches(ctx context.Context, domainID string) ([]models.Batch, error) {
	args := []any{}
	where := ""
	if domainID != "" {
		where = "WHERE b.domain_id=$1"
		args = append(args, domainID)
	}
	rows, err := p.pool.Query(ctx,
		`SELECT b.id, b.domain_id, b.name, b.start_date, b.end_date, b.created_at, d.name
		 FROM batches b
		 JOIN domains d ON d.id = b.domain_id
		 `+where+`
		 ORDER BY b.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Batch, 0)
	for rows.Next() {
		var b models.Batch
		if err := rows.Scan(&b.ID, &b.DomainID, &b.Name, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.DomainName); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Users

func (p *Postgres) CreateUser(ctx context.Context, u models.User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users(id, uid, email, name, role, domain_id, batch_id, password_hash, created_at)
		 VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,$9)`,
		u.ID, u.UID, u.Email, u.Name, u.Role, u.DomainID, u.BatchID, u.PasswordHash, u.CreatedAt)
	return err
}

const userColumns = `id, uid, email, name, role, COALESCE(domain_id,''), COALESCE(batch_id,''), password_hash, created_at`

func (p *Postgres) scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var hash sql.NullString
	err := row.Scan(&u.ID, &u.UID, &u.Email, &u.Name, &u.Role, &u.DomainID, &u.BatchID, &hash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, attendance.ErrNotFound
		}
		return models.User{}, err
	}
	if hash.Valid {
		u.PasswordHash = &hash.String
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (models.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (p *Postgres) GetUserByUID(ctx context.Context, uid string) (models.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid=$1`, uid))
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (p *Postgres) ListUsers(ctx context.Context, role models.UserRole, domainID, batchID string) ([]models.User, error) {
	args := []any{}
	conds := []string{}
	n := 1
	if role != "" {
		conds = append(conds, "role=$"+strconv.Itoa(n))
		args = append(args, role)
		n++
	}
	if domainID != "" {
		conds = append(conds, "domain_id=$"+strconv.Itoa(n))
		args = append(args, domainID)
		n++
	}
	if batchID != "" {
		conds = append(conds, "batch_id=$"+strconv.Itoa(n))
		args = append(args, batchID)
		n++
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users `+where+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.User, 0)
	for rows.Next() {
		u, err := p.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Sessions

func (p *Postgres) CreateSession(ctx context.Context, s models.Session) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO attendance_sessions(id, domain_id, batch_id, date, time, meet_link, attendance_code, code_expires_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.DomainID, s.BatchID, s.Date, s.Time, s.MeetLink, s.AttendanceCode, s.CodeExpiresAt, s.CreatedAt)
	return err
}

const sessionColumns = `id, domain_id, batch_id, date, time, meet_link, attendance_code, code_expires_at, created_at`

func (p *Postgres) SessionByCode(ctx context.Context, code string) (models.Session, error) {
	var s models.Session
	// Codes are not unique by construction; the earliest created match wins.
	err := p.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions
		 WHERE attendance_code=$1
		 ORDER BY created_at ASC
		 LIMIT 1`, code).
		Scan(&s.ID, &s.DomainID, &s.BatchID, &s.Date, &s.Time, &s.MeetLink, &s.AttendanceCode, &s.CodeExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, attendance.ErrNotFound
		}
		return models.Session{}, err
	}
	return s, nil
}

func (p *Postgres) ListSessions(ctx context.Context, domainID, batchID string) ([]models.Session, error) {
	args := []any{}
	conds := []string{}
	n := 1
	if domainID != "" {
		conds = append(conds, "domain_id=$"+strconv.Itoa(n))
		args = append(args, domainID)
		n++
	}
	if batchID != "" {
		conds = append(conds, "batch_id=$"+strconv.Itoa(n))
		args = append(args, batchID)
		n++
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions `+where+` ORDER BY date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.DomainID, &s.BatchID, &s.Date, &s.Time, &s.MeetLink, &s.AttendanceCode, &s.CodeExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) CountSessionsByBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendance_sessions WHERE batch_id=$1`, batchID).Scan(&n)
	return n, err
}

// Attendance records

func (p *Postgres) InsertAttendance(ctx context.Context, r models.AttendanceRecord) (bool, error) {
	cmd, err := p.pool.Exec(ctx,
		`INSERT INTO attendance_records(id, user_id, session_id, batch_id, domain_id, status, marked_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (session_id, user_id) DO NOTHING`,
		r.ID, r.UserID, r.SessionID, r.BatchID, r.DomainID, r.Status, r.Timestamp)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (p *Postgres) HasAttendance(ctx context.Context, sessionID, userID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendance_records WHERE session_id=$1 AND user_id=$2)`,
		sessionID, userID).Scan(&exists)
	return exists, err
}

func (p *Postgres) CountAttendanceByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

const recordColumns = `id, user_id, session_id, batch_id, domain_id, status, marked_at`

func (p *Postgres) ListAttendanceByUser(ctx context.Context, userID string) ([]models.AttendanceRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE user_id=$1 ORDER BY marked_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *Postgres) ListAttendance(ctx context.Context, domainID, batchID string) ([]models.AttendanceRecord, error) {
	args := []any{}
	conds := []string{}
	n := 1
	if domainID != "" {
		conds = append(conds, "domain_id=$"+strconv.Itoa(n))
		args = append(args, domainID)
		n++
	}
	if batchID != "" {
		conds = append(conds, "batch_id=$"+strconv.Itoa(n))
		args = append(args, batchID)
		n++
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM attendance_records `+where+` ORDER BY marked_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]models.AttendanceRecord, error) {
	out := make([]models.AttendanceRecord, 0)
	for rows.Next() {
		var r models.AttendanceRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.BatchID, &r.DomainID, &r.Status, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
