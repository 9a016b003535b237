package attendance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	att "zapsters-attendance-backend/attendance"
	hAttendance "zapsters-attendance-backend/handlers/attendance"
	mw "zapsters-attendance-backend/middleware"
	"zapsters-attendance-backend/models"
	"zapsters-attendance-backend/store"
)

type fixture struct {
	app     *fiber.App
	store   *store.Mem
	svc     *att.Service
	admin   models.User
	tutor   models.User
	student models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	ctx := context.Background()
	st := store.NewMem()
	svc := att.NewService(st)

	require.NoError(t, st.CreateDomain(ctx, models.Domain{ID: "web-dev", Name: "Web Development", IsActive: true}))
	require.NoError(t, st.CreateDomain(ctx, models.Domain{ID: "ui-ux", Name: "UI/UX", IsActive: true}))
	require.NoError(t, st.CreateBatch(ctx, models.Batch{ID: "batch-a", DomainID: "web-dev", Name: "Batch A"}))

	f := &fixture{
		app:   fiber.New(),
		store: st,
		svc:   svc,
		admin: models.User{
			ID: "admin-1", UID: "uid-admin-1", Email: "admin@example.com",
			Name: "Admin", Role: models.UserRoleAdmin,
		},
		tutor: models.User{
			ID: "tutor-1", UID: "uid-tutor-1", Email: "tutor@example.com",
			Name: "Tutor", Role: models.UserRoleTutor, DomainID: "web-dev",
		},
		student: models.User{
			ID: "student-1", UID: "uid-student-1", Email: "student@example.com",
			Name: "Asha", Role: models.UserRoleStudent, DomainID: "web-dev", BatchID: "batch-a",
		},
	}
	for _, u := range []models.User{f.admin, f.tutor, f.student} {
		require.NoError(t, st.CreateUser(ctx, u))
	}

	jwtGuard := mw.JwtGuard()
	requireAdmin := mw.RequireRole(string(models.UserRoleAdmin))
	requireStaff := mw.RequireRole(string(models.UserRoleTutor), string(models.UserRoleAdmin))
	hAttendance.Register(f.app.Group("/attendance"), svc, jwtGuard, requireStaff, requireAdmin)
	return f
}

func (f *fixture) request(t *testing.T, method, path string, as models.User, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	token, err := mw.BuildAccessToken(as, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateSessionEndpoint(t *testing.T) {
	body := models.CreateSessionRequest{
		DomainID: "web-dev",
		BatchID:  "batch-a",
		Date:     "2026-03-10",
		Time:     "18:00",
		MeetLink: "https://meet.example.com/xyz",
	}

	t.Run("tutor creates session", func(t *testing.T) {
		f := setup(t)
		resp := f.request(t, http.MethodPost, "/attendance/sessions", f.tutor, body)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		s := decode[models.Session](t, resp)
		assert.Len(t, s.AttendanceCode, 6)
		assert.False(t, s.CodeExpiresAt.IsZero())
	})

	t.Run("student cannot create session", func(t *testing.T) {
		f := setup(t)
		resp := f.request(t, http.MethodPost, "/attendance/sessions", f.student, body)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("hierarchy mismatch is a 400", func(t *testing.T) {
		f := setup(t)
		bad := body
		bad.DomainID = "ui-ux"
		resp := f.request(t, http.MethodPost, "/attendance/sessions", f.tutor, bad)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing fields are a 400", func(t *testing.T) {
		f := setup(t)
		resp := f.request(t, http.MethodPost, "/attendance/sessions", f.tutor, fiber.Map{"domainId": "web-dev"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func (f *fixture) createSession(t *testing.T) models.Session {
	t.Helper()
	resp := f.request(t, http.MethodPost, "/attendance/sessions", f.tutor, models.CreateSessionRequest{
		DomainID: "web-dev",
		BatchID:  "batch-a",
		Date:     "2026-03-10",
		Time:     "18:00",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decode[models.Session](t, resp)
}

func TestMarkEndpoint(t *testing.T) {
	t.Run("accepted then rejected as duplicate", func(t *testing.T) {
		f := setup(t)
		s := f.createSession(t)

		mark := models.MarkAttendanceRequest{UserID: "student-1", Code: s.AttendanceCode}
		resp := f.request(t, http.MethodPost, "/attendance/mark", f.student, mark)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = f.request(t, http.MethodPost, "/attendance/mark", f.student, mark)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(b), "already marked")
	})

	t.Run("cannot mark for another user", func(t *testing.T) {
		f := setup(t)
		s := f.createSession(t)
		resp := f.request(t, http.MethodPost, "/attendance/mark", f.student,
			models.MarkAttendanceRequest{UserID: "tutor-1", Code: s.AttendanceCode})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin may mark on behalf of a student", func(t *testing.T) {
		f := setup(t)
		s := f.createSession(t)
		resp := f.request(t, http.MethodPost, "/attendance/mark", f.admin,
			models.MarkAttendanceRequest{UserID: "student-1", Code: s.AttendanceCode})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("invalid code", func(t *testing.T) {
		f := setup(t)
		f.createSession(t)
		resp := f.request(t, http.MethodPost, "/attendance/mark", f.student,
			models.MarkAttendanceRequest{UserID: "student-1", Code: "999999"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("expired code", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.store.CreateSession(context.Background(), models.Session{
			ID:             "old-session",
			DomainID:       "web-dev",
			BatchID:        "batch-a",
			Date:           "2026-03-01",
			Time:           "18:00",
			AttendanceCode: "123456",
			CodeExpiresAt:  time.Now().Add(-time.Minute),
			CreatedAt:      time.Now().Add(-10 * time.Minute),
		}))
		resp := f.request(t, http.MethodPost, "/attendance/mark", f.student,
			models.MarkAttendanceRequest{UserID: "student-1", Code: "123456"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(b), "expired")
	})

	t.Run("hierarchy mismatch is a 403 naming both sides", func(t *testing.T) {
		f := setup(t)
		s := f.createSession(t)
		outsider := models.User{
			ID: "student-2", UID: "uid-student-2", Email: "s2@example.com",
			Name: "Ravi", Role: models.UserRoleStudent, DomainID: "ui-ux", BatchID: "batch-b",
		}
		require.NoError(t, f.store.CreateUser(context.Background(), outsider))

		resp := f.request(t, http.MethodPost, "/attendance/mark", outsider,
			models.MarkAttendanceRequest{UserID: "student-2", Code: s.AttendanceCode})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(b), "ui-ux")
		assert.Contains(t, string(b), "web-dev")
	})
}

func TestStatsEndpoint(t *testing.T) {
	t.Run("student reads own stats", func(t *testing.T) {
		f := setup(t)
		s := f.createSession(t)
		resp := f.request(t, http.MethodPost, "/attendance/mark", f.student,
			models.MarkAttendanceRequest{UserID: "student-1", Code: s.AttendanceCode})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = f.request(t, http.MethodGet, "/attendance/stats/student-1", f.student, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		stats := decode[models.AttendanceStats](t, resp)
		assert.Equal(t, 1, stats.TotalSessions)
		assert.Equal(t, 1, stats.AttendedSessions)
		assert.Equal(t, 100, stats.Percentage)
		assert.True(t, stats.IsEligible)
	})

	t.Run("student cannot read another student's stats", func(t *testing.T) {
		f := setup(t)
		resp := f.request(t, http.MethodGet, "/attendance/stats/tutor-1", f.student, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("tutor reads any stats", func(t *testing.T) {
		f := setup(t)
		resp := f.request(t, http.MethodGet, "/attendance/stats/student-1", f.tutor, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		f := setup(t)
		resp := f.request(t, http.MethodGet, "/attendance/stats/ghost", f.admin, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestStudentSessionsEndpoint(t *testing.T) {
	f := setup(t)
	s := f.createSession(t)
	resp := f.request(t, http.MethodPost, "/attendance/mark", f.student,
		models.MarkAttendanceRequest{UserID: "student-1", Code: s.AttendanceCode})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/attendance/students/student-1/sessions", f.student, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	sessions := decode[[]models.StudentSession](t, resp)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Attended)
}

func TestExportCSVEndpoint(t *testing.T) {
	f := setup(t)
	s := f.createSession(t)
	resp := f.request(t, http.MethodPost, "/attendance/mark", f.student,
		models.MarkAttendanceRequest{UserID: "student-1", Code: s.AttendanceCode})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	t.Run("admin only", func(t *testing.T) {
		resp := f.request(t, http.MethodGet, "/attendance/export_csv", f.tutor, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("exports records", func(t *testing.T) {
		resp := f.request(t, http.MethodGet, "/attendance/export_csv", f.admin, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

		b, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(b), "student-1")
		assert.Contains(t, string(b), s.ID)
	})
}

func TestListSessionsEndpoint(t *testing.T) {
	f := setup(t)
	f.createSession(t)

	resp := f.request(t, http.MethodGet, "/attendance/sessions?batchId=batch-a", f.tutor, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	sessions := decode[[]models.Session](t, resp)
	assert.Len(t, sessions, 1)

	resp = f.request(t, http.MethodGet, "/attendance/sessions?batchId=other", f.tutor, nil)
	sessions = decode[[]models.Session](t, resp)
	assert.Len(t, sessions, 0)
}
