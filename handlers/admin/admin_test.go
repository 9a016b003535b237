package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	att "zapsters-attendance-backend/attendance"
	hAdmin "zapsters-attendance-backend/handlers/admin"
	mw "zapsters-attendance-backend/middleware"
	"zapsters-attendance-backend/models"
	"zapsters-attendance-backend/store"
)

type fixture struct {
	app   *fiber.App
	store *store.Mem
	admin models.User
	tutor models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	st := store.NewMem()
	svc := att.NewService(st)

	f := &fixture{
		app:   fiber.New(),
		store: st,
		admin: models.User{
			ID: "admin-1", UID: "uid-admin-1", Email: "admin@example.com",
			Name: "Admin", Role: models.UserRoleAdmin,
		},
		tutor: models.User{
			ID: "tutor-1", UID: "uid-tutor-1", Email: "tutor@example.com",
			Name: "Tutor", Role: models.UserRoleTutor, DomainID: "web-dev",
		},
	}
	for _, u := range []models.User{f.admin, f.tutor} {
		require.NoError(t, st.CreateUser(context.Background(), u))
	}

	jwtGuard := mw.JwtGuard()
	requireAdmin := mw.RequireRole(string(models.UserRoleAdmin))
	hAdmin.Register(f.app.Group("/admin"), svc, jwtGuard, requireAdmin)
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

func TestDomainCRUD(t *testing.T) {
	f := setup(t)

	resp := f.request(t, http.MethodPost, "/admin/domains", f.admin, models.CreateDomainRequest{Name: "Web Development"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	d := decode[models.Domain](t, resp)
	assert.NotEmpty(t, d.ID)
	assert.True(t, d.IsActive)

	resp = f.request(t, http.MethodGet, "/admin/domains", f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Domain](t, resp), 1)

	newName := "Web Dev"
	inactive := false
	resp = f.request(t, http.MethodPut, "/admin/domains/"+d.ID, f.admin,
		models.UpdateDomainRequest{Name: &newName, IsActive: &inactive})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	updated := decode[models.Domain](t, resp)
	assert.Equal(t, "Web Dev", updated.Name)
	assert.False(t, updated.IsActive)

	resp = f.request(t, http.MethodDelete, "/admin/domains/"+d.ID, f.admin, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/admin/domains/"+d.ID, f.admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDomainValidation(t *testing.T) {
	f := setup(t)

	resp := f.request(t, http.MethodPost, "/admin/domains", f.admin, fiber.Map{"name": ""})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminOnly(t *testing.T) {
	f := setup(t)

	resp := f.request(t, http.MethodGet, "/admin/domains", f.tutor, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCreateBatch(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.CreateDomain(context.Background(),
		models.Domain{ID: "web-dev", Name: "Web Development", IsActive: true}))

	body := models.CreateBatchRequest{
		DomainID:  "web-dev",
		Name:      "Batch A",
		StartDate: "2026-01-01",
		EndDate:   "2026-06-30",
	}

	t.Run("created under an existing domain", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/admin/batches", f.admin, body)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		b := decode[models.Batch](t, resp)
		assert.Equal(t, "web-dev", b.DomainID)
		assert.NotEmpty(t, b.ID)
	})

	t.Run("unknown domain is a 404", func(t *testing.T) {
		bad := body
		bad.DomainID = "ghost"
		resp := f.request(t, http.MethodPost, "/admin/batches", f.admin, bad)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateStudent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateDomain(ctx, models.Domain{ID: "web-dev", Name: "Web Development", IsActive: true}))
	require.NoError(t, f.store.CreateDomain(ctx, models.Domain{ID: "ui-ux", Name: "UI/UX", IsActive: true}))
	require.NoError(t, f.store.CreateBatch(ctx, models.Batch{ID: "batch-a", DomainID: "web-dev", Name: "Batch A"}))

	t.Run("created in batch", func(t *testing.T) {
		pw := "secret123"
		resp := f.request(t, http.MethodPost, "/admin/students", f.admin, models.CreateStudentRequest{
			Name: "Asha", Email: "asha@example.com", DomainID: "web-dev", BatchID: "batch-a", Password: &pw,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		u := decode[models.User](t, resp)
		assert.Equal(t, models.UserRoleStudent, u.Role)
		assert.Equal(t, "batch-a", u.BatchID)

		stored, err := f.store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.PasswordHash)
	})

	t.Run("unknown batch is a 404", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/admin/students", f.admin, models.CreateStudentRequest{
			Name: "Asha", Email: "asha2@example.com", DomainID: "web-dev", BatchID: "ghost",
		})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("batch in another domain is a 400", func(t *testing.T) {
		resp := f.request(t, http.MethodPost, "/admin/students", f.admin, models.CreateStudentRequest{
			Name: "Asha", Email: "asha3@example.com", DomainID: "ui-ux", BatchID: "batch-a",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestCreateTutor(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.CreateDomain(context.Background(),
		models.Domain{ID: "web-dev", Name: "Web Development", IsActive: true}))

	resp := f.request(t, http.MethodPost, "/admin/tutors", f.admin, models.CreateTutorRequest{
		Name: "Ravi", Email: "ravi@example.com", DomainID: "web-dev",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	u := decode[models.User](t, resp)
	assert.Equal(t, models.UserRoleTutor, u.Role)
	assert.Empty(t, u.BatchID)
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.CreateDomain(ctx, models.Domain{ID: "web-dev", Name: "Web Development", IsActive: true}))
	require.NoError(t, f.store.CreateBatch(ctx, models.Batch{ID: "batch-a", DomainID: "web-dev", Name: "Batch A"}))

	students := []models.User{
		{ID: "s1", UID: "u-s1", Email: "s1@example.com", Name: "Asha", Role: models.UserRoleStudent, DomainID: "web-dev", BatchID: "batch-a"},
		{ID: "s2", UID: "u-s2", Email: "s2@example.com", Name: "Ravi", Role: models.UserRoleStudent, DomainID: "web-dev", BatchID: "batch-a"},
	}
	for _, s := range students {
		require.NoError(t, f.store.CreateUser(ctx, s))
	}

	// Two sessions; s1 attends both, s2 attends none.
	for i, id := range []string{"sess-1", "sess-2"} {
		require.NoError(t, f.store.CreateSession(ctx, models.Session{
			ID: id, DomainID: "web-dev", BatchID: "batch-a",
			Date: "2026-03-0" + string(rune('1'+i)), Time: "18:00",
			AttendanceCode: "10000" + string(rune('0'+i)),
			CodeExpiresAt:  time.Now().Add(5 * time.Minute),
			CreatedAt:      time.Now(),
		}))
		_, err := f.store.InsertAttendance(ctx, models.AttendanceRecord{
			ID: "rec-" + id, UserID: "s1", SessionID: id,
			BatchID: "batch-a", DomainID: "web-dev",
			Status: models.StatusPresent, Timestamp: time.Now(),
		})
		require.NoError(t, err)
	}

	resp := f.request(t, http.MethodGet, "/admin/dashboard", f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	d := decode[models.DashboardStats](t, resp)
	assert.Equal(t, 1, d.TotalDomains)
	assert.Equal(t, 1, d.TotalBatches)
	assert.Equal(t, 2, d.TotalStudents)
	assert.Equal(t, 1, d.StudentsBelow75)
	assert.Equal(t, 50, d.AverageAttendance)
	require.Len(t, d.LowAttendanceStudents, 1)
	assert.Equal(t, "s2", d.LowAttendanceStudents[0].ID)
	assert.Equal(t, 0, d.LowAttendanceStudents[0].Percentage)
	assert.Equal(t, "Web Development", d.LowAttendanceStudents[0].DomainName)
}
