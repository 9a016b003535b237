package admin

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	att "zapsters-attendance-backend/attendance"
	"zapsters-attendance-backend/handlers/auth"
	"zapsters-attendance-backend/models"
)

var validate = validator.New()

// Register mounts admin management routes under /admin
func Register(g fiber.Router, svc *att.Service, jwtGuard, requireAdmin fiber.Handler) {
	g.Post("/domains", jwtGuard, requireAdmin, CreateDomain(svc))
	g.Get("/domains", jwtGuard, requireAdmin, ListDomains(svc))
	g.Put("/domains/:id", jwtGuard, requireAdmin, UpdateDomain(svc))
	g.Delete("/domains/:id", jwtGuard, requireAdmin, DeleteDomain(svc))

	g.Post("/batches", jwtGuard, requireAdmin, CreateBatch(svc))
	g.Get("/batches", jwtGuard, requireAdmin, ListBatches(svc))

	g.Post("/students", jwtGuard, requireAdmin, CreateStudent(svc))
	g.Get("/students", jwtGuard, requireAdmin, ListStudents(svc))

	g.Post("/tutors", jwtGuard, requireAdmin, CreateTutor(svc))
	g.Get("/tutors", jwtGuard, requireAdmin, ListTutors(svc))

	g.Get("/dashboard", jwtGuard, requireAdmin, Dashboard(svc))
}

// CreateDomain - POST /admin/domains
func CreateDomain(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.CreateDomainRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Domain name required")
		}

		now := time.Now()
		d := models.Domain{
			ID:        uuid.NewString(),
			Name:      b.Name,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := svc.Store().CreateDomain(c.Context(), d); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// ListDomains - GET /admin/domains
func ListDomains(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		domains, err := svc.Store().ListDomains(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(domains)
	}
}

// UpdateDomain - PUT /admin/domains/:id
func UpdateDomain(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.UpdateDomainRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		d, err := svc.Store().UpdateDomain(c.Context(), c.Params("id"), b.Name, b.IsActive)
		if err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Domain not found")
			}
			return err
		}
		return c.JSON(d)
	}
}

// DeleteDomain - DELETE /admin/domains/:id
// Deletion is not cascaded: batches and users keep their stale references.
func DeleteDomain(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Store().DeleteDomain(c.Context(), c.Params("id")); err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Domain not found")
			}
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CreateBatch - POST /admin/batches
func CreateBatch(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.CreateBatchRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// Strict hierarchy check: the domain must exist.
		if _, err := svc.Store().GetDomain(c.Context(), b.DomainID); err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Domain not found")
			}
			return err
		}

		batch := models.Batch{
			ID:        uuid.NewString(),
			DomainID:  b.DomainID,
			Name:      b.Name,
			StartDate: b.StartDate,
			EndDate:   b.EndDate,
			CreatedAt: time.Now(),
		}
		if err := svc.Store().CreateBatch(c.Context(), batch); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(batch)
	}
}

// ListBatches - GET /admin/batches?domainId=
func ListBatches(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batches, err := svc.Store().ListBatches(c.Context(), c.Query("domainId"))
		if err != nil {
			return err
		}
		return c.JSON(batches)
	}
}

// CreateStudent - POST /admin/students
func CreateStudent(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.CreateStudentRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// Validate hierarchy: batch must exist and belong to the domain.
		batch, err := svc.Store().GetBatch(c.Context(), b.BatchID)
		if err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Batch not found")
			}
			return err
		}
		if batch.DomainID != b.DomainID {
			return fiber.NewError(fiber.StatusBadRequest, "Batch does not belong to this Domain")
		}

		u := models.User{
			ID:        uuid.NewString(),
			UID:       uuid.NewString(),
			Email:     b.Email,
			Name:      b.Name,
			Role:      models.UserRoleStudent,
			DomainID:  b.DomainID,
			BatchID:   b.BatchID,
			CreatedAt: time.Now(),
		}
		if b.Password != nil && *b.Password != "" {
			hash, err := auth.BcryptHash(*b.Password)
			if err != nil {
				return err
			}
			u.PasswordHash = &hash
		}
		if err := svc.Store().CreateUser(c.Context(), u); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// ListStudents - GET /admin/students?domainId=&batchId=
func ListStudents(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		students, err := svc.Store().ListUsers(c.Context(), models.UserRoleStudent, c.Query("domainId"), c.Query("batchId"))
		if err != nil {
			return err
		}
		return c.JSON(students)
	}
}

// CreateTutor - POST /admin/tutors
func CreateTutor(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.CreateTutorRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if _, err := svc.Store().GetDomain(c.Context(), b.DomainID); err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Domain not found")
			}
			return err
		}

		u := models.User{
			ID:        uuid.NewString(),
			UID:       uuid.NewString(),
			Email:     b.Email,
			Name:      b.Name,
			Role:      models.UserRoleTutor,
			DomainID:  b.DomainID,
			CreatedAt: time.Now(),
		}
		if b.Password != nil && *b.Password != "" {
			hash, err := auth.BcryptHash(*b.Password)
			if err != nil {
				return err
			}
			u.PasswordHash = &hash
		}
		if err := svc.Store().CreateUser(c.Context(), u); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// ListTutors - GET /admin/tutors?domainId=
func ListTutors(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tutors, err := svc.Store().ListUsers(c.Context(), models.UserRoleTutor, c.Query("domainId"), "")
		if err != nil {
			return err
		}
		return c.JSON(tutors)
	}
}

// Dashboard - GET /admin/dashboard
// Aggregates program-wide attendance health: entity totals, the average
// attendance percentage and the list of students under the threshold.
func Dashboard(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := svc.Store()

		domains, err := st.ListDomains(c.Context())
		if err != nil {
			return err
		}
		batches, err := st.ListBatches(c.Context(), "")
		if err != nil {
			return err
		}
		students, err := st.ListUsers(c.Context(), models.UserRoleStudent, "", "")
		if err != nil {
			return err
		}

		domainNames := make(map[string]string, len(domains))
		for _, d := range domains {
			domainNames[d.ID] = d.Name
		}
		batchNames := make(map[string]string, len(batches))
		for _, b := range batches {
			batchNames[b.ID] = b.Name
		}

		out := models.DashboardStats{
			TotalDomains:          len(domains),
			TotalBatches:          len(batches),
			TotalStudents:         len(students),
			LowAttendanceStudents: []models.LowAttendanceStudent{},
		}

		pctSum := 0
		for _, s := range students {
			total, err := st.CountSessionsByBatch(c.Context(), s.BatchID)
			if err != nil {
				return err
			}
			attended, err := st.CountAttendanceByUser(c.Context(), s.ID)
			if err != nil {
				return err
			}
			pct := att.Percentage(attended, total)
			pctSum += pct
			if pct < models.MinAttendancePercent {
				out.StudentsBelow75++
				out.LowAttendanceStudents = append(out.LowAttendanceStudents, models.LowAttendanceStudent{
					ID:         s.ID,
					Name:       s.Name,
					Email:      s.Email,
					DomainName: domainNames[s.DomainID],
					BatchName:  batchNames[s.BatchID],
					Percentage: pct,
				})
			}
		}
		if len(students) > 0 {
			out.AverageAttendance = pctSum / len(students)
		}
		return c.JSON(out)
	}
}
