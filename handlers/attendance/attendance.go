package attendance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	att "zapsters-attendance-backend/attendance"
	mw "zapsters-attendance-backend/middleware"
	"zapsters-attendance-backend/models"
)

var validate = validator.New()

// Register mounts attendance routes under /attendance
func Register(g fiber.Router, svc *att.Service, jwtGuard, requireStaff, requireAdmin fiber.Handler) {
	// Tutor/Admin actions
	g.Post("/sessions", jwtGuard, requireStaff, CreateSession(svc))
	g.Get("/sessions", jwtGuard, requireStaff, ListSessions(svc))
	g.Get("/export_csv", jwtGuard, requireAdmin, ExportAttendanceCSV(svc))

	// Student actions (admins may act on behalf of a student)
	g.Post("/mark", jwtGuard, Mark(svc))
	g.Get("/stats/:userId", jwtGuard, Stats(svc))
	g.Get("/students/:userId/sessions", jwtGuard, StudentSessions(svc))
}

// httpError converts the service's typed rejections into fiber errors per
// the API status convention; anything unrecognized bubbles up as a 500.
func httpError(err error) error {
	var hierr *att.HierarchyError
	switch {
	case errors.Is(err, att.ErrInvalidCode):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid attendance code")
	case errors.Is(err, att.ErrCodeExpired):
		return fiber.NewError(fiber.StatusBadRequest, "Attendance code expired")
	case errors.Is(err, att.ErrAlreadyMarked):
		return fiber.NewError(fiber.StatusBadRequest, "Attendance already marked")
	case errors.Is(err, att.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	case errors.Is(err, att.ErrBadHierarchy):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid Domain/Batch hierarchy")
	case errors.As(err, &hierr):
		return fiber.NewError(fiber.StatusForbidden,
			fmt.Sprintf("Mismatch: You belong to %s/%s, but this session is for %s/%s",
				hierr.UserDomain, hierr.UserBatch, hierr.SessionDomain, hierr.SessionBatch))
	}
	return err
}

// POST /attendance/sessions  {domainId, batchId, date, time, durationMinutes?, meetLink?}
// Creates a session with a fresh attendance code; the code is returned once
// here for out-of-band distribution to students.
func CreateSession(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.CreateSessionRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s, err := svc.CreateSession(c.Context(), att.CreateSessionInput{
			DomainID:        b.DomainID,
			BatchID:         b.BatchID,
			Date:            b.Date,
			Time:            b.Time,
			DurationMinutes: b.DurationMinutes,
			MeetLink:        b.MeetLink,
		})
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// GET /attendance/sessions?domainId=&batchId=
func ListSessions(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := svc.Store().ListSessions(c.Context(), c.Query("domainId"), c.Query("batchId"))
		if err != nil {
			return err
		}
		return c.JSON(sessions)
	}
}

// POST /attendance/mark  {userId, code}
// A student can only mark attendance for themselves; admins may mark for
// anyone.
func Mark(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cls, err := mw.GetClaims(c)
		if err != nil {
			return err
		}

		var b models.MarkAttendanceRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if cls.Sub != b.UserID && cls.Role != models.UserRoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "Unauthorized: Cannot mark attendance for another user")
		}

		r, err := svc.MarkAttendance(c.Context(), b.UserID, b.Code)
		if err != nil {
			var hierr *att.HierarchyError
			if errors.As(err, &hierr) {
				log.Printf("hierarchy check failed: user (%s/%s) vs session (%s/%s)",
					hierr.UserDomain, hierr.UserBatch, hierr.SessionDomain, hierr.SessionBatch)
			}
			return httpError(err)
		}
		return c.JSON(fiber.Map{"message": "Attendance marked successfully", "record": r})
	}
}

// GET /attendance/stats/:userId
// Students can only read their own stats; tutors and admins can read any.
func Stats(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cls, err := mw.GetClaims(c)
		if err != nil {
			return err
		}
		userID := c.Params("userId")
		if cls.Role == models.UserRoleStudent && cls.Sub != userID {
			return fiber.NewError(fiber.StatusForbidden, "Cannot view another student's stats")
		}

		stats, err := svc.Stats(c.Context(), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(stats)
	}
}

// GET /attendance/students/:userId/sessions
func StudentSessions(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cls, err := mw.GetClaims(c)
		if err != nil {
			return err
		}
		userID := c.Params("userId")
		if cls.Role == models.UserRoleStudent && cls.Sub != userID {
			return fiber.NewError(fiber.StatusForbidden, "Cannot view another student's sessions")
		}

		sessions, err := svc.StudentSessions(c.Context(), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(sessions)
	}
}

// ExportAttendanceCSV - GET /attendance/export_csv?domainId=&batchId=
// Exports attendance records to a CSV file.
func ExportAttendanceCSV(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := svc.Store().ListAttendance(c.Context(), c.Query("domainId"), c.Query("batchId"))
		if err != nil {
			log.Printf("Error querying attendance for CSV export: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to retrieve attendance data for export")
		}

		c.Set("Content-Type", "text/csv")
		c.Set("Content-Disposition", `attachment; filename="attendance_export.csv"`)

		writer := csv.NewWriter(c.Response().BodyWriter())
		defer writer.Flush()

		header := []string{"Record ID", "User ID", "Session ID", "Domain ID", "Batch ID", "Status", "Marked At (ISO)"}
		if err := writer.Write(header); err != nil {
			log.Printf("Error writing CSV header: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to write CSV header")
		}

		for _, r := range records {
			row := []string{
				r.ID,
				r.UserID,
				r.SessionID,
				r.DomainID,
				r.BatchID,
				string(r.Status),
				r.Timestamp.Format(time.RFC3339),
			}
			if err := writer.Write(row); err != nil {
				log.Printf("Error writing CSV record %s: %v", r.ID, err)
			}
		}
		return nil
	}
}
