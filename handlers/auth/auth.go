package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	att "zapsters-attendance-backend/attendance"
	mw "zapsters-attendance-backend/middleware"
	"zapsters-attendance-backend/models"
)

var validate = validator.New()

func Register(g fiber.Router, svc *att.Service, jwtGuard fiber.Handler) {
	// Public routes
	g.Post("/login", Login(svc))

	// Protected routes
	g.Post("/sync", jwtGuard, Sync(svc))
	g.Get("/me", jwtGuard, Me(svc))
}

// ---------- Helper Functions ----------

// BcryptHash hashes a plain text password.
func BcryptHash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password cannot be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// BcryptVerify compares a hashed password with a plain text password.
func BcryptVerify(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ttlFromEnv parses a duration from an environment variable, or returns a default.
func ttlFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Login - POST /auth/login
func Login(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var b models.LoginRequest
		if err := c.BodyParser(&b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bad JSON")
		}
		if err := validate.Struct(b); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Email and password required")
		}
		email := strings.ToLower(strings.TrimSpace(b.Email))

		u, err := svc.Store().GetUserByEmail(c.Context(), email)
		if err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
			}
			return err
		}
		if u.PasswordHash == nil || !BcryptVerify(*u.PasswordHash, b.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		ttl := ttlFromEnv("ACCESS_TOKEN_TTL", time.Hour)
		token, err := mw.BuildAccessToken(u, ttl)
		if err != nil {
			return err
		}
		return c.JSON(models.LoginResponse{
			AccessToken: token,
			ExpiresIn:   int(ttl.Seconds()),
			Role:        u.Role,
			UserID:      u.ID,
		})
	}
}

// Sync - POST /auth/sync
// Ensures the authenticated identity exists in the store, provisioning a
// default student record on first sight, and returns the stored user.
func Sync(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cls, err := mw.GetClaims(c)
		if err != nil {
			return err
		}
		u, err := svc.ResolveIdentity(c.Context(), att.TokenClaims{
			UID:   cls.UID,
			Email: cls.Email,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "user": u})
	}
}

// Me - GET /auth/me
func Me(svc *att.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := mw.GetUserIDFromClaims(c)
		if err != nil {
			return err
		}
		u, err := svc.Store().GetUser(c.Context(), userID)
		if err != nil {
			if errors.Is(err, att.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}
		return c.JSON(u)
	}
}
