package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	att "zapsters-attendance-backend/attendance"
	"zapsters-attendance-backend/db"
	hAdmin "zapsters-attendance-backend/handlers/admin"
	hAttendance "zapsters-attendance-backend/handlers/attendance"
	hAuth "zapsters-attendance-backend/handlers/auth"
	"zapsters-attendance-backend/handlers/health"
	mw "zapsters-attendance-backend/middleware"
	"zapsters-attendance-backend/models"
	"zapsters-attendance-backend/store"
)

func main() {
	_ = godotenv.Load()

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	if err := db.Migrate(os.Getenv("DATABASE_URL")); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	pool := db.MustPool()
	defer pool.Close()

	svc := att.NewService(store.NewPostgres(pool))
	if err := att.SeedDomains(context.Background(), svc.Store()); err != nil {
		log.Fatalf("domain seeding failed: %v", err)
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Get("/healthz", health.Health())

	// JWT Guards and Role Requirements
	jwtGuard := mw.JwtGuard()
	requireAdmin := mw.RequireRole(string(models.UserRoleAdmin))
	requireStaff := mw.RequireRole(string(models.UserRoleTutor), string(models.UserRoleAdmin))

	// --- Auth routes ---
	authGroup := app.Group("/auth")
	hAuth.Register(authGroup, svc, jwtGuard)

	// --- Admin management ---
	adminGroup := app.Group("/admin")
	hAdmin.Register(adminGroup, svc, jwtGuard, requireAdmin)

	// --- Sessions & attendance ---
	attGroup := app.Group("/attendance")
	hAttendance.Register(attGroup, svc, jwtGuard, requireStaff, requireAdmin)

	log.Printf("listening on %s", addr)
	log.Fatal(app.Listen(addr))
}
