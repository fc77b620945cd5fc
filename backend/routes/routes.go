package routes

import (
	"lingua/backend/config"
	"lingua/backend/controllers"
	"lingua/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Dashboard routes
	dashboardController := controllers.NewDashboardController(db, cfg)
	app.Get("/api/dashboard", authMiddleware, dashboardController.GetDashboardSummary)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetUserCourses)
	courses.Post("/unlock", coursesController.UnlockCourse)
	courses.Get("/:code", coursesController.GetCourseDetails)
	courses.Get("/:code/lessons/:lesson", coursesController.GetLessonExercises)
	courses.Post("/:code/progress", coursesController.UpdateContentProgress)

	// Exercises routes
	exercisesController := controllers.NewExercisesController(db, cfg)
	exercises := app.Group("/api/exercises", authMiddleware)
	exercises.Post("/:id/attempts", exercisesController.RecordAttempt)
	exercises.Get("/:id/attempts", exercisesController.GetAttemptState)

	// Admin routes
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Post("/courses", coursesController.CreateCourse)
	admin.Post("/courses/:code/exercises", coursesController.CreateExercise)
	admin.Post("/courses/:code/access-codes", coursesController.CreateAccessCodes)
	admin.Delete("/exercises/:exerciseId", coursesController.DeactivateExercise)
}
