package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hoursly/internal/api/handler"
	"hoursly/internal/api/middleware"
	"hoursly/internal/app/service"
)

func NewRouter(
	userService *service.UserService,
	courseService *service.CourseService,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(chiMiddleware.StripSlashes) // routes are also reachable with a trailing slash

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	var writeLimit func(http.Handler) http.Handler
	if limiter != nil {
		writeLimit = middleware.RateLimit(limiter)
	}

	r.Route("/api", func(api chi.Router) {
		userHandler := handler.NewUserHandler(userService, writeLimit)
		api.Route("/users", userHandler.RegisterRoutes)

		courseHandler := handler.NewCourseHandler(courseService, writeLimit)
		api.Route("/courses", courseHandler.RegisterRoutes)
		api.Route("/assignments", courseHandler.RegisterAssignmentRoutes)
		api.Route("/officehours", courseHandler.RegisterOfficeHourRoutes)
	})

	return r
}
