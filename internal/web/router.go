package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tnsecretariat/regadmin/internal/config"
	"github.com/tnsecretariat/regadmin/internal/handlers"
)

func Router(cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health)

	// Badge QR (public: printed on lanyard badges)
	r.Get("/qr/{reference}.png", handlers.QR)

	r.Route("/api", func(api chi.Router) {
		api.Post("/login", handlers.Login)

		api.Group(func(ag chi.Router) {
			ag.Use(handlers.RequireAdmin)

			ag.Get("/me", handlers.Me)
			ag.Post("/logout", handlers.Logout)

			// Registrants
			ag.Get("/users", handlers.UsersList)
			ag.Post("/users", handlers.UserCreate)
			ag.Get("/users/{id}", handlers.UserShow)
			ag.Put("/users/{id}", handlers.UserUpdate)
			ag.Delete("/users/{id}", handlers.UserDelete)

			// Attachments
			ag.Post("/users/{id}/files", handlers.FileUpload(cfg.UploadDir))
			ag.Get("/users/{id}/files", handlers.FilesList)
			ag.Get("/files/{id}/download", handlers.FileDownload)
			ag.Delete("/files/{id}", handlers.FileDelete)
			ag.Post("/files/bulk-delete", handlers.FilesBulkDelete)

			// Events
			ag.Get("/events", handlers.EventsList)
			ag.Post("/events", handlers.EventCreate)
			ag.Get("/events/{id}", handlers.EventShow)
			ag.Put("/events/{id}", handlers.EventUpdate)
			ag.Patch("/events/{id}/status", handlers.EventStatus)
			ag.Delete("/events/{id}", handlers.EventDelete)
			ag.Post("/events/{id}/users", handlers.EventAttachUsers)
			ag.Delete("/events/{id}/users/{userID}", handlers.EventDetachUser)

			// Lookups
			ag.Get("/spheres", handlers.SpheresList)
			ag.Get("/groups", handlers.GroupsList)

			// Exports
			ag.Get("/exports/users.csv", handlers.ExportUsersCSV)
			ag.Get("/exports/users.pdf", handlers.ExportUsersPDF)

			// Dashboard & audit
			ag.Get("/stats", handlers.Stats)
			ag.Get("/stats/sphere-stats", handlers.SphereStats)
			ag.Get("/activity-logs", handlers.ActivityLogs)

			// Admin accounts (mutations need super admin)
			ag.Get("/admins", handlers.AdminsList)
			ag.Group(func(sa chi.Router) {
				sa.Use(handlers.RequireSuperAdmin)
				sa.Post("/admins", handlers.AdminCreate)
				sa.Put("/admins/{id}", handlers.AdminUpdate)
				sa.Delete("/admins/{id}", handlers.AdminDelete)
			})
		})
	})

	return r
}
