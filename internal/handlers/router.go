package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the transport settings of the router
type RouterConfig struct {
	Cookie         CookieConfig
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	Metrics        bool
}

// NewRouter wires every route
func NewRouter(cfg RouterConfig, svc *services.Registry, engine *policy.Engine, tokens cache.Cache) http.Handler {
	authH := NewAuthHandler(svc.Accounts, cfg.Cookie, engine)
	healthH := NewHealthHandler(tokens)
	dashH := NewDashboardHandler(svc.Reporting)
	adminH := NewAdminHandler(svc.Accounts, svc.Audit)
	deptH := NewDepartmentHandler(svc.Departments, engine)
	docH := NewDoctorHandler(svc.Doctors, svc.Departments, engine)
	patH := NewPatientHandler(svc.Patients, engine)
	recH := NewHealthRecordHandler(svc.HealthRecords, svc.Patients, svc.Doctors, svc.Departments, engine)
	apptH := NewAppointmentHandler(svc.Appointments, svc.Patients, svc.Doctors, svc.Departments, engine)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   cfg.AllowedMethods,
			AllowedHeaders:   cfg.AllowedHeaders,
			ExposedHeaders:   []string{"Content-Length", "Content-Type", "Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health endpoints (no authentication required)
	r.Get("/health", healthH.Health)
	r.Get("/ready", healthH.Ready)

	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(svc.Accounts, cfg.Cookie.Name))

		// public pages
		r.Get("/", authH.Home)
		r.Get("/login", authH.LoginForm)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)
		r.Get("/signup", authH.SignupForm)
		r.Post("/signup", authH.Signup)
		r.Post("/password-reset", authH.PasswordReset)
		r.Get("/password-reset/done", authH.PasswordResetDone)
		r.Get("/password-reset/confirm", authH.PasswordResetConfirmForm)
		r.Post("/password-reset/confirm", authH.PasswordResetConfirm)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin)

			r.Get("/dashboard", dashH.Dashboard)

			r.Get("/account/delete", authH.DeleteAccountPreview)
			r.Post("/account/delete", authH.DeleteAccount)

			r.Route("/departments", func(r chi.Router) {
				r.Get("/", deptH.List)
				r.Get("/new", deptH.NewForm)
				r.Post("/new", deptH.Create)
				r.Get("/{id}", withID(deptH.Get))
				r.Get("/{id}/edit", withID(deptH.EditForm))
				r.Post("/{id}/edit", withID(deptH.Update))
				r.Get("/{id}/delete", withID(deptH.DeletePreview))
				r.Post("/{id}/delete", withID(deptH.Delete))
			})

			r.Route("/doctors", func(r chi.Router) {
				r.Get("/", docH.List)
				r.Get("/new", docH.NewForm)
				r.Post("/new", docH.Create)
				r.Get("/{id}", withID(docH.Get))
				r.Get("/{id}/edit", withID(docH.EditForm))
				r.Post("/{id}/edit", withID(docH.Update))
				r.Get("/{id}/delete", withID(docH.DeletePreview))
				r.Post("/{id}/delete", withID(docH.Delete))
			})

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", patH.List)
				r.Get("/new", patH.NewForm)
				r.Post("/new", patH.Create)
				r.Get("/{id}", withID(patH.Get))
				r.Get("/{id}/edit", withID(patH.EditForm))
				r.Post("/{id}/edit", withID(patH.Update))
				r.Get("/{id}/delete", withID(patH.DeletePreview))
				r.Post("/{id}/delete", withID(patH.Delete))
			})

			r.Route("/health-records", func(r chi.Router) {
				r.Get("/", recH.List)
				r.Get("/new", recH.NewForm)
				r.Post("/new", recH.Create)
				r.Get("/{id}", withID(recH.Get))
				r.Get("/{id}/edit", withID(recH.EditForm))
				r.Post("/{id}/edit", withID(recH.Update))
				r.Get("/{id}/delete", withID(recH.DeletePreview))
				r.Post("/{id}/delete", withID(recH.Delete))
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", apptH.List)
				r.Get("/book", apptH.BookForm)
				r.Post("/book", apptH.Book)
				r.Get("/{id}", withID(apptH.Get))
				r.Get("/{id}/edit", withID(apptH.EditForm))
				r.Post("/{id}/edit", withID(apptH.Update))
				r.Get("/{id}/delete", withID(apptH.DeletePreview))
				r.Post("/{id}/delete", withID(apptH.Delete))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
				r.Get("/users", adminH.ListUsers)
				r.Post("/users", adminH.CreateUser)
				r.Get("/audit-logs", adminH.AuditLogs)
			})
		})
	})

	return r
}
