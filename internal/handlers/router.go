package handlers

import (
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Services is everything the HTTP layer calls into. Exports is nil when
// object storage is not configured.
type Services struct {
	Users         *services.UserService
	Connections   *services.ConnectionService
	Records       *services.HealthRecordService
	Medications   *services.MedicationService
	Notifications *services.NotificationService
	Exports       *services.ExportService
	DB            Pinger
}

// NewRouter wires the API routes
func NewRouter(s Services) http.Handler {
	userHandler := NewUserHandler(s.Users)
	linkHandler := NewLinkHandler(s.Connections)
	patientHandler := NewPatientHandler(s.Connections)
	recordHandler := NewRecordHandler(s.Records)
	medicationHandler := NewMedicationHandler(s.Medications)
	notificationHandler := NewNotificationHandler(s.Notifications)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", Healthz(s.DB))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)
		r.Post("/sessions", userHandler.CreateSession)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(s.Users))

			r.Get("/me", userHandler.Me)

			r.Get("/links", linkHandler.ListLinks)
			r.Get("/links/{link_id}", linkHandler.GetLink)
			r.Delete("/links/{link_id}", linkHandler.DeleteLink)
			r.With(middleware.RequireRole(models.RoleCompanion)).Post("/links", linkHandler.CreateLink)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RolePatient))
				r.Post("/links/{link_id}/approve", linkHandler.ApproveLink)
				r.Post("/links/{link_id}/reject", linkHandler.RejectLink)
				r.Put("/links/{link_id}/access", linkHandler.SetAccess)
			})

			r.With(middleware.RequireRole(models.RoleCompanion)).Get("/patients", patientHandler.ListPatients)
			r.Route("/patients/{patient_id}", func(r chi.Router) {
				r.Get("/", patientHandler.GetPatient)
				r.Get("/glucose", recordHandler.ListGlucose)
				r.Post("/glucose", recordHandler.AddGlucose)
				r.Get("/blood-pressure", recordHandler.ListBloodPressure)
				r.Post("/blood-pressure", recordHandler.AddBloodPressure)
				r.Get("/medications", medicationHandler.ListMedications)
				r.Post("/medications", medicationHandler.CreateMedication)
				if s.Exports != nil {
					r.Post("/exports", NewExportHandler(s.Exports).CreateExport)
				}
			})

			r.Put("/glucose/{record_id}", recordHandler.UpdateGlucose)
			r.Delete("/glucose/{record_id}", recordHandler.DeleteGlucose)
			r.Put("/blood-pressure/{record_id}", recordHandler.UpdateBloodPressure)
			r.Delete("/blood-pressure/{record_id}", recordHandler.DeleteBloodPressure)

			r.Put("/medications/{medication_id}", medicationHandler.UpdateMedication)
			r.Delete("/medications/{medication_id}", medicationHandler.DeleteMedication)
			r.Post("/medications/{medication_id}/logs", medicationHandler.LogDose)

			r.Get("/notifications", notificationHandler.ListNotifications)
			r.Post("/notifications/read-all", notificationHandler.MarkAllRead)
			r.Post("/notifications/{notification_id}/read", notificationHandler.MarkRead)
		})
	})

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
