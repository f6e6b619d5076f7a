package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the chi router for the enrollment API.
func NewRouter(h *EnrollmentHandler, log *zap.Logger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/enrollments", func(r chi.Router) {
		r.Post("/", h.CreateEnrollment)
		r.Post("/group", h.RegisterGroup)
		r.Get("/{id}", h.GetEnrollment)
		r.Delete("/{id}", h.DeleteEnrollment)
		r.Patch("/{id}/status", h.SetStatus)
	})

	r.Route("/events/{id}", func(r chi.Router) {
		r.Get("/capacity", h.GetCapacity)
		r.Get("/enrollments", h.ListEnrollments)
		r.Get("/impact", h.GetEventImpact)
	})

	r.Get("/volunteers/{email}/impact", h.GetVolunteerImpact)

	return r
}
