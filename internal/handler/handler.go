// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaxGroupSize caps the participants accepted in one group registration.
const MaxGroupSize = 50

// EnrollmentService is the enrollment use-case layer the handlers call.
type EnrollmentService interface {
	CreateEnrollment(ctx context.Context, req model.CreateEnrollmentRequest) (*model.Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (*model.Enrollment, error)
	ListEnrollments(ctx context.Context, eventID string, statuses []model.Status) ([]model.Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, next model.Status) (*model.Enrollment, error)
}

// GroupService registers a requester and their guests in one call.
type GroupService interface {
	RegisterGroup(ctx context.Context, eventID string, participants []model.Participant) []model.ParticipantResult
}

// CapacityService reports an event's capacity snapshot.
type CapacityService interface {
	GetSnapshot(ctx context.Context, eventID string) (*model.CapacitySnapshot, error)
}

// ImpactService reports volunteering hours per event and per volunteer.
type ImpactService interface {
	EventImpact(ctx context.Context, eventID string) (*model.EventImpact, error)
	VolunteerImpact(ctx context.Context, email string) (*model.VolunteerImpact, error)
}

// EnrollmentHandler holds all HTTP handlers for the enrollment API.
type EnrollmentHandler struct {
	enrollments EnrollmentService
	groups      GroupService
	capacity    CapacityService
	impact      ImpactService
	log         *zap.Logger
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(
	enrollments EnrollmentService,
	groups GroupService,
	capacity CapacityService,
	impact ImpactService,
	log *zap.Logger,
) *EnrollmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrollmentHandler{
		enrollments: enrollments,
		groups:      groups,
		capacity:    capacity,
		impact:      impact,
		log:         log,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindEventNotFound, model.KindNotFound:
		return http.StatusNotFound
	case model.KindDuplicateEnrollment, model.KindEventFull,
		model.KindInvalidTransition, model.KindRegistrationClosed:
		return http.StatusConflict
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *EnrollmentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	if kind == model.KindStorageUnavailable {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "storage unavailable"
	}
	if kind == model.KindBusy {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, model.ErrorResponse{Error: msg, ErrorKind: kind})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", model.ErrInvalidInput, err)
	}
	return nil
}

// ─── Enrollments ──────────────────────────────────────────────────────────────

// CreateEnrollment handles POST /enrollments
func (h *EnrollmentHandler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEnrollmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.enrollments.CreateEnrollment(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// RegisterGroup handles POST /enrollments/group
// Every participant gets a result, so the call succeeds even when nobody
// could be enrolled.
func (h *EnrollmentHandler) RegisterGroup(w http.ResponseWriter, r *http.Request) {
	var req model.GroupEnrollmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	req.EventID = strings.TrimSpace(req.EventID)
	switch {
	case req.EventID == "":
		h.writeError(w, r, fmt.Errorf("%w: eventId is required", model.ErrInvalidInput))
		return
	case len(req.Participants) == 0:
		h.writeError(w, r, fmt.Errorf("%w: at least one participant is required", model.ErrInvalidInput))
		return
	case len(req.Participants) > MaxGroupSize:
		h.writeError(w, r, fmt.Errorf("%w: at most %d participants per group", model.ErrInvalidInput, MaxGroupSize))
		return
	}

	results := h.groups.RegisterGroup(r.Context(), req.EventID, req.Participants)
	writeJSON(w, http.StatusOK, model.NewGroupEnrollmentResponse(req.EventID, results))
}

// GetEnrollment handles GET /enrollments/{id}
func (h *EnrollmentHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	e, err := h.enrollments.GetEnrollment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// SetStatus handles PATCH /enrollments/{id}/status
func (h *EnrollmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req model.SetStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	next, err := model.ParseStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.enrollments.SetStatus(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEnrollment handles DELETE /enrollments/{id}
func (h *EnrollmentHandler) DeleteEnrollment(w http.ResponseWriter, r *http.Request) {
	if err := h.enrollments.DeleteEnrollment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ─── Events ───────────────────────────────────────────────────────────────────

// GetCapacity handles GET /events/{id}/capacity
func (h *EnrollmentHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	snap, err := h.capacity.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListEnrollments handles GET /events/{id}/enrollments?status=PENDING,APPROVED
func (h *EnrollmentHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	var statuses []model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := model.ParseStatus(part)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			statuses = append(statuses, st)
		}
	}

	list, err := h.enrollments.ListEnrollments(r.Context(), chi.URLParam(r, "id"), statuses)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if list == nil {
		list = []model.Enrollment{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetEventImpact handles GET /events/{id}/impact
func (h *EnrollmentHandler) GetEventImpact(w http.ResponseWriter, r *http.Request) {
	impact, err := h.impact.EventImpact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, impact)
}

// GetVolunteerImpact handles GET /volunteers/{email}/impact
func (h *EnrollmentHandler) GetVolunteerImpact(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: malformed email", model.ErrInvalidInput))
		return
	}

	impact, err := h.impact.VolunteerImpact(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, impact)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
