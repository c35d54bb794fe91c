package booking

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler exposes the booking service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the patient routes on r and the staff routes behind staffOnly.
func (h *Handler) Register(r chi.Router, staffOnly func(http.Handler) http.Handler) {
	r.Get("/availability", h.Availability)
	r.Post("/booking", h.Create)
	r.Post("/booking/{id}/reschedule", h.Reschedule)
	r.Post("/booking/{id}/cancellation-request", h.RequestCancellation)

	r.Group(func(r chi.Router) {
		if staffOnly != nil {
			r.Use(staffOnly)
		}
		r.Use(staffActor)
		r.Get("/booking", h.List)
		r.Get("/booking/{id}", h.Get)
		r.Post("/booking/{id}/status", h.ChangeStatus)
		r.Post("/booking/{id}/cancellation-request/approve", h.ApproveCancellation)
		r.Post("/booking/{id}/cancellation-request/reject", h.RejectCancellation)
	})
}

// staffActor tags staff writes with the authenticated subject.
func staffActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := middleware.StaffClaimsFromContext(r.Context()); ok && claims.Subject != "" {
			r = r.WithContext(WithActor(r.Context(), "staff:"+claims.Subject))
		}
		next.ServeHTTP(w, r)
	})
}

// Availability lists bookable start times.
// GET /availability?doctorId=&date=&serviceId=
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := AvailabilityRequest{
		DoctorID:  strings.TrimSpace(q.Get("doctorId")),
		ServiceID: strings.TrimSpace(q.Get("serviceId")),
	}
	if raw := q.Get("date"); raw != "" {
		date, err := timeofday.ParseDate(raw)
		if err != nil {
			h.writeError(w, r, apperr.Validation("invalid date"))
			return
		}
		req.Date = date
	}

	slots, err := h.service.AvailableSlots(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// Create books a pending appointment.
// POST /booking
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"appointmentId": created.ID,
		"status":        string(created.Status),
	})
}

// Reschedule moves an appointment to a new slot.
// POST /booking/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var body rescheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	date, start, err := parseSlot(body.Date, body.Time)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	moved, err := h.service.Reschedule(r.Context(), chi.URLParam(r, "id"), date, start)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// RequestCancellation records the patient's request to cancel.
// POST /booking/{id}/cancellation-request
func (h *Handler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.RequestCancellation(r.Context(), chi.URLParam(r, "id")))
}

// ApproveCancellation POST /booking/{id}/cancellation-request/approve
func (h *Handler) ApproveCancellation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.ApproveCancellation(r.Context(), chi.URLParam(r, "id")))
}

// RejectCancellation POST /booking/{id}/cancellation-request/reject
func (h *Handler) RejectCancellation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.RejectCancellation(r.Context(), chi.URLParam(r, "id")))
}

// ChangeStatus applies a staff status change.
// POST /booking/{id}/status
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	target, ok := appointments.ParseStatus(body.Status)
	if !ok {
		h.writeError(w, r, apperr.Validation("unknown status"))
		return
	}
	h.respond(w, r)(h.service.ChangeStatus(r.Context(), chi.URLParam(r, "id"), target))
}

// Get GET /booking/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Get(r.Context(), chi.URLParam(r, "id")))
}

// List returns appointments for staff dashboards.
// GET /booking?doctorId=&date=&status=confirmed,pending
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := appointments.Filter{DoctorID: strings.TrimSpace(q.Get("doctorId"))}
	if raw := q.Get("date"); raw != "" {
		date, err := timeofday.ParseDate(raw)
		if err != nil {
			h.writeError(w, r, apperr.Validation("invalid date"))
			return
		}
		filter.Date = date
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := appointments.ParseStatus(strings.TrimSpace(part))
			if !ok {
				h.writeError(w, r, apperr.Validation("unknown status"))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request) func(appointments.Appointment, error) {
	return func(a appointments.Appointment, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(err)
	if kind == apperr.KindInternal {
		h.logger.Error("booking request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	if kind == apperr.KindTransient {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]string{
		"error":  string(kind),
		"reason": apperr.ReasonOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
