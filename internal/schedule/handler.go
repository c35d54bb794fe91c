package schedule

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Handler provides HTTP endpoints for schedule administration.
type Handler struct {
	store  Editor
	logger *logging.Logger
}

// NewHandler creates a new schedule admin handler.
func NewHandler(store Editor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes returns a chi router with schedule admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/clinic", h.GetClinicWeek)
	r.Put("/clinic", h.UpdateClinicWeek)
	r.Get("/doctors/{doctorID}", h.GetDoctorWeek)
	r.Put("/doctors/{doctorID}", h.UpdateDoctorWeek)
	return r
}

// GetClinicWeek returns the clinic's weekly hours.
// GET /admin/schedule/clinic
func (h *Handler) GetClinicWeek(w http.ResponseWriter, r *http.Request) {
	week, err := h.store.ClinicWeek(r.Context())
	if err != nil {
		h.logger.Error("failed to get clinic schedule", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// UpdateClinicWeek replaces the clinic's weekly hours.
// PUT /admin/schedule/clinic
func (h *Handler) UpdateClinicWeek(w http.ResponseWriter, r *http.Request) {
	var week ClinicWeek
	if err := json.NewDecoder(r.Body).Decode(&week); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.SetClinicWeek(r.Context(), week); err != nil {
		h.writeError(w, err, "failed to save clinic schedule")
		return
	}
	h.logger.Info("clinic schedule updated", "days", len(week))
	writeJSON(w, http.StatusOK, week)
}

// GetDoctorWeek returns a doctor's working windows.
// GET /admin/schedule/doctors/{doctorID}
func (h *Handler) GetDoctorWeek(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	week, err := h.store.DoctorWeek(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("failed to get doctor schedule", "doctor_id", doctorID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

// UpdateDoctorWeek replaces a doctor's working windows.
// PUT /admin/schedule/doctors/{doctorID}
func (h *Handler) UpdateDoctorWeek(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	var week DoctorWeek
	if err := json.NewDecoder(r.Body).Decode(&week); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.SetDoctorWeek(r.Context(), doctorID, week); err != nil {
		h.writeError(w, err, "failed to save doctor schedule")
		return
	}
	h.logger.Info("doctor schedule updated", "doctor_id", doctorID, "days", len(week))
	writeJSON(w, http.StatusOK, week)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	if apperr.IsKind(err, apperr.KindValidation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": apperr.ReasonOf(err)})
		return
	}
	h.logger.Error(msg, "error", err)
	http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
