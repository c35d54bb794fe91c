package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/booking"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/internal/services"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const testSecret = "staff-secret"

func newTestRouter(t *testing.T, health func(ctx context.Context) error) http.Handler {
	t.Helper()

	logger := logging.NewWithWriter(io.Discard, "error")
	catalog := schedule.NewMemoryCatalog()
	if err := catalog.SetDoctorWeek(context.Background(), "doc-1", schedule.DoctorWeek{
		"monday": {StartTime: "09:00", EndTime: "17:00"},
	}); err != nil {
		t.Fatalf("seed doctor week: %v", err)
	}
	outbox := events.NewMemoryOutbox()
	store := appointments.NewMemoryStore(outbox)
	resolver := services.NewResolver(services.NewMemoryCatalog(), "srv001", 30, logger)

	reg := prometheus.NewRegistry()
	svc := booking.NewService(store, catalog, resolver, booking.Options{}, logger).
		WithMetrics(metrics.NewBookingMetrics(reg)).
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) })

	return New(&Config{
		Logger:          logger,
		BookingHandler:  booking.NewHandler(svc, logger),
		ScheduleHandler: schedule.NewHandler(catalog, logger),
		OutboxHandler:   events.NewHandler(outbox, logger),
		StaffAuthSecret: testSecret,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HealthCheck:     health,
	})
}

func staffToken(t *testing.T) string {
	t.Helper()
	claims := httpmiddleware.StaffClaims{
		Role: "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(router http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterHealthDegraded(t *testing.T) {
	router := newTestRouter(t, func(ctx context.Context) error { return errors.New("redis down") })

	rr := serve(router, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestRouterBookingFlow(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/availability?doctorId=doc-1&date=2025-03-10&serviceId=consultation", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var slots []string
	if err := json.NewDecoder(rr.Body).Decode(&slots); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	if len(slots) == 0 || slots[0] != "09:00" {
		t.Fatalf("expected slots starting at 09:00, got %v", slots)
	}

	rr = serve(router, http.MethodPost, "/booking", `{"patientId":"pat-1","doctorId":"doc-1","serviceId":"consultation","date":"2025-03-10","time":"09:00"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	id := created["appointmentId"]

	rr = serve(router, http.MethodPost, "/booking/"+id+"/status", `{"status":"confirmed"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without token: expected 401, got %d", rr.Code)
	}
	rr = serve(router, http.MethodPost, "/booking/"+id+"/status", `{"status":"confirmed"}`, staffToken(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("status with token: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = serve(router, http.MethodGet, "/admin/outbox", "", staffToken(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("outbox: expected 200, got %d", rr.Code)
	}
	var pending []events.OutboxEntry
	if err := json.NewDecoder(rr.Body).Decode(&pending); err != nil {
		t.Fatalf("decode outbox: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(pending))
	}

	rr = serve(router, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `clinic_booking_operations_total{operation="create",outcome="ok"} 1`) {
		t.Fatalf("expected create counter in metrics output")
	}
}

func TestRouterAdminScheduleRequiresStaff(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/admin/schedule/clinic", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = serve(router, http.MethodGet, "/admin/schedule/clinic", "", staffToken(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var week schedule.ClinicWeek
	if err := json.NewDecoder(rr.Body).Decode(&week); err != nil {
		t.Fatalf("decode clinic week: %v", err)
	}
	if !week["monday"].IsOpen {
		t.Fatalf("expected default week to open on monday")
	}
}
