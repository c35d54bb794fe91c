package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerClinicWeek(t *testing.T) {
	h := NewHandler(NewMemoryCatalog(), nil)
	router := h.Routes()

	req := httptest.NewRequest(http.MethodGet, "/clinic", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var week ClinicWeek
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&week))
	assert.True(t, week["monday"].IsOpen)
	assert.False(t, week["sunday"].IsOpen)

	body := `{"monday":{"isOpen":true,"startTime":"08:00","endTime":"12:00"}}`
	req = httptest.NewRequest(http.MethodPut, "/clinic", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/clinic", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	week = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&week))
	assert.Len(t, week, 1)
	assert.Equal(t, "08:00", week["monday"].StartTime)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := NewHandler(NewMemoryCatalog(), nil).Routes()

	req := httptest.NewRequest(http.MethodPut, "/clinic", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/doctors/doc-1", strings.NewReader(`{"monday":{"startTime":"12:00","endTime":"09:00"}}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start time must be before end time")
}

func TestHandlerDoctorWeek(t *testing.T) {
	router := NewHandler(NewMemoryCatalog(), nil).Routes()

	req := httptest.NewRequest(http.MethodPut, "/doctors/doc-7", strings.NewReader(`{"tuesday":{"startTime":"09:00","endTime":"15:00"}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/doctors/doc-7", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var week DoctorWeek
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&week))
	assert.Equal(t, "15:00", week["tuesday"].EndTime)
}
