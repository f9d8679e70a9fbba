package controllers_test

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobooker/models"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func TestCreateBookingAnonymous(t *testing.T) {
	env := setupEnv(t)
	hall := env.createArea(t, "Main hall")
	env.createTable(t, hall, "T6", 6)
	env.createTable(t, hall, "T2", 2)

	w := env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 2, "name": "Ann", "phone": "+79990000000", "duration_min": 90,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "T2", data["table_name"])
	assert.Equal(t, "Main hall", data["table_area"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "2025-06-01T19:00:00+03:00", data["datetime_start"])
	assert.Equal(t, "2025-06-01T20:30:00+03:00", data["datetime_end"])
	assert.NotContains(t, data, "user")
	assert.Equal(t, 1, env.notifier.created)
}

func TestCreateBookingErrors(t *testing.T) {
	env := setupEnv(t)
	hall := env.createArea(t, "Main hall")
	small := env.createTable(t, hall, "T2", 2)
	busy := env.createTable(t, hall, "T4", 4)
	env.createReservation(t, busy, nil, "18:00", models.StatusPending)

	w := env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 2, "name": "Ann",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode(t, w)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "phone")
	assert.Contains(t, errs, "email")

	w = env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 3, "table_id": small.ID, "name": "Ann", "phone": "1",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "guests")

	w = env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 2, "table_id": busy.ID, "name": "Ann", "phone": "1",
	}, "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "table_id")

	w = env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 2, "table_id": 999, "name": "Ann", "phone": "1",
	}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 2, "name": "Ann", "phone": "1",
	}, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Zero(t, env.notifier.created)
}

func TestCreateBookingAuthenticatedUsesProfile(t *testing.T) {
	env := setupEnv(t)
	hall := env.createArea(t, "Main hall")
	env.createTable(t, hall, "T1", 4)
	user, token := env.createUser(t, "guest@example.com", models.RoleGuest)

	w := env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"date": "2025-06-01", "start": "19:00", "guests": 2,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(user.ID), data["user"])
	assert.Equal(t, "Test", data["name"])
	assert.Equal(t, "guest@example.com", data["email"])
	assert.Equal(t, "+70000000000", data["phone"])
}

func TestMyBookings(t *testing.T) {
	env := setupEnv(t)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	owner, ownerToken := env.createUser(t, "owner@example.com", models.RoleGuest)
	_, strangerToken := env.createUser(t, "other@example.com", models.RoleGuest)

	pending := env.createReservation(t, table, &owner.ID, "12:00", models.StatusPending)
	env.createReservation(t, table, &owner.ID, "15:00", models.StatusConfirmed)
	env.createReservation(t, table, &owner.ID, "19:00", models.StatusConfirmed)

	w := env.do(t, http.MethodGet, "/me/bookings-by-status", nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	counts := data["counts"].(map[string]interface{})
	assert.Equal(t, float64(1), counts["pending"])
	assert.Equal(t, float64(2), counts["confirmed"])
	assert.Equal(t, float64(0), counts["canceled"])
	confirmed := data["by_status"].(map[string]interface{})["confirmed"].([]interface{})
	require.Len(t, confirmed, 2)
	assert.Equal(t, "2025-06-01T19:00:00+03:00", confirmed[0].(map[string]interface{})["datetime_start"], "newest first")

	w = env.do(t, http.MethodGet, "/me/bookings/"+itoa(pending.ID), nil, ownerToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/me/bookings/"+itoa(pending.ID), nil, strangerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/me/bookings/9999", nil, ownerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/me/bookings/abc", nil, ownerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/me/bookings-by-status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancelMyBooking(t *testing.T) {
	env := setupEnv(t)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	owner, ownerToken := env.createUser(t, "owner@example.com", models.RoleGuest)
	_, strangerToken := env.createUser(t, "other@example.com", models.RoleGuest)
	r := env.createReservation(t, table, &owner.ID, "19:00", models.StatusPending)

	w := env.do(t, http.MethodDelete, "/me/bookings/"+itoa(r.ID)+"/cancel", nil, strangerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/me/bookings/"+itoa(r.ID)+"/cancel", nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, "canceled", data["status"])

	w = env.do(t, http.MethodDelete, "/me/bookings/"+itoa(r.ID)+"/cancel", nil, ownerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reservation is already canceled", decode(t, w)["message"])
}

func TestICalDownloads(t *testing.T) {
	env := setupEnv(t)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	owner, ownerToken := env.createUser(t, "owner@example.com", models.RoleGuest)
	r := env.createReservation(t, table, &owner.ID, "19:00", models.StatusConfirmed)

	w := env.do(t, http.MethodGet, "/me/bookings/"+itoa(r.ID)+"/ical", nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "booking_"+itoa(r.ID)+".ics")
	assert.Contains(t, w.Body.String(), "DTSTART;TZID=MSK:20250601T190000")

	token, err := env.tokens.MakeICSToken(r.ID)
	require.NoError(t, err)
	w = env.do(t, http.MethodGet, "/ical?token="+token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "UID:restobooker-"+itoa(r.ID)+"@book.example.com")

	qr, err := env.tokens.MakeQRToken(r.ID)
	require.NoError(t, err)
	w = env.do(t, http.MethodGet, "/ical?token="+qr, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "QR tokens do not open calendar links")
	assert.Contains(t, decode(t, w)["errors"], "token")

	w = env.do(t, http.MethodGet, "/ical", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
