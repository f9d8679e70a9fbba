package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobooker/models"
)

func TestManagerRoutesRequireStaff(t *testing.T) {
	env := setupEnv(t)
	_, guestToken := env.createUser(t, "guest@example.com", models.RoleGuest)

	w := env.do(t, http.MethodGet, "/manager/bookings", nil, guestToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/manager/bookings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConfirmBookingIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	_, staff := env.createUser(t, "staff@example.com", models.RoleStaff)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	r := env.createReservation(t, table, nil, "19:00", models.StatusPending)

	w := env.do(t, http.MethodPost, "/manager/bookings/"+itoa(r.ID)+"/confirm", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, true, data["changed"])

	w = env.do(t, http.MethodPost, "/manager/bookings/"+itoa(r.ID)+"/confirm", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, false, data["changed"])

	assert.Equal(t, 1, env.notifier.confirmed)
}

func TestConfirmAndCancelEdgeCases(t *testing.T) {
	env := setupEnv(t)
	_, staff := env.createUser(t, "staff@example.com", models.RoleAdmin)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	r := env.createReservation(t, table, nil, "19:00", models.StatusSeated)

	w := env.do(t, http.MethodPost, "/manager/bookings/9999/confirm", nil, staff)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/manager/bookings/"+itoa(r.ID)+"/cancel", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "canceled", decode(t, w)["data"].(map[string]interface{})["status"])

	w = env.do(t, http.MethodPost, "/manager/bookings/"+itoa(r.ID)+"/confirm", nil, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.notifier.confirmed)
}

func TestSetBookingStatus(t *testing.T) {
	env := setupEnv(t)
	_, staff := env.createUser(t, "staff@example.com", models.RoleStaff)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	r := env.createReservation(t, table, nil, "19:00", models.StatusPending)

	w := env.do(t, http.MethodPost, "/manager/bookings/"+itoa(r.ID)+"/status", map[string]string{"status": "lost"}, staff)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "status")

	w = env.do(t, http.MethodPost, "/manager/bookings/"+itoa(r.ID)+"/status", map[string]string{"status": "seated"}, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seated", decode(t, w)["data"].(map[string]interface{})["status"])

	w = env.do(t, http.MethodGet, "/manager/statuses", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	statuses := decode(t, w)["data"].([]interface{})
	require.Len(t, statuses, len(models.ReservationStatuses))
	assert.Equal(t, map[string]interface{}{"code": "pending", "label": "Awaiting confirmation"}, statuses[0])
}

func TestGetBookingsFilters(t *testing.T) {
	env := setupEnv(t)
	_, staff := env.createUser(t, "staff@example.com", models.RoleStaff)
	guest, _ := env.createUser(t, "guest@example.com", models.RoleGuest)
	hall := env.createArea(t, "Main hall")
	terrace := env.createArea(t, "Terrace")
	h1 := env.createTable(t, hall, "H1", 4)
	o1 := env.createTable(t, terrace, "O1", 4)

	env.createReservation(t, h1, &guest.ID, "12:00", models.StatusPending)
	env.createReservation(t, h1, nil, "19:00", models.StatusConfirmed)
	env.createReservation(t, o1, nil, "19:00", models.StatusCanceled)

	count := func(query string) float64 {
		w := env.do(t, http.MethodGet, "/manager/bookings"+query, nil, staff)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode(t, w)["data"].(map[string]interface{})["count"].(float64)
	}

	assert.Equal(t, float64(3), count(""))
	assert.Equal(t, float64(2), count("?status=pending&status=confirmed"))
	assert.Equal(t, float64(1), count("?area="+itoa(terrace.ID)))
	assert.Equal(t, float64(2), count("?table="+itoa(h1.ID)))
	assert.Equal(t, float64(1), count("?user="+itoa(guest.ID)))
	assert.Equal(t, float64(3), count("?date_from=2025-06-01&date_to=2025-06-01"))
	assert.Equal(t, float64(0), count("?date_from=2025-06-02"))
	assert.Equal(t, float64(0), count("?date_to=2025-05-31"))

	w := env.do(t, http.MethodGet, "/manager/bookings?status=lost", nil, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodGet, "/manager/bookings?date_from=June", nil, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/manager/bookings", nil, staff)
	results := decode(t, w)["data"].(map[string]interface{})["results"].([]interface{})
	assert.Equal(t, "2025-06-01T19:00:00+03:00", results[0].(map[string]interface{})["datetime_start"])
	assert.Equal(t, "2025-06-01T12:00:00+03:00", results[2].(map[string]interface{})["datetime_start"])
}

func TestGetNotifications(t *testing.T) {
	env := setupEnv(t)
	_, staff := env.createUser(t, "staff@example.com", models.RoleStaff)
	require.NoError(t, env.db.Create(&models.Notification{ReservationID: 1, Kind: "booking_created", Recipient: "a@b.c", Status: models.NotificationSent}).Error)
	require.NoError(t, env.db.Create(&models.Notification{ReservationID: 2, Kind: "booking_created", Recipient: "d@e.f", Status: models.NotificationFailed}).Error)

	w := env.do(t, http.MethodGet, "/manager/notifications?reservation=2", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	results := data["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "failed", results[0].(map[string]interface{})["status"])
	metrics := data["metrics"].(map[string]interface{})
	assert.Equal(t, float64(3), metrics["sent"])
}

func TestCheckInWithQRToken(t *testing.T) {
	env := setupEnv(t)
	_, staff := env.createUser(t, "staff@example.com", models.RoleStaff)
	hall := env.createArea(t, "Main hall")
	table := env.createTable(t, hall, "T1", 4)
	r := env.createReservation(t, table, nil, "19:00", models.StatusConfirmed)
	canceled := env.createReservation(t, table, nil, "13:00", models.StatusCanceled)

	qr, err := env.tokens.MakeQRToken(r.ID)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/manager/checkin", map[string]string{"token": qr}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["changed"])
	booking := data["booking"].(map[string]interface{})
	assert.Equal(t, "seated", booking["status"])
	assert.Equal(t, float64(r.ID), booking["id"])

	w = env.do(t, http.MethodPost, "/manager/checkin", map[string]string{"token": qr}, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["data"].(map[string]interface{})["changed"])

	ics, err := env.tokens.MakeICSToken(r.ID)
	require.NoError(t, err)
	w = env.do(t, http.MethodPost, "/manager/checkin", map[string]string{"token": ics}, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "token")

	w = env.do(t, http.MethodPost, "/manager/checkin", map[string]string{}, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	qr, err = env.tokens.MakeQRToken(canceled.ID)
	require.NoError(t, err)
	w = env.do(t, http.MethodPost, "/manager/checkin", map[string]string{"token": qr}, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, guest := env.createUser(t, "guest@example.com", models.RoleGuest)
	w = env.do(t, http.MethodPost, "/manager/checkin", map[string]string{"token": qr}, guest)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
