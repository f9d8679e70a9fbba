package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"gorm.io/gorm"
)

func ownedReservation(t *testing.T, db *gorm.DB, user models.User, status models.ReservationStatus) models.Reservation {
	t.Helper()
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	r := createReservation(t, db, table, at("19:00"), at("21:00"), status)
	require.NoError(t, db.Model(&r).Update("user_id", user.ID).Error)
	return r
}

func currentStatus(t *testing.T, db *gorm.DB, id uint) models.ReservationStatus {
	t.Helper()
	var r models.Reservation
	require.NoError(t, db.First(&r, id).Error)
	return r.Status
}

func TestCancelByOwner(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner@example.com", "Owner", "")
	r := ownedReservation(t, db, owner, models.StatusConfirmed)
	svc := services.NewStatusService(db, nil, 0)

	canceled, err := svc.CancelByOwner(r.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)
	assert.Equal(t, models.StatusCanceled, currentStatus(t, db, r.ID))

	_, err = svc.CancelByOwner(r.ID, owner.ID)
	requireBookingError(t, err, services.CodeAlreadyCanceled)
}

func TestCancelByOwnerRejectsStrangersAndFinishedBookings(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner@example.com", "Owner", "")
	stranger := createUser(t, db, "other@example.com", "Other", "")
	r := ownedReservation(t, db, owner, models.StatusSeated)
	svc := services.NewStatusService(db, nil, 0)

	_, err := svc.CancelByOwner(r.ID, stranger.ID)
	requireBookingError(t, err, services.CodeForbidden)

	_, err = svc.CancelByOwner(r.ID, owner.ID)
	requireBookingError(t, err, services.CodeNotCancelable)
	assert.Equal(t, models.StatusSeated, currentStatus(t, db, r.ID))

	_, err = svc.CancelByOwner(9999, owner.ID)
	requireBookingError(t, err, services.CodeNotFound)
}

func TestConfirmIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	r := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusPending)
	notifier := &recordingNotifier{}
	svc := services.NewStatusService(db, notifier, 2)

	confirmed, changed, err := svc.Confirm(r.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	again, changed, err := svc.Confirm(r.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusConfirmed, again.Status)

	assert.Equal(t, []uint{r.ID}, notifier.confirmed, "second confirm sends nothing")
	assert.Equal(t, []reminderCall{{ID: r.ID, HoursBefore: 2}}, notifier.reminders)
}

func TestConfirmCanceledReservationFails(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	r := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusCanceled)
	notifier := &recordingNotifier{}
	svc := services.NewStatusService(db, notifier, 2)

	_, _, err := svc.Confirm(r.ID)
	requireBookingError(t, err, services.CodeAlreadyCanceled)
	assert.Empty(t, notifier.confirmed)
}

func TestConfirmWithoutReminders(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	r := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusPending)
	notifier := &recordingNotifier{}

	_, changed, err := services.NewStatusService(db, notifier, 0).Confirm(r.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, notifier.confirmed, 1)
	assert.Empty(t, notifier.reminders)
}

func TestCancelByStaffAnyStatus(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	r := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusSeated)

	canceled, err := services.NewStatusService(db, nil, 0).CancelByStaff(r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)
	assert.Equal(t, models.StatusCanceled, currentStatus(t, db, r.ID))
}

func TestSetStatus(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	r := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusPending)
	notifier := &recordingNotifier{}
	svc := services.NewStatusService(db, notifier, 0)

	_, err := svc.SetStatus(r.ID, "lost")
	requireBookingError(t, err, services.CodeInvalidStatus, "status")

	updated, err := svc.SetStatus(r.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	_, err = svc.SetStatus(r.ID, "confirmed")
	require.NoError(t, err)
	assert.Len(t, notifier.confirmed, 1)

	updated, err = svc.SetStatus(r.ID, "no_show")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, updated.Status)
	assert.Equal(t, models.StatusNoShow, currentStatus(t, db, r.ID))
}

func TestSetStatusReactivationIntoOverlapConflicts(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	old := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusCanceled)
	createReservation(t, db, table, at("20:00"), at("22:00"), models.StatusPending)

	_, err := services.NewStatusService(db, nil, 0).SetStatus(old.ID, "pending")
	requireBookingError(t, err, services.CodeConflict, "status")
	assert.Equal(t, models.StatusCanceled, currentStatus(t, db, old.ID))
}

func TestCheckIn(t *testing.T) {
	db := setupTestDB(t)
	hall := createArea(t, db, "Main hall")
	table := createTable(t, db, hall, "T1", 4)
	pending := createReservation(t, db, table, at("13:00"), at("15:00"), models.StatusPending)
	canceled := createReservation(t, db, table, at("16:00"), at("18:00"), models.StatusCanceled)
	completed := createReservation(t, db, table, at("19:00"), at("21:00"), models.StatusCompleted)
	svc := services.NewStatusService(db, nil, 0)

	r, changed, err := svc.CheckIn(pending.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusSeated, r.Status)
	assert.Equal(t, models.StatusSeated, currentStatus(t, db, pending.ID))

	r, changed, err = svc.CheckIn(pending.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusSeated, r.Status)

	_, _, err = svc.CheckIn(canceled.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyCanceled)

	_, _, err = svc.CheckIn(completed.ID)
	requireBookingError(t, err, services.CodeInvalidStatus, "status")

	_, _, err = svc.CheckIn(9999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
