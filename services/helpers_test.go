package services_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobooker/database"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"gorm.io/gorm"
)

var msk = time.FixedZone("MSK", 3*60*60)

var testDay = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testWindow(t *testing.T) services.OperatingWindow {
	t.Helper()
	w, err := services.NewOperatingWindow(services.MustClockTime("12:00"), services.MustClockTime("22:00"), 120, 15, msk)
	require.NoError(t, err)
	return w
}

func at(clock string) time.Time {
	c := services.MustClockTime(clock)
	return services.Combine(testDay, c, msk)
}

func createArea(t *testing.T, db *gorm.DB, name string) models.Area {
	t.Helper()
	area := models.Area{Name: name, IsActive: true}
	require.NoError(t, db.Create(&area).Error)
	return area
}

func createTable(t *testing.T, db *gorm.DB, area models.Area, name string, capacity uint) models.Table {
	t.Helper()
	table := models.Table{AreaID: area.ID, Name: name, Capacity: capacity, Type: models.TableTypeFour, IsActive: true}
	require.NoError(t, db.Create(&table).Error)
	table.Area = area
	return table
}

func createReservation(t *testing.T, db *gorm.DB, table models.Table, start, end time.Time, status models.ReservationStatus) models.Reservation {
	t.Helper()
	r := models.Reservation{
		TableID:       table.ID,
		DatetimeStart: start,
		DatetimeEnd:   end,
		Guests:        2,
		Name:          "Fixture",
		Email:         "fixture@example.com",
		Status:        status,
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func createUser(t *testing.T, db *gorm.DB, email, firstName, phone string) models.User {
	t.Helper()
	u := models.User{Email: email, FirstName: firstName, Phone: phone, Password: "x", Role: models.RoleGuest}
	require.NoError(t, db.Create(&u).Error)
	return u
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type reminderCall struct {
	ID          uint
	HoursBefore int
}

// recordingNotifier captures dispatched notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	created   []uint
	confirmed []uint
	reminders []reminderCall
}

func (n *recordingNotifier) NotifyCreated(id uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, id)
}

func (n *recordingNotifier) NotifyConfirmed(id uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, id)
}

func (n *recordingNotifier) ScheduleReminder(id uint, hoursBefore int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, reminderCall{ID: id, HoursBefore: hoursBefore})
}
