package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobooker/controllers"
	"github.com/yeremiapane/restobooker/database"
	"github.com/yeremiapane/restobooker/middlewares"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"github.com/yeremiapane/restobooker/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger("error", "text")
	utils.SetJWTSecret("controllers-test-secret", time.Hour)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var msk = time.FixedZone("MSK", 3*60*60)

type countingNotifier struct {
	mu        sync.Mutex
	created   int
	confirmed int
}

func (n *countingNotifier) NotifyCreated(uint) {
	n.mu.Lock()
	n.created++
	n.mu.Unlock()
}

func (n *countingNotifier) NotifyConfirmed(uint) {
	n.mu.Lock()
	n.confirmed++
	n.mu.Unlock()
}

func (n *countingNotifier) ScheduleReminder(uint, int) {}

type staticMetrics struct{}

func (staticMetrics) Metrics() services.NotificationMetrics {
	return services.NotificationMetrics{Sent: 3, Failed: 1}
}

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	notifier *countingNotifier
	tokens   *services.SignedTokens
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)

	window, err := services.NewOperatingWindow(services.MustClockTime("12:00"), services.MustClockTime("22:00"), 120, 15, msk)
	require.NoError(t, err)
	notifier := &countingNotifier{}
	tokens := services.NewSignedTokens("sign", nil)
	site := services.SiteInfo{BaseURL: "https://book.example.com", Location: msk}

	bookings := services.NewBookingService(db, window, notifier)
	status := services.NewStatusService(db, notifier, 0)
	tableCtrl := controllers.NewTableController(db, "/media/")
	availabilityCtrl := controllers.NewAvailabilityController(db, window)
	bookingCtrl := controllers.NewBookingController(db, bookings, status, tokens, site, nil)
	managerCtrl := controllers.NewManagerController(db, status, tokens, site, staticMetrics{})
	userCtrl := controllers.NewUserController(db)

	r := gin.New()
	r.POST("/auth/register", userCtrl.Register)
	r.POST("/auth/login", userCtrl.Login)
	r.POST("/auth/logout", middlewares.AuthMiddleware(), userCtrl.Logout)
	r.GET("/auth/me", middlewares.AuthMiddleware(), userCtrl.GetProfile)
	r.PATCH("/auth/me", middlewares.AuthMiddleware(), userCtrl.UpdateProfile)

	r.GET("/availability", availabilityCtrl.GetAvailability)
	r.GET("/availability/slots", availabilityCtrl.GetSlots)
	r.GET("/layout/areas", tableCtrl.GetAreas)
	r.GET("/layout/tables", tableCtrl.GetTables)
	r.GET("/layout/table-types", tableCtrl.GetTableTypes)
	r.POST("/bookings", middlewares.OptionalAuth(), bookingCtrl.CreateBooking)
	r.GET("/ical", bookingCtrl.GetICalByToken)

	me := r.Group("/me", middlewares.AuthMiddleware())
	me.GET("/bookings-by-status", bookingCtrl.GetMyBookingsByStatus)
	me.GET("/bookings/:id", bookingCtrl.GetMyBooking)
	me.DELETE("/bookings/:id/cancel", bookingCtrl.CancelMyBooking)
	me.GET("/bookings/:id/ical", bookingCtrl.GetMyBookingICal)

	manager := r.Group("/manager", middlewares.AuthMiddleware(), middlewares.StaffOnly())
	manager.GET("/bookings", managerCtrl.GetBookings)
	manager.GET("/bookings/:id", managerCtrl.GetBooking)
	manager.POST("/bookings/:id/confirm", managerCtrl.ConfirmBooking)
	manager.POST("/bookings/:id/cancel", managerCtrl.CancelBooking)
	manager.POST("/bookings/:id/status", managerCtrl.SetBookingStatus)
	manager.POST("/checkin", managerCtrl.CheckIn)
	manager.GET("/statuses", managerCtrl.GetStatuses)
	manager.GET("/notifications", managerCtrl.GetNotifications)
	manager.POST("/areas", tableCtrl.CreateArea)
	manager.PATCH("/areas/:id", tableCtrl.UpdateArea)
	manager.DELETE("/areas/:id", tableCtrl.DeleteArea)
	manager.POST("/tables", tableCtrl.CreateTable)
	manager.PATCH("/tables/:id", tableCtrl.UpdateTable)
	manager.DELETE("/tables/:id", tableCtrl.DeleteTable)

	return &testEnv{db: db, router: r, notifier: notifier, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func (e *testEnv) createUser(t *testing.T, email, role string) (models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{FirstName: "Test", Email: email, Phone: "+70000000000", Password: string(hash), Role: role}
	require.NoError(t, e.db.Create(&user).Error)
	token, err := utils.GenerateToken(user.ID, role)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) createArea(t *testing.T, name string) models.Area {
	t.Helper()
	area := models.Area{Name: name, IsActive: true}
	require.NoError(t, e.db.Create(&area).Error)
	return area
}

func (e *testEnv) createTable(t *testing.T, area models.Area, name string, capacity uint) models.Table {
	t.Helper()
	table := models.Table{AreaID: area.ID, Name: name, Capacity: capacity, Type: models.TableTypeFour, IsActive: true}
	require.NoError(t, e.db.Create(&table).Error)
	return table
}

func (e *testEnv) createReservation(t *testing.T, table models.Table, userID *uint, start string, status models.ReservationStatus) models.Reservation {
	t.Helper()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	startAt := services.Combine(day, services.MustClockTime(start), msk)
	r := models.Reservation{
		UserID:        userID,
		TableID:       table.ID,
		DatetimeStart: startAt,
		DatetimeEnd:   startAt.Add(2 * time.Hour),
		Guests:        2,
		Name:          "Fixture",
		Email:         "fixture@example.com",
		Status:        status,
	}
	require.NoError(t, e.db.Create(&r).Error)
	return r
}
