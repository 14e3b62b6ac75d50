package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := models.NewStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())

	log := logger.Discard()
	events := NewEventPublisher(nil, "clinic_events", log)
	h := Handlers{
		Patients:     NewPatientHandler(services.NewPatientService(store, nil, 0, log), events),
		Doctors:      NewDoctorHandler(services.NewDoctorService(store, nil, 0, log), events),
		Appointments: NewAppointmentHandler(services.NewAppointmentService(store, log), events),
		Reports:      NewReportHandler(services.NewReportService(store, func() time.Time { return testNow }, log)),
	}

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), h)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
