package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-backend/logger"
	"clinic-backend/models"
)

// newTestStore opens a private in-memory SQLite database with the clinic
// schema. One connection keeps every query on the same database.
func newTestStore(t *testing.T) *models.GormStore {
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
	return store
}

// fixedNow is Wednesday 2024-05-15 10:00 clinic time.
var fixedNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store        *models.GormStore
	patients     *PatientService
	doctors      *DoctorService
	appointments *AppointmentService
	reports      *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newTestStore(t)
	log := logger.Discard()
	return &fixture{
		store:        store,
		patients:     NewPatientService(store, nil, 0, log),
		doctors:      NewDoctorService(store, nil, 0, log),
		appointments: NewAppointmentService(store, log),
		reports:      NewReportService(store, func() time.Time { return fixedNow }, log),
	}
}

func (f *fixture) patient(t *testing.T, name, taxID string) *models.Patient {
	t.Helper()
	p, err := f.patients.Create(context.Background(), CreatePatientInput{
		Name:      name,
		TaxID:     taxID,
		BirthDate: "1990-01-01",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) doctor(t *testing.T, name, license, specialty string) *models.Doctor {
	t.Helper()
	d, err := f.doctors.Create(context.Background(), CreateDoctorInput{
		Name:          name,
		LicenseNumber: license,
		Specialty:     specialty,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) book(t *testing.T, patientID, doctorID uint, at string) *models.AppointmentView {
	t.Helper()
	v, err := f.appointments.Create(context.Background(), CreateAppointmentInput{
		PatientID: patientID,
		DoctorID:  doctorID,
		DateTime:  at,
		Type:      models.TypeRegular,
	})
	require.NoError(t, err)
	return v
}

func strPtr(s string) *string {
	return &s
}

// memoryCache is an in-process stand-in for Redis.
type memoryCache struct {
	data    map[string]string
	gets    int
	deletes []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (m *memoryCache) GetFromCache(_ context.Context, key string) (string, error) {
	m.gets++
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryCache) SetToCache(_ context.Context, key string, value string, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryCache) DeleteFromCache(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deletes = append(m.deletes, k)
	}
	return nil
}

func (m *memoryCache) Close() error { return nil }
