package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/utils"
)

type fakeDirectory struct {
	indexed  []models.DirectoryEntry
	removed  []string
	indexErr error
	// outages is how many IndexEntry calls fail before the index recovers.
	outages  int
	attempts int
}

func (f *fakeDirectory) IndexEntry(_ context.Context, entry models.DirectoryEntry) error {
	f.attempts++
	if f.outages > 0 {
		f.outages--
		return errors.New("index unavailable")
	}
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, entry)
	return nil
}

func (f *fakeDirectory) RemoveEntry(_ context.Context, kind string, id uint) error {
	f.removed = append(f.removed, models.DirectoryDocumentID(kind, id))
	return nil
}

func newTestConsumer(dir Directory) *ClinicConsumer {
	return &ClinicConsumer{
		directory: dir,
		log:       logger.Discard().WithComponent("consumer"),
		shutdown:  make(chan struct{}),
		retryMin:  time.Millisecond,
		retryMax:  4 * time.Millisecond,
	}
}

func encode(t *testing.T, eventType string, id uint, data interface{}) []byte {
	t.Helper()
	event, err := utils.NewEvent(eventType, id, data)
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestHandleMessageIndexesEntities(t *testing.T) {
	dir := &fakeDirectory{}
	c := newTestConsumer(dir)
	ctx := context.Background()

	phone := "555-0101"
	patient := &models.Patient{ID: 4, Name: "Ana", TaxID: "111", Phone: &phone}
	doctor := &models.Doctor{ID: 2, Name: "Dr. Carla", LicenseNumber: "CRM-100", Specialty: "Cardiology"}

	require.NoError(t, c.HandleMessage(ctx, encode(t, models.EventPatientCreated, 4, models.PatientEntry(patient))))
	require.NoError(t, c.HandleMessage(ctx, encode(t, models.EventDoctorUpdated, 2, models.DoctorEntry(doctor))))
	require.NoError(t, c.HandleMessage(ctx, encode(t, models.EventPatientDeleted, 4, nil)))

	require.Len(t, dir.indexed, 2)
	assert.Equal(t, "patient-4", dir.indexed[0].DocumentID())
	assert.Equal(t, "555-0101", dir.indexed[0].Phone)
	assert.Equal(t, "Cardiology", dir.indexed[1].Specialty)
	assert.Equal(t, []string{"patient-4"}, dir.removed)
}

func TestHandleMessageSkipsWhatItCannotUse(t *testing.T) {
	dir := &fakeDirectory{}
	c := newTestConsumer(dir)
	ctx := context.Background()

	assert.NoError(t, c.HandleMessage(ctx, []byte("not json")))
	assert.NoError(t, c.HandleMessage(ctx, encode(t, models.EventAppointmentCreated, 9, map[string]string{"status": "scheduled"})))
	assert.NoError(t, c.HandleMessage(ctx, encode(t, models.EventDoctorCreated, 5, nil)))

	assert.Empty(t, dir.indexed)
	assert.Empty(t, dir.removed)
}

func TestHandleEventFillsMissingIdentity(t *testing.T) {
	dir := &fakeDirectory{}
	c := newTestConsumer(dir)

	event := models.Event{Event: models.EventDoctorCreated, EntityID: 8, Data: json.RawMessage(`{"name":"Dr. Davi"}`)}
	require.NoError(t, c.HandleEvent(context.Background(), event))

	require.Len(t, dir.indexed, 1)
	assert.Equal(t, "doctor-8", dir.indexed[0].DocumentID())
}

func TestHandleEventReturnsIndexFailure(t *testing.T) {
	dir := &fakeDirectory{indexErr: errors.New("index unavailable")}
	c := newTestConsumer(dir)

	event := models.Event{Event: models.EventPatientUpdated, EntityID: 1, Data: json.RawMessage(`{"kind":"patient","id":1,"name":"Ana"}`)}
	err := c.HandleEvent(context.Background(), event)
	assert.EqualError(t, err, "index unavailable")
}

func TestApplyWithRetryReappliesSameEvent(t *testing.T) {
	dir := &fakeDirectory{outages: 2}
	c := newTestConsumer(dir)

	value := encode(t, models.EventPatientCreated, 3, models.DirectoryEntry{Kind: "patient", ID: 3, Name: "Bruno"})
	require.True(t, c.applyWithRetry(context.Background(), value, 42))

	assert.Equal(t, 3, dir.attempts)
	require.Len(t, dir.indexed, 1)
	assert.Equal(t, "patient-3", dir.indexed[0].DocumentID())
	assert.Equal(t, "Bruno", dir.indexed[0].Name)
}

func TestApplyWithRetryStopsOnShutdown(t *testing.T) {
	dir := &fakeDirectory{indexErr: errors.New("index unavailable")}
	c := newTestConsumer(dir)
	c.retryMin = time.Hour
	close(c.shutdown)

	value := encode(t, models.EventDoctorUpdated, 7, models.DirectoryEntry{Kind: "doctor", ID: 7, Name: "Dr. Eva"})
	assert.False(t, c.applyWithRetry(context.Background(), value, 1))
	assert.Equal(t, 1, dir.attempts)
	assert.Empty(t, dir.indexed)
}

func TestApplyWithRetryStopsOnContextCancel(t *testing.T) {
	dir := &fakeDirectory{indexErr: errors.New("index unavailable")}
	c := newTestConsumer(dir)
	c.retryMin = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value := encode(t, models.EventPatientDeleted, 9, nil)
	// Deletes do not touch IndexEntry, so they apply even with the index down.
	assert.True(t, c.applyWithRetry(ctx, value, 1))

	value = encode(t, models.EventPatientUpdated, 9, models.DirectoryEntry{Kind: "patient", ID: 9, Name: "Caio"})
	assert.False(t, c.applyWithRetry(ctx, value, 2))
}
