package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-backend/models"
)

func TestBookingCancelRebook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doctor, err := f.doctors.Create(ctx, CreateDoctorInput{Name: "A. Silva", LicenseNumber: "CRM123", Specialty: "Cardiology"})
	require.NoError(t, err)
	patient, err := f.patients.Create(ctx, CreatePatientInput{Name: "J. Doe", TaxID: "111", BirthDate: "1990-01-01"})
	require.NoError(t, err)

	input := CreateAppointmentInput{PatientID: patient.ID, DoctorID: doctor.ID, DateTime: "2024-06-01T10:00", Type: "regular"}
	first, err := f.appointments.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, first.Status)

	_, err = f.appointments.Create(ctx, input)
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	_, err = f.appointments.PatchStatus(ctx, first.ID, models.StatusCancelled)
	require.NoError(t, err)

	second, err := f.appointments.Create(ctx, input)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestJanuaryDailyBuckets(t *testing.T) {
	f := newFixture(t)
	p := f.patient(t, "J. Doe", "111")
	d := f.doctor(t, "A. Silva", "CRM123", "Cardiology")
	f.book(t, p.ID, d.ID, "2024-01-05T09:00")
	f.book(t, p.ID, d.ID, "2024-01-05T11:00")
	f.book(t, p.ID, d.ID, "2024-01-31T16:00")

	rows, err := f.reports.AppointmentsByPeriod(context.Background(), "2024-01-01", "2024-01-31", "day")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var total int64
	for _, r := range rows {
		total += r.Total
	}
	assert.Equal(t, int64(3), total)
	assert.Equal(t, models.PeriodCount{Period: "2024-01-05", Total: 2}, rows[0])
	assert.Equal(t, models.PeriodCount{Period: "2024-01-31", Total: 1}, rows[1])
}

func TestFrequentPatientsLimitThree(t *testing.T) {
	f := newFixture(t)
	d := f.doctor(t, "A. Silva", "CRM123", "Cardiology")
	names := []string{"Eva", "Dan", "Cid", "Bea", "Ada"}
	hour := 8
	for i, name := range names {
		p := f.patient(t, name, name)
		for j := 0; j <= i%3; j++ {
			f.book(t, p.ID, d.ID, "2024-02-01T"+twoDigits(hour)+":00")
			hour++
		}
	}

	rows, err := f.reports.FrequentPatients(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Total, rows[i].Total)
	}
	// Cid has 3; Dan and Ada tie on 2 and break on name.
	assert.Equal(t, []string{"Cid", "Ada", "Dan"}, []string{rows[0].Patient, rows[1].Patient, rows[2].Patient})
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
