package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-backend/logger"
	"clinic-backend/models"
)

func TestPatientCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.patients.Create(ctx, CreatePatientInput{
		Name:      "  Ana Souza ",
		TaxID:     "123.456.789-00",
		BirthDate: "1985-03-12",
		Phone:     strPtr("555-0101"),
	})
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, "Ana Souza", p.Name)
	assert.Equal(t, "1985-03-12", p.BirthDate.Format(DateLayout))
	assert.False(t, p.RegisteredAt.IsZero())
	assert.Nil(t, p.Address)
	require.NotNil(t, p.Phone)
	assert.Equal(t, "555-0101", *p.Phone)

	got, err := f.patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.TaxID, got.TaxID)
	assert.Equal(t, "1985-03-12", got.BirthDate.Format(DateLayout))
}

func TestPatientCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePatientInput
	}{
		{"missing name", CreatePatientInput{TaxID: "1", BirthDate: "1990-01-01"}},
		{"blank tax id", CreatePatientInput{Name: "A", TaxID: "   ", BirthDate: "1990-01-01"}},
		{"missing birth date", CreatePatientInput{Name: "A", TaxID: "1"}},
		{"bad birth date", CreatePatientInput{Name: "A", TaxID: "1", BirthDate: "12/03/1990"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.patients.Create(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, models.KindValidation, models.KindOf(err))
		})
	}

	patients, err := f.patients.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestPatientCreateDuplicateTaxID(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "Ana", "111")

	_, err := f.patients.Create(context.Background(), CreatePatientInput{Name: "Other", TaxID: "111", BirthDate: "1970-07-07"})
	require.Error(t, err)
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestPatientUpdatePartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.patients.Create(ctx, CreatePatientInput{
		Name:      "Ana",
		TaxID:     "111",
		BirthDate: "1985-03-12",
		Address:   strPtr("Rua A, 1"),
		Phone:     strPtr("555-0101"),
	})
	require.NoError(t, err)

	var upd PatientUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Ana Maria","tax_id":"","phone":null}`), &upd))

	updated, err := f.patients.Update(ctx, p.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "111", updated.TaxID, "empty required value is ignored")
	assert.Nil(t, updated.Phone, "explicit null clears")
	require.NotNil(t, updated.Address, "absent optional value is kept")
	assert.Equal(t, "Rua A, 1", *updated.Address)

	got, err := f.patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.Name)
	assert.Nil(t, got.Phone)
	assert.Equal(t, "1985-03-12", got.BirthDate.Format(DateLayout))
	assert.Equal(t, p.RegisteredAt.Unix(), got.RegisteredAt.Unix())
}

func TestPatientUpdateTaxID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.patient(t, "Ana", "111")
	f.patient(t, "Bruno", "222")

	_, err := f.patients.Update(ctx, a.ID, PatientUpdate{TaxID: models.Some("222")})
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	// Resubmitting its own tax id is not a conflict.
	_, err = f.patients.Update(ctx, a.ID, PatientUpdate{TaxID: models.Some("111")})
	require.NoError(t, err)

	updated, err := f.patients.Update(ctx, a.ID, PatientUpdate{TaxID: models.Some("333"), BirthDate: models.Some("2000-02-29")})
	require.NoError(t, err)
	assert.Equal(t, "333", updated.TaxID)
	assert.Equal(t, "2000-02-29", updated.BirthDate.Format(DateLayout))

	_, err = f.patients.Update(ctx, a.ID, PatientUpdate{BirthDate: models.Some("2001-02-29")})
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestPatientUpdateNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.patients.Update(context.Background(), 42, PatientUpdate{Name: models.Some("X")})
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPatientDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.patient(t, "Ana", "111")
	d := f.doctor(t, "Dr. House", "CRM-1", "Diagnostics")
	appt := f.book(t, p.ID, d.ID, "2024-05-10T09:00")

	err := f.patients.Delete(ctx, p.ID)
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	require.NoError(t, f.appointments.Delete(ctx, appt.ID))
	require.NoError(t, f.patients.Delete(ctx, p.ID))

	_, err = f.patients.Get(ctx, p.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = f.patients.Delete(ctx, p.ID)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestPatientSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patient(t, "Ana Souza", "111.222")
	f.patient(t, "Bruno Lima", "333.444")
	f.patient(t, "100% Real", "555")

	found, err := f.patients.Search(ctx, "SOUZA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana Souza", found[0].Name)

	found, err = f.patients.Search(ctx, "333")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bruno Lima", found[0].Name)

	found, err = f.patients.Search(ctx, "%")
	require.NoError(t, err)
	require.Len(t, found, 1, "wildcards match literally")
	assert.Equal(t, "100% Real", found[0].Name)

	found, err = f.patients.Search(ctx, "  ")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)

	all, err := f.patients.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
}

func TestPatientCache(t *testing.T) {
	store := newTestStore(t)
	cache := newMemoryCache()
	svc := NewPatientService(store, cache, 0, logger.Discard())
	ctx := context.Background()

	p, err := svc.Create(ctx, CreatePatientInput{Name: "Ana", TaxID: "111", BirthDate: "1990-01-01"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Contains(t, cache.data, "patient:1")

	cached, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", cached.Name)

	_, err = svc.Update(ctx, p.ID, PatientUpdate{Name: models.Some("Ana Maria")})
	require.NoError(t, err)
	assert.NotContains(t, cache.data, "patient:1")

	fresh, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", fresh.Name)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.NotContains(t, cache.data, "patient:1")
	assert.Equal(t, []string{"patient:1", "patient:1"}, cache.deletes)
}

func TestPatientCacheDropsCorruptEntry(t *testing.T) {
	store := newTestStore(t)
	cache := newMemoryCache()
	svc := NewPatientService(store, cache, 0, logger.Discard())
	ctx := context.Background()

	p, err := svc.Create(ctx, CreatePatientInput{Name: "Ana", TaxID: "111", BirthDate: "1990-01-01"})
	require.NoError(t, err)
	cache.data["patient:1"] = "{not json"

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
}

func TestPatientRejectsOverlongFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.patient(t, "Ana", "111")

	_, err := f.patients.Create(ctx, CreatePatientInput{Name: "Bia", TaxID: "123.456.789-001", BirthDate: "1990-01-01"})
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	assert.Contains(t, err.Error(), "tax_id must be at most 14 characters")

	_, err = f.patients.Create(ctx, CreatePatientInput{Name: strings.Repeat("a", models.MaxNameLen+1), TaxID: "222", BirthDate: "1990-01-01"})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = f.patients.Update(ctx, p.ID, PatientUpdate{TaxID: models.Some(strings.Repeat("9", models.MaxTaxIDLen+1))})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = f.patients.Update(ctx, p.ID, PatientUpdate{Email: models.Some(strings.Repeat("e", models.MaxEmailLen+1))})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	got, err := f.patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "111", got.TaxID)
	assert.Nil(t, got.Email)
}
