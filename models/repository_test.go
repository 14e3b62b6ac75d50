package models

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestTransactionClassifiesDriverFailure(t *testing.T) {
	store, mock := newMockStore(t)
	driverErr := errors.New("connection reset by peer")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "patients"`)).WillReturnError(driverErr)
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(repo Repository) error {
		_, err := repo.ListPatients()
		return err
	})
	require.Error(t, err)
	assert.Equal(t, KindStore, KindOf(err))
	assert.True(t, errors.Is(err, driverErr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionClassifiesUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "patients"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(repo Repository) error {
		return repo.CreatePatient(&Patient{Name: "Ana", TaxID: "111"})
	})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "doctors"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	var n int64
	err := store.Transaction(context.Background(), func(repo Repository) error {
		var err error
		n, err = repo.CountDoctors()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPatientNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "patients" WHERE "patients"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(repo Repository) error {
		_, err := repo.GetPatient(5)
		return err
	})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "patient 5 not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
