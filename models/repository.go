package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"clinic-backend/monitoring"
)

type PatientRepository interface {
	ListPatients() ([]Patient, error)
	GetPatient(id uint) (*Patient, error)
	PatientTaxIDTaken(taxID string, excludeID uint) (bool, error)
	CreatePatient(p *Patient) error
	SavePatient(p *Patient) error
	DeletePatient(id uint) error
	SearchPatients(term string) ([]Patient, error)
}

type DoctorRepository interface {
	ListDoctors() ([]Doctor, error)
	GetDoctor(id uint) (*Doctor, error)
	DoctorLicenseTaken(license string, excludeID uint) (bool, error)
	CreateDoctor(d *Doctor) error
	SaveDoctor(d *Doctor) error
	DeleteDoctor(id uint) error
	SearchDoctors(term string) ([]Doctor, error)
	ListSpecialties() ([]string, error)
}

type AppointmentRepository interface {
	ListAppointments(f AppointmentFilter) ([]AppointmentView, error)
	GetAppointment(id uint) (*Appointment, error)
	GetAppointmentView(id uint) (*AppointmentView, error)
	SlotTaken(doctorID uint, at time.Time, excludeID uint) (bool, error)
	CountAppointments(patientID, doctorID uint) (int64, error)
	CreateAppointment(a *Appointment) error
	SaveAppointment(a *Appointment) error
	DeleteAppointment(id uint) error
}

// Repository is the full set of queries available inside one transaction.
type Repository interface {
	PatientRepository
	DoctorRepository
	AppointmentRepository
	ReportRepository
}

// Store runs units of work against the database. Every service operation
// is exactly one call to Transaction.
type Store interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	Close() error
}

type GormStore struct {
	db *gorm.DB
}

// NewPostgresStore opens the PostgreSQL connection described by dsn.
func NewPostgresStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an already opened gorm handle. The handle should be opened
// with TranslateError so unique and foreign key violations are classified.
func NewStore(db *gorm.DB) (*GormStore, error) {
	err := db.Callback().Query().After("gorm:query").Register("monitoring:query", countQuery)
	if err == nil {
		err = db.Callback().Create().After("gorm:create").Register("monitoring:create", countQuery)
	}
	if err == nil {
		err = db.Callback().Update().After("gorm:update").Register("monitoring:update", countQuery)
	}
	if err == nil {
		err = db.Callback().Delete().After("gorm:delete").Register("monitoring:delete", countQuery)
	}
	if err == nil {
		err = db.Callback().Raw().After("gorm:raw").Register("monitoring:raw", countQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register query callbacks: %w", err)
	}
	return &GormStore{db: db}, nil
}

func countQuery(*gorm.DB) {
	monitoring.DatabaseQueries.Inc()
}

func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&Patient{}, &Doctor{}, &Appointment{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Transaction commits when fn returns nil and rolls back otherwise. The
// returned error is always an *Error.
func (s *GormStore) Transaction(ctx context.Context, fn func(Repository) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
	return classify(err)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormRepository struct {
	db *gorm.DB
}

func (r *gormRepository) dialect() string {
	return r.db.Dialector.Name()
}

// likePattern builds a case-insensitive LIKE pattern with wildcards escaped.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(replacer.Replace(term)) + "%"
}

const likeClause = `LOWER(%s) LIKE ? ESCAPE '\'`

func (r *gormRepository) ListPatients() ([]Patient, error) {
	var patients []Patient
	if err := r.db.Order("id").Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *gormRepository) GetPatient(id uint) (*Patient, error) {
	var p Patient
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, notFound(err, "patient %d not found", id)
	}
	return &p, nil
}

func (r *gormRepository) PatientTaxIDTaken(taxID string, excludeID uint) (bool, error) {
	return r.exists(&Patient{}, "tax_id = ?", taxID, excludeID)
}

func (r *gormRepository) CreatePatient(p *Patient) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) SavePatient(p *Patient) error {
	return r.db.Omit("registered_at").Save(p).Error
}

func (r *gormRepository) DeletePatient(id uint) error {
	return r.db.Delete(&Patient{}, id).Error
}

func (r *gormRepository) SearchPatients(term string) ([]Patient, error) {
	pattern := likePattern(term)
	var patients []Patient
	err := r.db.
		Where(fmt.Sprintf(likeClause, "name"), pattern).
		Or(fmt.Sprintf(likeClause, "tax_id"), pattern).
		Order("id").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *gormRepository) ListDoctors() ([]Doctor, error) {
	var doctors []Doctor
	if err := r.db.Order("id").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *gormRepository) GetDoctor(id uint) (*Doctor, error) {
	var d Doctor
	if err := r.db.First(&d, id).Error; err != nil {
		return nil, notFound(err, "doctor %d not found", id)
	}
	return &d, nil
}

func (r *gormRepository) DoctorLicenseTaken(license string, excludeID uint) (bool, error) {
	return r.exists(&Doctor{}, "license_number = ?", license, excludeID)
}

func (r *gormRepository) CreateDoctor(d *Doctor) error {
	return r.db.Create(d).Error
}

func (r *gormRepository) SaveDoctor(d *Doctor) error {
	return r.db.Omit("registered_at").Save(d).Error
}

func (r *gormRepository) DeleteDoctor(id uint) error {
	return r.db.Delete(&Doctor{}, id).Error
}

func (r *gormRepository) SearchDoctors(term string) ([]Doctor, error) {
	pattern := likePattern(term)
	var doctors []Doctor
	err := r.db.
		Where(fmt.Sprintf(likeClause, "name"), pattern).
		Or(fmt.Sprintf(likeClause, "license_number"), pattern).
		Or(fmt.Sprintf(likeClause, "specialty"), pattern).
		Order("id").
		Find(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *gormRepository) ListSpecialties() ([]string, error) {
	var specialties []string
	err := r.db.Model(&Doctor{}).Distinct("specialty").Order("specialty").Pluck("specialty", &specialties).Error
	if err != nil {
		return nil, err
	}
	return specialties, nil
}

func (r *gormRepository) appointmentViews() *gorm.DB {
	return r.db.Table("appointments").
		Select("appointments.id, appointments.patient_id, patients.name AS patient_name, " +
			"appointments.doctor_id, doctors.name AS doctor_name, appointments.date_time, " +
			"appointments.type, appointments.notes, appointments.status, appointments.created_at").
		Joins("JOIN patients ON patients.id = appointments.patient_id").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id")
}

func (r *gormRepository) ListAppointments(f AppointmentFilter) ([]AppointmentView, error) {
	q := filterAppointments(r.appointmentViews(), f.Start, f.End)
	if f.DoctorID != 0 {
		q = q.Where("appointments.doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != 0 {
		q = q.Where("appointments.patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("appointments.status = ?", f.Status)
	}

	var views []AppointmentView
	if err := q.Order("appointments.date_time DESC, appointments.id DESC").Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *gormRepository) GetAppointment(id uint) (*Appointment, error) {
	var a Appointment
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, notFound(err, "appointment %d not found", id)
	}
	return &a, nil
}

func (r *gormRepository) GetAppointmentView(id uint) (*AppointmentView, error) {
	var views []AppointmentView
	if err := r.appointmentViews().Where("appointments.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, NotFoundf("appointment %d not found", id)
	}
	return &views[0], nil
}

func (r *gormRepository) SlotTaken(doctorID uint, at time.Time, excludeID uint) (bool, error) {
	var n int64
	q := r.db.Model(&Appointment{}).
		Where("doctor_id = ? AND date_time = ? AND status <> ?", doctorID, at, StatusCancelled)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *gormRepository) CountAppointments(patientID, doctorID uint) (int64, error) {
	var n int64
	q := r.db.Model(&Appointment{})
	if patientID != 0 {
		q = q.Where("patient_id = ?", patientID)
	}
	if doctorID != 0 {
		q = q.Where("doctor_id = ?", doctorID)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *gormRepository) CreateAppointment(a *Appointment) error {
	return r.db.Omit(clause.Associations).Create(a).Error
}

func (r *gormRepository) SaveAppointment(a *Appointment) error {
	return r.db.Omit(clause.Associations, "created_at").Save(a).Error
}

func (r *gormRepository) DeleteAppointment(id uint) error {
	return r.db.Delete(&Appointment{}, id).Error
}

// notFound gives gorm.ErrRecordNotFound a message naming the missing record.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundf(format, args...)
	}
	return err
}

func (r *gormRepository) exists(model interface{}, cond string, value interface{}, excludeID uint) (bool, error) {
	var n int64
	q := r.db.Model(model).Where(cond, value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// filterAppointments applies an inclusive date_time range.
func filterAppointments(q *gorm.DB, start, end *time.Time) *gorm.DB {
	if start != nil {
		q = q.Where("appointments.date_time >= ?", *start)
	}
	if end != nil {
		q = q.Where("appointments.date_time <= ?", *end)
	}
	return q
}
