package models

import (
	"fmt"
	"time"
)

const (
	GranularityDay   = "day"
	GranularityMonth = "month"
	GranularityYear  = "year"
)

type StatusCount struct {
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

type DoctorCount struct {
	DoctorID  uint   `json:"doctor_id"`
	Doctor    string `json:"doctor"`
	Specialty string `json:"specialty"`
	Total     int64  `json:"total"`
}

type PeriodCount struct {
	Period string `json:"period"`
	Total  int64  `json:"total"`
}

type SpecialtyCount struct {
	Specialty string `json:"specialty"`
	Total     int64  `json:"total"`
}

type PatientCount struct {
	PatientID uint   `json:"patient_id"`
	Patient   string `json:"patient"`
	TaxID     string `json:"tax_id"`
	Total     int64  `json:"total"`
}

type ReportRepository interface {
	CountPatients() (int64, error)
	CountDoctors() (int64, error)
	CountAppointmentsBetween(start, end *time.Time) (int64, error)
	AppointmentsByStatus() ([]StatusCount, error)
	UpcomingAppointments(from, to time.Time, limit int) ([]AppointmentView, error)
	AppointmentsByDoctor(start, end *time.Time) ([]DoctorCount, error)
	AppointmentsByPeriod(start, end time.Time, granularity string) ([]PeriodCount, error)
	AppointmentsBySpecialty(start, end *time.Time) ([]SpecialtyCount, error)
	FrequentPatients(limit int) ([]PatientCount, error)
}

func (r *gormRepository) CountPatients() (int64, error) {
	var n int64
	err := r.db.Model(&Patient{}).Count(&n).Error
	return n, err
}

func (r *gormRepository) CountDoctors() (int64, error) {
	var n int64
	err := r.db.Model(&Doctor{}).Count(&n).Error
	return n, err
}

func (r *gormRepository) CountAppointmentsBetween(start, end *time.Time) (int64, error) {
	var n int64
	err := filterAppointments(r.db.Model(&Appointment{}), start, end).Count(&n).Error
	return n, err
}

func (r *gormRepository) AppointmentsByStatus() ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.Model(&Appointment{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

func (r *gormRepository) UpcomingAppointments(from, to time.Time, limit int) ([]AppointmentView, error) {
	var views []AppointmentView
	err := r.appointmentViews().
		Where("appointments.status = ?", StatusScheduled).
		Where("appointments.date_time >= ? AND appointments.date_time <= ?", from, to).
		Order("appointments.date_time ASC, appointments.id ASC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}

func (r *gormRepository) AppointmentsByDoctor(start, end *time.Time) ([]DoctorCount, error) {
	var rows []DoctorCount
	q := r.db.Table("doctors").
		Select("doctors.id AS doctor_id, doctors.name AS doctor, doctors.specialty, COUNT(appointments.id) AS total").
		Joins("JOIN appointments ON appointments.doctor_id = doctors.id")
	err := filterAppointments(q, start, end).
		Group("doctors.id, doctors.name, doctors.specialty").
		Order("total DESC, doctors.name ASC, doctors.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *gormRepository) AppointmentsByPeriod(start, end time.Time, granularity string) ([]PeriodCount, error) {
	bucket, err := r.periodExpr(granularity)
	if err != nil {
		return nil, err
	}
	var rows []PeriodCount
	err = filterAppointments(r.db.Model(&Appointment{}), &start, &end).
		Select(bucket + " AS period, COUNT(*) AS total").
		Group("period").
		Order("period ASC").
		Scan(&rows).Error
	return rows, err
}

// periodExpr renders date_time as a sortable bucket key for the dialect.
func (r *gormRepository) periodExpr(granularity string) (string, error) {
	var pgFormat, sqliteFormat string
	switch granularity {
	case GranularityDay:
		pgFormat, sqliteFormat = "YYYY-MM-DD", "%Y-%m-%d"
	case GranularityMonth:
		pgFormat, sqliteFormat = "YYYY-MM", "%Y-%m"
	case GranularityYear:
		pgFormat, sqliteFormat = "YYYY", "%Y"
	default:
		return "", Validationf("unknown granularity %q", granularity)
	}

	switch r.dialect() {
	case "postgres":
		return fmt.Sprintf("to_char(appointments.date_time AT TIME ZONE 'UTC', '%s')", pgFormat), nil
	case "sqlite":
		return fmt.Sprintf("strftime('%s', appointments.date_time)", sqliteFormat), nil
	default:
		return "", fmt.Errorf("period buckets not supported for dialect %q", r.dialect())
	}
}

func (r *gormRepository) AppointmentsBySpecialty(start, end *time.Time) ([]SpecialtyCount, error) {
	var rows []SpecialtyCount
	q := r.db.Table("doctors").
		Select("doctors.specialty, COUNT(appointments.id) AS total").
		Joins("JOIN appointments ON appointments.doctor_id = doctors.id")
	err := filterAppointments(q, start, end).
		Group("doctors.specialty").
		Order("total DESC, doctors.specialty ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *gormRepository) FrequentPatients(limit int) ([]PatientCount, error) {
	var rows []PatientCount
	err := r.db.Table("patients").
		Select("patients.id AS patient_id, patients.name AS patient, patients.tax_id, COUNT(appointments.id) AS total").
		Joins("JOIN appointments ON appointments.patient_id = patients.id").
		Group("patients.id, patients.name, patients.tax_id").
		Order("total DESC, patients.name ASC, patients.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
