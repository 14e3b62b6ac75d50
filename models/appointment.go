package models

import "time"

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	TypeRegular   = "regular"
	TypeFollowUp  = "follow_up"
	TypeEmergency = "emergency"
)

func ValidAppointmentType(t string) bool {
	switch t {
	case TypeRegular, TypeFollowUp, TypeEmergency:
		return true
	}
	return false
}

// Appointment is the stored row. The partial unique index on (doctor_id,
// date_time) backs the double-booking rule for non-cancelled appointments.
type Appointment struct {
	ID        uint      `gorm:"primaryKey"`
	PatientID uint      `gorm:"not null;index"`
	Patient   *Patient  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	DoctorID  uint      `gorm:"not null;uniqueIndex:idx_doctor_slot_active,where:status <> 'cancelled'"`
	Doctor    *Doctor   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	DateTime  time.Time `gorm:"not null;index;uniqueIndex:idx_doctor_slot_active,where:status <> 'cancelled'"`
	Type      string    `gorm:"size:50;not null"`
	Notes     *string   `gorm:"type:text"`
	Status    string    `gorm:"size:20;not null;default:'scheduled'"`
	CreatedAt time.Time `gorm:"autoCreateTime;not null"`
}

// AppointmentView is the read model: an appointment with the patient's and
// doctor's names joined in.
type AppointmentView struct {
	ID          uint
	PatientID   uint
	PatientName string
	DoctorID    uint
	DoctorName  string
	DateTime    time.Time
	Type        string
	Notes       *string
	Status      string
	CreatedAt   time.Time
}

// AppointmentFilter narrows a listing. Nil/zero fields are not applied.
type AppointmentFilter struct {
	Start     *time.Time
	End       *time.Time
	DoctorID  uint
	PatientID uint
	Status    string
}
