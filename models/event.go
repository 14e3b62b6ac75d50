package models

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	EventPatientCreated = "patient.created"
	EventPatientUpdated = "patient.updated"
	EventPatientDeleted = "patient.deleted"

	EventDoctorCreated = "doctor.created"
	EventDoctorUpdated = "doctor.updated"
	EventDoctorDeleted = "doctor.deleted"

	EventAppointmentCreated       = "appointment.created"
	EventAppointmentUpdated       = "appointment.updated"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventAppointmentDeleted       = "appointment.deleted"
)

// Event is the message published on the clinic events topic.
type Event struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	EntityID   uint            `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// DirectoryEntry is the document kept in the search index for patients and doctors.
type DirectoryEntry struct {
	Kind          string `json:"kind"`
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	TaxID         string `json:"tax_id,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	Specialty     string `json:"specialty,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

func (e DirectoryEntry) DocumentID() string {
	return DirectoryDocumentID(e.Kind, e.ID)
}

func DirectoryDocumentID(kind string, id uint) string {
	return kind + "-" + strconv.FormatUint(uint64(id), 10)
}

func PatientEntry(p *Patient) DirectoryEntry {
	return DirectoryEntry{
		Kind:  "patient",
		ID:    p.ID,
		Name:  p.Name,
		TaxID: p.TaxID,
		Phone: deref(p.Phone),
		Email: deref(p.Email),
	}
}

func DoctorEntry(d *Doctor) DirectoryEntry {
	return DirectoryEntry{
		Kind:          "doctor",
		ID:            d.ID,
		Name:          d.Name,
		LicenseNumber: d.LicenseNumber,
		Specialty:     d.Specialty,
		Phone:         deref(d.Phone),
		Email:         deref(d.Email),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
