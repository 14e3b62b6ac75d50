package models

// Column widths of the size-limited string columns. Keep these in step with
// the gorm size tags on Patient, Doctor and Appointment.
const (
	MaxNameLen      = 100
	MaxTaxIDLen     = 14
	MaxLicenseLen   = 20
	MaxSpecialtyLen = 100
	MaxPhoneLen     = 20
	MaxEmailLen     = 120
	MaxStatusLen    = 20
)
