package models

import "time"

type Doctor struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	LicenseNumber string    `gorm:"size:20;not null;uniqueIndex" json:"license_number"`
	Specialty     string    `gorm:"size:100;not null;index" json:"specialty"`
	Phone         *string   `gorm:"size:20" json:"phone"`
	Email         *string   `gorm:"size:120" json:"email"`
	RegisteredAt  time.Time `gorm:"autoCreateTime;not null" json:"registered_at"`
}
