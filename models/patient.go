package models

import "time"

type Patient struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	BirthDate    time.Time `gorm:"type:date;not null" json:"birth_date"`
	TaxID        string    `gorm:"size:14;not null;uniqueIndex" json:"tax_id"`
	Address      *string   `gorm:"type:text" json:"address"`
	Phone        *string   `gorm:"size:20" json:"phone"`
	Email        *string   `gorm:"size:120" json:"email"`
	RegisteredAt time.Time `gorm:"autoCreateTime;not null" json:"registered_at"`
}
