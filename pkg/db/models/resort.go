package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resort is a DVC resort. CalculatorCode is the short code owners record as
// their home resort.
type Resort struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	CalculatorCode string    `gorm:"column:calculator_code;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Resort) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
