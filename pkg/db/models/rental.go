package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// Rental is the fulfilment record created once an owner accepts a match.
type Rental struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	MatchID           uuid.UUID          `gorm:"column:match_id;type:uuid;not null;uniqueIndex"`
	BookingID         uuid.UUID          `gorm:"column:booking_id;type:uuid;not null;index"`
	OwnerID           uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;index"`
	OwnerUserID       *uuid.UUID         `gorm:"column:owner_user_id;type:uuid"`
	GuestUserID       uuid.UUID          `gorm:"column:guest_user_id;type:uuid;not null;index"`
	ResortID          *uuid.UUID         `gorm:"column:resort_id;type:uuid"`
	CheckIn           *time.Time         `gorm:"column:check_in;type:date"`
	CheckOut          *time.Time         `gorm:"column:check_out;type:date"`
	Points            int                `gorm:"column:points;not null;default:0"`
	RentalAmountCents int64              `gorm:"column:rental_amount_cents;not null;default:0"`
	GuestTotalCents   *int64             `gorm:"column:guest_total_cents"`
	BookingPackage    datatypes.JSON     `gorm:"column:booking_package"`
	Status            enums.RentalStatus `gorm:"column:status;not null;default:'needs_dvc_booking'"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Rental) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// RentalMilestone is one checklist step of a rental. (rental_id, code) is unique.
type RentalMilestone struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RentalID    uuid.UUID             `gorm:"column:rental_id;type:uuid;not null;uniqueIndex:idx_rental_milestone_code" json:"rentalId"`
	Code        enums.MilestoneCode   `gorm:"column:code;not null;uniqueIndex:idx_rental_milestone_code" json:"code"`
	Position    int                   `gorm:"column:position;not null" json:"position"`
	Status      enums.MilestoneStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	CompletedAt *time.Time            `gorm:"column:completed_at" json:"completedAt"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (m *RentalMilestone) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
