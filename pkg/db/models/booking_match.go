package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// BookingMatch is a booking offered to one owner membership, holding reserved points.
type BookingMatch struct {
	ID                            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BookingID                     uuid.UUID         `gorm:"column:booking_id;type:uuid;not null;index"`
	OwnerID                       uuid.UUID         `gorm:"column:owner_id;type:uuid;not null;index"`
	OwnerMembershipID             uuid.UUID         `gorm:"column:owner_membership_id;type:uuid;not null"`
	PointsReserved                int               `gorm:"column:points_reserved;not null"`
	PointsReservedCurrent         int               `gorm:"column:points_reserved_current;not null;default:0"`
	PointsReservedBorrowed        int               `gorm:"column:points_reserved_borrowed;not null;default:0"`
	BorrowMembershipID            *uuid.UUID        `gorm:"column:borrow_membership_id;type:uuid"`
	ExpiresAt                     time.Time         `gorm:"column:expires_at;not null;index"`
	OwnerBaseRatePerPointCents    int64             `gorm:"column:owner_base_rate_per_point_cents;not null;default:0"`
	OwnerPremiumPerPointCents     int64             `gorm:"column:owner_premium_per_point_cents;not null;default:0"`
	OwnerRatePerPointCents        int64             `gorm:"column:owner_rate_per_point_cents;not null;default:0"`
	OwnerTotalCents               int64             `gorm:"column:owner_total_cents;not null;default:0"`
	OwnerHomeResortPremiumApplied bool              `gorm:"column:owner_home_resort_premium_applied;not null;default:false"`
	OwnerBonusPerPointCents       int64             `gorm:"column:owner_bonus_per_point_cents;not null;default:0"`
	Status                        enums.MatchStatus `gorm:"column:status;not null;default:'pending_owner';index"`
	RespondedAt                   *time.Time        `gorm:"column:responded_at"`
	CreatedAt                     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *BookingMatch) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
