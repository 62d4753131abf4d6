package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PricingPromotion caps loyalty perks while it is active.
type PricingPromotion struct {
	ID                          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name                        string     `gorm:"column:name;not null"`
	Active                      bool       `gorm:"column:active;not null;default:false"`
	StartsAt                    *time.Time `gorm:"column:starts_at"`
	EndsAt                      *time.Time `gorm:"column:ends_at"`
	OwnerMaxBonusPerPointCents  int64      `gorm:"column:owner_max_bonus_per_point_cents;not null;default:0"`
	MinSpreadPerPointCents      int64      `gorm:"column:min_spread_per_point_cents;not null;default:0"`
	GuestRewardPerPointCents    int64      `gorm:"column:guest_reward_per_point_cents;not null;default:0"`
	GuestMaxRewardPerPointCents int64      `gorm:"column:guest_max_reward_per_point_cents;not null;default:0"`
	CreatedAt                   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (p *PricingPromotion) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// GuestRewardsEnrollment marks a guest as enrolled in guest perks.
type GuestRewardsEnrollment struct {
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	EnrolledAt time.Time  `gorm:"column:enrolled_at;not null"`
	OptedOutAt *time.Time `gorm:"column:opted_out_at"`
}

// OwnerRewardsEnrollment marks an owner as enrolled in owner rewards.
type OwnerRewardsEnrollment struct {
	OwnerID       uuid.UUID  `gorm:"column:owner_id;type:uuid;primaryKey"`
	EnrolledAt    time.Time  `gorm:"column:enrolled_at;not null"`
	PreferredTier *string    `gorm:"column:preferred_tier"`
	OptedOutAt    *time.Time `gorm:"column:opted_out_at"`
}
