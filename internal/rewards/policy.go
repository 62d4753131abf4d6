// Package rewards holds the guest perks and owner rewards programs and the
// promotion caps that bound them.
package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardsPolicy answers loyalty questions for guests and owners.
type RewardsPolicy interface {
	IsGuestPerksEnrolled(ctx context.Context, userID uuid.UUID) (bool, error)
	CountCompletedGuestBookings(ctx context.Context, userID uuid.UUID) (int, error)
	GuestPerksDiscountPct(completedBookings int) decimal.Decimal

	IsOwnerRewardsEnrolled(ctx context.Context, ownerID uuid.UUID) (bool, error)
	SumOwnerCompletedPoints(ctx context.Context, ownerID uuid.UUID) (int, error)
	OwnerPreferredTier(ctx context.Context, ownerID uuid.UUID) (*OwnerTier, error)
	OwnerPreferredBonusCents(lifetimePoints int, preferred *OwnerTier) int64
	ApplyOwnerBonusWithMargin(input BonusInput) int64
}

// PromotionPolicy returns the promotion in force at a given time, or nil.
type PromotionPolicy interface {
	ActivePromotion(ctx context.Context, at time.Time) (*Promotion, error)
}

// Promotion caps the perks both sides may receive while it is active.
type Promotion struct {
	ID                          uuid.UUID
	Name                        string
	OwnerMaxBonusPerPointCents  int64
	MinSpreadPerPointCents      int64
	GuestRewardPerPointCents    int64
	GuestMaxRewardPerPointCents int64
}

// GuestRewardPerPoint is the guest reward after its own cap.
func (p *Promotion) GuestRewardPerPoint() int64 {
	if p == nil || p.GuestRewardPerPointCents <= 0 {
		return 0
	}
	if p.GuestMaxRewardPerPointCents > 0 && p.GuestRewardPerPointCents > p.GuestMaxRewardPerPointCents {
		return p.GuestMaxRewardPerPointCents
	}
	return p.GuestRewardPerPointCents
}

// BonusInput is what margin protection needs to bound an owner bonus.
type BonusInput struct {
	CandidateBonusCents    int64
	OwnerRatePerPointCents int64
	GuestRatePerPointCents int64
	Promotion              *Promotion
}
