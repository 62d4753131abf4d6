package rewards

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OwnerTier is an owner rewards level earned by lifetime completed points.
type OwnerTier string

const (
	TierMember   OwnerTier = "member"
	TierSilver   OwnerTier = "silver"
	TierGold     OwnerTier = "gold"
	TierPlatinum OwnerTier = "platinum"
)

type ownerTierRule struct {
	tier       OwnerTier
	minPoints  int
	bonusCents int64
}

// ownerTiers is ordered from lowest to highest.
var ownerTiers = []ownerTierRule{
	{tier: TierMember, minPoints: 0, bonusCents: 0},
	{tier: TierSilver, minPoints: 1000, bonusCents: 25},
	{tier: TierGold, minPoints: 3000, bonusCents: 50},
	{tier: TierPlatinum, minPoints: 6000, bonusCents: 75},
}

type guestDiscountRule struct {
	minCompleted int
	pct          decimal.Decimal
}

// guestDiscounts is ordered from highest threshold to lowest.
var guestDiscounts = []guestDiscountRule{
	{minCompleted: 6, pct: decimal.RequireFromString("0.15")},
	{minCompleted: 3, pct: decimal.RequireFromString("0.10")},
	{minCompleted: 1, pct: decimal.RequireFromString("0.05")},
}

// ParseOwnerTier accepts a stored preferred tier. Unknown values yield false.
func ParseOwnerTier(value string) (OwnerTier, bool) {
	candidate := OwnerTier(strings.ToLower(strings.TrimSpace(value)))
	for _, rule := range ownerTiers {
		if rule.tier == candidate {
			return candidate, true
		}
	}
	return "", false
}

// TierForPoints returns the highest tier the lifetime points qualify for.
func TierForPoints(lifetimePoints int) OwnerTier {
	tier := TierMember
	for _, rule := range ownerTiers {
		if lifetimePoints >= rule.minPoints {
			tier = rule.tier
		}
	}
	return tier
}

func tierRank(tier OwnerTier) int {
	for i, rule := range ownerTiers {
		if rule.tier == tier {
			return i
		}
	}
	return -1
}

// BonusForTier is the per-point owner bonus a tier pays.
func BonusForTier(tier OwnerTier) int64 {
	if i := tierRank(tier); i >= 0 {
		return ownerTiers[i].bonusCents
	}
	return 0
}

// GuestDiscountPct maps prior completed bookings to a margin discount fraction.
func GuestDiscountPct(completedBookings int) decimal.Decimal {
	for _, rule := range guestDiscounts {
		if completedBookings >= rule.minCompleted {
			return rule.pct
		}
	}
	return decimal.Zero
}

// PreferredBonusCents pays the earned tier's bonus, or the preferred tier's
// when the owner chose a lower one.
func PreferredBonusCents(lifetimePoints int, preferred *OwnerTier) int64 {
	earned := TierForPoints(lifetimePoints)
	if preferred != nil && tierRank(*preferred) >= 0 && tierRank(*preferred) < tierRank(earned) {
		return BonusForTier(*preferred)
	}
	return BonusForTier(earned)
}

// CapOwnerBonus bounds a candidate bonus so the guest-owner spread, after the
// guest reward, never drops below the promotion's minimum spread.
func CapOwnerBonus(input BonusInput) int64 {
	bonus := input.CandidateBonusCents
	if bonus <= 0 {
		return 0
	}
	promo := input.Promotion
	minSpread := int64(0)
	if promo != nil {
		if promo.OwnerMaxBonusPerPointCents > 0 && bonus > promo.OwnerMaxBonusPerPointCents {
			bonus = promo.OwnerMaxBonusPerPointCents
		}
		if promo.MinSpreadPerPointCents > 0 {
			minSpread = promo.MinSpreadPerPointCents
		}
	}
	if input.GuestRatePerPointCents > 0 {
		headroom := input.GuestRatePerPointCents - input.OwnerRatePerPointCents - minSpread - promo.GuestRewardPerPoint()
		if bonus > headroom {
			bonus = headroom
		}
	}
	if bonus < 0 {
		return 0
	}
	return bonus
}

// DiscountMarginCents is the guest discount carved from the platform margin.
// The owner total is never reduced.
func DiscountMarginCents(guestTotalCents, ownerTotalCents int64, pct decimal.Decimal) int64 {
	margin := guestTotalCents - ownerTotalCents
	if margin <= 0 || !pct.IsPositive() {
		return 0
	}
	discount := decimal.NewFromInt(margin).Mul(pct).Round(0).IntPart()
	if discount > margin {
		return margin
	}
	return discount
}
