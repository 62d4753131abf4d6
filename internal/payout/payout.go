// Package payout prices an owner's share of a booking.
package payout

import (
	"strings"

	"github.com/google/uuid"
)

// Rates are the per-point owner rates in cents.
type Rates struct {
	BasePerPointCents    int64
	PremiumPerPointCents int64
}

// Breakdown is the owner payout for one match.
type Breakdown struct {
	BaseRatePerPointCents    int64 `json:"ownerBaseRatePerPointCents"`
	PremiumPerPointCents     int64 `json:"ownerPremiumPerPointCents"`
	RatePerPointCents        int64 `json:"ownerRatePerPointCents"`
	TotalCents               int64 `json:"ownerTotalCents"`
	HomeResortPremiumApplied bool  `json:"ownerHomeResortPremiumApplied"`
}

// Calculator computes owner payouts from configured rates.
type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) Calculator {
	return Calculator{rates: rates}
}

// ComputeOwnerPayout applies the home-resort premium when the membership that
// fulfils the booking belongs to the requested resort. Non-positive points pay zero.
func (c Calculator) ComputeOwnerPayout(totalPoints int, matchedResortID, bookingResortID *uuid.UUID) Breakdown {
	applied := matchedResortID != nil && bookingResortID != nil &&
		*matchedResortID != uuid.Nil && *matchedResortID == *bookingResortID

	premium := int64(0)
	if applied {
		premium = c.rates.PremiumPerPointCents
	}
	rate := c.rates.BasePerPointCents + premium

	total := int64(0)
	if totalPoints > 0 {
		total = rate * int64(totalPoints)
	}
	return Breakdown{
		BaseRatePerPointCents:    c.rates.BasePerPointCents,
		PremiumPerPointCents:     premium,
		RatePerPointCents:        rate,
		TotalCents:               total,
		HomeResortPremiumApplied: applied,
	}
}

// WithBonus returns a copy with the per-point bonus folded into rate and total.
func (b Breakdown) WithBonus(bonusPerPointCents int64, totalPoints int) Breakdown {
	if bonusPerPointCents <= 0 {
		return b
	}
	out := b
	out.RatePerPointCents += bonusPerPointCents
	if totalPoints > 0 {
		out.TotalCents = out.RatePerPointCents * int64(totalPoints)
	}
	return out
}

// MembershipResort is the resort a membership's points belong to. Rows that
// only carry a home_resort code resolve to the booking's resort when the code
// matches its calculator code.
func MembershipResort(resortID *uuid.UUID, homeResort *string, bookingResortID uuid.UUID, bookingResortCode string) *uuid.UUID {
	if resortID != nil && *resortID != uuid.Nil {
		return resortID
	}
	if homeResort != nil && bookingResortCode != "" && strings.EqualFold(strings.TrimSpace(*homeResort), bookingResortCode) {
		id := bookingResortID
		return &id
	}
	return nil
}
