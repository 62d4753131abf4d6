package payout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComputeOwnerPayout(t *testing.T) {
	calc := NewCalculator(Rates{BasePerPointCents: 1600, PremiumPerPointCents: 200})
	resortX := uuid.New()
	resortY := uuid.New()

	tests := []struct {
		name    string
		points  int
		matched *uuid.UUID
		booking *uuid.UUID
		want    Breakdown
	}{
		{
			name:    "home resort premium",
			points:  100,
			matched: &resortX,
			booking: &resortX,
			want:    Breakdown{BaseRatePerPointCents: 1600, PremiumPerPointCents: 200, RatePerPointCents: 1800, TotalCents: 180000, HomeResortPremiumApplied: true},
		},
		{
			name:    "different resort",
			points:  100,
			matched: &resortY,
			booking: &resortX,
			want:    Breakdown{BaseRatePerPointCents: 1600, RatePerPointCents: 1600, TotalCents: 160000},
		},
		{
			name:    "unknown matched resort",
			points:  50,
			booking: &resortX,
			want:    Breakdown{BaseRatePerPointCents: 1600, RatePerPointCents: 1600, TotalCents: 80000},
		},
		{
			name:    "non-positive points",
			points:  -4,
			matched: &resortX,
			booking: &resortX,
			want:    Breakdown{BaseRatePerPointCents: 1600, PremiumPerPointCents: 200, RatePerPointCents: 1800, HomeResortPremiumApplied: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calc.ComputeOwnerPayout(tc.points, tc.matched, tc.booking))
		})
	}
}

func TestBreakdownWithBonus(t *testing.T) {
	base := Breakdown{BaseRatePerPointCents: 1600, RatePerPointCents: 1600, TotalCents: 160000}

	assert.Equal(t, base, base.WithBonus(0, 100))

	bonused := base.WithBonus(50, 100)
	assert.Equal(t, int64(1650), bonused.RatePerPointCents)
	assert.Equal(t, int64(165000), bonused.TotalCents)
	assert.Equal(t, int64(1600), base.RatePerPointCents)
}

func TestMembershipResort(t *testing.T) {
	booking := uuid.New()
	other := uuid.New()
	code := "blt"

	assert.Equal(t, &other, MembershipResort(&other, &code, booking, "BLT"))
	got := MembershipResort(nil, &code, booking, "BLT")
	if assert.NotNil(t, got) {
		assert.Equal(t, booking, *got)
	}
	assert.Nil(t, MembershipResort(nil, &code, booking, "VGF"))
	assert.Nil(t, MembershipResort(nil, nil, booking, "BLT"))
}
