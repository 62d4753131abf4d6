package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// BookingRequest is a guest's request to rent points for a stay.
type BookingRequest struct {
	ID                      uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	RenterID                *uuid.UUID          `gorm:"column:renter_id;type:uuid;index"`
	PrimaryResortID         *uuid.UUID          `gorm:"column:primary_resort_id;type:uuid"`
	PrimaryRoom             string              `gorm:"column:primary_room"`
	TotalPoints             *int                `gorm:"column:total_points"`
	Status                  enums.BookingStatus `gorm:"column:status;not null;default:'draft';index"`
	CheckIn                 *time.Time          `gorm:"column:check_in;type:date"`
	CheckOut                *time.Time          `gorm:"column:check_out;type:date"`
	Adults                  int                 `gorm:"column:adults;not null;default:0"`
	Youths                  int                 `gorm:"column:youths;not null;default:0"`
	LeadGuestName           string              `gorm:"column:lead_guest_name"`
	LeadGuestEmail          string              `gorm:"column:lead_guest_email"`
	LeadGuestPhone          string              `gorm:"column:lead_guest_phone"`
	RequiresAccessibility   bool                `gorm:"column:requires_accessibility;not null;default:false"`
	Comments                string              `gorm:"column:comments"`
	DepositDueCents         int64               `gorm:"column:deposit_due_cents;not null;default:0"`
	DepositPaidCents        int64               `gorm:"column:deposit_paid_cents;not null;default:0"`
	GuestRatePerPointCents  *int64              `gorm:"column:guest_rate_per_point_cents"`
	GuestTotalCents         *int64              `gorm:"column:guest_total_cents"`
	GuestTotalCentsFinal    *int64              `gorm:"column:guest_total_cents_final"`
	GuestDiscountCents      int64               `gorm:"column:guest_discount_cents;not null;default:0"`
	GuestProfileCompletedAt *time.Time          `gorm:"column:guest_profile_completed_at"`
	AgreementAcceptedAt     *time.Time          `gorm:"column:agreement_accepted_at"`
	StripeCheckoutSession   *string             `gorm:"column:stripe_checkout_session_id"`
	CreatedAt               time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt               time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BookingRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// Points returns TotalPoints or zero when unset.
func (b BookingRequest) Points() int {
	if b.TotalPoints == nil {
		return 0
	}
	return *b.TotalPoints
}

// DepositSettled reports whether a positive deposit has been fully paid.
func (b BookingRequest) DepositSettled() bool {
	return b.DepositDueCents > 0 && b.DepositPaidCents >= b.DepositDueCents
}

// GuestVerified reports whether the guest finished profile and agreement.
func (b BookingRequest) GuestVerified() bool {
	return b.GuestProfileCompletedAt != nil && b.AgreementAcceptedAt != nil
}
