package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// Profile is the auth-linked user profile. ID equals the auth user id.
type Profile struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email       string    `gorm:"column:email"`
	FullName    string    `gorm:"column:full_name"`
	PayoutEmail *string   `gorm:"column:payout_email"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Owner is a DVC point owner. UserID links the owner to its Profile.
type Owner struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	DisplayName  string     `gorm:"column:display_name"`
	Verification string     `gorm:"column:verification;not null;default:'pending'"`
	PayoutEmail  *string    `gorm:"column:payout_email"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Owner) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OwnerVerification is the review record of an owner's identity and contract.
type OwnerVerification struct {
	ID         uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID                     `gorm:"column:owner_id;type:uuid;not null;index"`
	Status     enums.OwnerVerificationStatus `gorm:"column:status;not null"`
	ReviewedAt *time.Time                    `gorm:"column:reviewed_at"`
	CreatedAt  time.Time                     `gorm:"column:created_at;autoCreateTime"`
}

func (v *OwnerVerification) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// OwnerMembership is one contract-year point bucket at a home resort.
// Usable points are PointsAvailable - PointsReserved.
type OwnerMembership struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID           uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index"`
	ResortID          *uuid.UUID `gorm:"column:resort_id;type:uuid;index"`
	HomeResort        *string    `gorm:"column:home_resort;index"`
	ContractYear      *int       `gorm:"column:contract_year"`
	UseYearStart      *time.Time `gorm:"column:use_year_start;type:date"`
	UseYearEnd        *time.Time `gorm:"column:use_year_end;type:date"`
	PointsAvailable   int        `gorm:"column:points_available;not null;default:0"`
	PointsReserved    int        `gorm:"column:points_reserved;not null;default:0"`
	BorrowingEnabled  bool       `gorm:"column:borrowing_enabled;not null;default:false"`
	MaxPointsToBorrow int        `gorm:"column:max_points_to_borrow;not null;default:0"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *OwnerMembership) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// UsablePoints is the current balance, floored at zero.
func (m OwnerMembership) UsablePoints() int {
	usable := m.PointsAvailable - m.PointsReserved
	if usable < 0 {
		return 0
	}
	return usable
}

// OwnerContactEmail picks the address owner mail goes to: the profile payout
// email, then the owner payout email, then the profile login email.
func OwnerContactEmail(profile *Profile, owner *Owner) string {
	if profile != nil && profile.PayoutEmail != nil && strings.TrimSpace(*profile.PayoutEmail) != "" {
		return strings.TrimSpace(*profile.PayoutEmail)
	}
	if owner != nil && owner.PayoutEmail != nil && strings.TrimSpace(*owner.PayoutEmail) != "" {
		return strings.TrimSpace(*owner.PayoutEmail)
	}
	if profile != nil {
		return strings.TrimSpace(profile.Email)
	}
	return ""
}

func OwnerDisplayName(profile *Profile, owner *Owner) string {
	if owner != nil && owner.DisplayName != "" {
		return owner.DisplayName
	}
	if profile != nil {
		return profile.FullName
	}
	return ""
}
