package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// Store implements RewardsPolicy and PromotionPolicy over the database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	_ RewardsPolicy   = (*Store)(nil)
	_ PromotionPolicy = (*Store)(nil)
)

func (s *Store) IsGuestPerksEnrolled(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.GuestRewardsEnrollment{}).
		Where("user_id = ? AND opted_out_at IS NULL", userID).
		Count(&count).Error
	return count > 0, err
}

// CountCompletedGuestBookings counts the guest's completed rentals.
func (s *Store) CountCompletedGuestBookings(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("guest_user_id = ? AND status = ?", userID, enums.RentalStatusCompleted).
		Count(&count).Error
	return int(count), err
}

func (s *Store) GuestPerksDiscountPct(completedBookings int) decimal.Decimal {
	return GuestDiscountPct(completedBookings)
}

func (s *Store) IsOwnerRewardsEnrolled(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.OwnerRewardsEnrollment{}).
		Where("owner_id = ? AND opted_out_at IS NULL", ownerID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) SumOwnerCompletedPoints(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Rental{}).
		Select("COALESCE(SUM(points), 0)").
		Where("owner_id = ? AND status = ?", ownerID, enums.RentalStatusCompleted).
		Scan(&total).Error
	return int(total), err
}

func (s *Store) OwnerPreferredTier(ctx context.Context, ownerID uuid.UUID) (*OwnerTier, error) {
	var enrollment models.OwnerRewardsEnrollment
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if enrollment.PreferredTier == nil {
		return nil, nil
	}
	tier, ok := ParseOwnerTier(*enrollment.PreferredTier)
	if !ok {
		return nil, nil
	}
	return &tier, nil
}

func (s *Store) OwnerPreferredBonusCents(lifetimePoints int, preferred *OwnerTier) int64 {
	return PreferredBonusCents(lifetimePoints, preferred)
}

func (s *Store) ApplyOwnerBonusWithMargin(input BonusInput) int64 {
	return CapOwnerBonus(input)
}

// ActivePromotion returns the newest active promotion whose window contains at.
func (s *Store) ActivePromotion(ctx context.Context, at time.Time) (*Promotion, error) {
	var row models.PricingPromotion
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("starts_at IS NULL OR starts_at <= ?", at).
		Where("ends_at IS NULL OR ends_at > ?", at).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Promotion{
		ID:                          row.ID,
		Name:                        row.Name,
		OwnerMaxBonusPerPointCents:  row.OwnerMaxBonusPerPointCents,
		MinSpreadPerPointCents:      row.MinSpreadPerPointCents,
		GuestRewardPerPointCents:    row.GuestRewardPerPointCents,
		GuestMaxRewardPerPointCents: row.GuestMaxRewardPerPointCents,
	}, nil
}
