package stripewebhook

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
)

// Repository reads and records booking deposits.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindBookingForSession resolves the booking by id, falling back to the
// checkout session recorded on it.
func (r *Repository) FindBookingForSession(ctx context.Context, bookingID *uuid.UUID, sessionID string) (*models.BookingRequest, error) {
	var booking models.BookingRequest
	query := r.db.WithContext(ctx)
	if bookingID != nil {
		query = query.Where("id = ?", *bookingID)
	} else {
		query = query.Where("stripe_checkout_session_id = ?", sessionID)
	}
	if err := query.First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *Repository) RecordDeposit(ctx context.Context, bookingID uuid.UUID, paidCents int64, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ?", bookingID).
		Updates(map[string]any{
			"deposit_paid_cents":         paidCents,
			"stripe_checkout_session_id": sessionID,
		}).Error
}
