package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
)

// Repository loads what owner emails need.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RentalEmail builds the booking reminder for a rental. It returns an empty
// recipient when the owner has no usable address.
func (r *Repository) RentalEmail(ctx context.Context, rentalID uuid.UUID) (*RentalEmail, error) {
	var rental models.Rental
	if err := r.db.WithContext(ctx).Where("id = ?", rentalID).First(&rental).Error; err != nil {
		return nil, err
	}

	var owner models.Owner
	if err := r.db.WithContext(ctx).Where("id = ?", rental.OwnerID).First(&owner).Error; err != nil {
		return nil, err
	}
	var profile *models.Profile
	if owner.UserID != nil {
		var row models.Profile
		err := r.db.WithContext(ctx).Where("id = ?", *owner.UserID).Limit(1).Find(&row).Error
		if err != nil {
			return nil, err
		}
		if row.ID != uuid.Nil {
			profile = &row
		}
	}

	msg := &RentalEmail{
		To:                models.OwnerContactEmail(profile, &owner),
		OwnerName:         models.OwnerDisplayName(profile, &owner),
		Points:            rental.Points,
		RentalAmountCents: rental.RentalAmountCents,
	}
	if rental.CheckIn != nil {
		msg.CheckIn = *rental.CheckIn
	}
	if rental.CheckOut != nil {
		msg.CheckOut = *rental.CheckOut
	}
	if rental.ResortID != nil {
		var resort models.Resort
		err := r.db.WithContext(ctx).Where("id = ?", *rental.ResortID).Limit(1).Find(&resort).Error
		if err != nil {
			return nil, err
		}
		msg.ResortName = resort.Name
	}
	return msg, nil
}
