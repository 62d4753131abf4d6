package models

// All lists every model for AutoMigrate in local sqlite mode and tests.
func All() []any {
	return []any{
		&Resort{},
		&Profile{},
		&Owner{},
		&OwnerVerification{},
		&OwnerMembership{},
		&BookingRequest{},
		&BookingMatch{},
		&Rental{},
		&RentalMilestone{},
		&PricingPromotion{},
		&GuestRewardsEnrollment{},
		&OwnerRewardsEnrollment{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
