package enums

// MilestoneCode names one step of the rental checklist.
type MilestoneCode string

const (
	MilestoneMatched            MilestoneCode = "matched"
	MilestoneGuestVerified      MilestoneCode = "guest_verified"
	MilestonePaymentVerified    MilestoneCode = "payment_verified"
	MilestoneBookingPackageSent MilestoneCode = "booking_package_sent"
	MilestoneAgreementSent      MilestoneCode = "agreement_sent"
	MilestoneOwnerApproved      MilestoneCode = "owner_approved"
	MilestoneOwnerBooked        MilestoneCode = "owner_booked"
	MilestoneCheckIn            MilestoneCode = "check_in"
	MilestoneCheckOut           MilestoneCode = "check_out"
)

// OrderedMilestones is the checklist in display order.
var OrderedMilestones = []MilestoneCode{
	MilestoneMatched,
	MilestoneGuestVerified,
	MilestonePaymentVerified,
	MilestoneBookingPackageSent,
	MilestoneAgreementSent,
	MilestoneOwnerApproved,
	MilestoneOwnerBooked,
	MilestoneCheckIn,
	MilestoneCheckOut,
}

// Position returns the 1-based checklist position, or 0 for unknown codes.
func (c MilestoneCode) Position() int {
	for i, candidate := range OrderedMilestones {
		if candidate == c {
			return i + 1
		}
	}
	return 0
}

type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
)
