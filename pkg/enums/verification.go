package enums

// OwnerVerificationStatus mirrors owner_verifications.status.
type OwnerVerificationStatus string

const (
	OwnerVerificationPending  OwnerVerificationStatus = "pending"
	OwnerVerificationApproved OwnerVerificationStatus = "approved"
	OwnerVerificationRejected OwnerVerificationStatus = "rejected"
)

// OwnerVerifiedFlag is the legacy owners.verification value for a verified owner.
const OwnerVerifiedFlag = "verified"
