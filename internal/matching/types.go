package matching

import (
	"time"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/internal/payout"
)

const (
	defaultLimit         = 20
	maxLimit             = 50
	defaultMaxCandidates = 200
	defaultMatchTTL      = time.Hour
)

// SkipReason explains why a booking produced no match plan.
type SkipReason string

const (
	SkipMissingResort           SkipReason = "missing_resort"
	SkipMissingPoints           SkipReason = "missing_points"
	SkipMissingDates            SkipReason = "missing_dates"
	SkipStatusNotSubmitted      SkipReason = "status_not_submitted"
	SkipPendingOwnerMatchExists SkipReason = "pending_owner_match_exists"
	SkipNoMembershipForResort   SkipReason = "no_membership_for_resort"
	SkipNoEligibleCandidates    SkipReason = "no_eligible_candidates"
	SkipLoadFailed              SkipReason = "load_failed"
	SkipMatchApplyFailed        SkipReason = "match_apply_failed"
)

// gatesEligibility reports whether the reason removes the booking from the eligible set.
func (r SkipReason) gatesEligibility() bool {
	switch r {
	case SkipMissingResort, SkipMissingPoints, SkipMissingDates, SkipStatusNotSubmitted:
		return true
	}
	return false
}

// RejectReason explains why a candidate membership cannot fulfil a booking.
type RejectReason string

const (
	RejectOwnerNotVerified     RejectReason = "owner_not_verified"
	RejectMissingPayoutEmail   RejectReason = "missing_payout_email"
	RejectContractYearMismatch RejectReason = "contract_year_mismatch"
	RejectOutsideUseYear       RejectReason = "outside_use_year"
	RejectInsufficientPoints   RejectReason = "insufficient_points"
)

// Decision is the final outcome of one booking's evaluation.
type Decision string

const (
	DecisionMatched Decision = "matched"
	DecisionSkipped Decision = "skipped"
)

// EvaluateOptions selects the bookings to evaluate. A zero Now means time.Now.
type EvaluateOptions struct {
	BookingID *uuid.UUID
	Limit     int
	Now       time.Time
}

// CandidateEvaluation is the audit record for one membership against one booking.
type CandidateEvaluation struct {
	MembershipID       uuid.UUID      `json:"membershipId"`
	OwnerID            uuid.UUID      `json:"ownerId"`
	ResortID           *uuid.UUID     `json:"resortId,omitempty"`
	HomeResort         *string        `json:"homeResort,omitempty"`
	ContractYear       *int           `json:"contractYear,omitempty"`
	OwnerVerified      bool           `json:"ownerVerified"`
	PayoutEmailFound   bool           `json:"payoutEmailFound"`
	CurrentAvailable   int            `json:"currentAvailable"`
	Borrowable         int            `json:"borrowable"`
	BorrowMembershipID *uuid.UUID     `json:"borrowMembershipId,omitempty"`
	TotalUsable        int            `json:"totalUsable"`
	Passed             bool           `json:"passed"`
	Score              *int           `json:"score,omitempty"`
	RejectReasons      []RejectReason `json:"rejectReasons"`

	ownerEmail string
	ownerName  string
}

// BookingEvaluation is the audit record for one booking.
type BookingEvaluation struct {
	BookingID            uuid.UUID             `json:"bookingId"`
	Eligible             bool                  `json:"eligible"`
	SkipReasons          []SkipReason          `json:"skipReasons"`
	FinalDecision        Decision              `json:"finalDecision"`
	SelectedMembershipID *uuid.UUID            `json:"selectedMembershipId,omitempty"`
	Candidates           []CandidateEvaluation `json:"candidates"`
}

func (b *BookingEvaluation) skip(reason SkipReason) {
	b.SkipReasons = append(b.SkipReasons, reason)
	b.FinalDecision = DecisionSkipped
}

// MatchPlan is a selected candidate ready to be applied atomically.
type MatchPlan struct {
	BookingID              uuid.UUID        `json:"bookingId"`
	OwnerID                uuid.UUID        `json:"ownerId"`
	OwnerMembershipID      uuid.UUID        `json:"ownerMembershipId"`
	PointsReserved         int              `json:"pointsReserved"`
	PointsReservedCurrent  int              `json:"pointsReservedCurrent"`
	PointsReservedBorrowed int              `json:"pointsReservedBorrowed"`
	BorrowMembershipID     *uuid.UUID       `json:"borrowMembershipId,omitempty"`
	ExpiresAt              time.Time        `json:"expiresAt"`
	Payout                 payout.Breakdown `json:"payout"`

	Notification OwnerNotification `json:"-"`
}

// OwnerNotification carries what the owner email needs without reloading rows.
type OwnerNotification struct {
	To             string
	OwnerName      string
	ResortName     string
	CheckIn        time.Time
	CheckOut       time.Time
	TotalPoints    int
	LeadGuestName  string
	LeadGuestEmail string
}

// EvaluationError records a non-fatal data-load failure for one booking.
type EvaluationError struct {
	BookingID *uuid.UUID `json:"bookingId,omitempty"`
	Stage     string     `json:"stage"`
	Message   string     `json:"message"`
}

// Evaluation is the output of one evaluator pass.
type Evaluation struct {
	EligibleBookings  []uuid.UUID         `json:"eligibleBookings"`
	EvaluatedBookings []BookingEvaluation `json:"evaluatedBookings"`
	MatchPlans        []MatchPlan         `json:"matchPlans"`
	Errors            []EvaluationError   `json:"errors"`
}

// RunOptions configures a matching run.
type RunOptions struct {
	EvaluateOptions
	DryRun     bool
	SendEmails bool
}

// RunResult summarizes a matching run.
type RunResult struct {
	OK                bool                `json:"ok"`
	MatchesCreated    int                 `json:"matchesCreated"`
	MatchIDs          []uuid.UUID         `json:"matchIds"`
	DryRun            bool                `json:"dryRun"`
	EligibleBookings  []uuid.UUID         `json:"eligibleBookings"`
	EvaluatedBookings []BookingEvaluation `json:"evaluatedBookings"`
	Errors            []EvaluationError   `json:"errors"`
}
