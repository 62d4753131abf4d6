package matching

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/internal/payout"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

// EvaluatorConfig bounds a single evaluation pass.
type EvaluatorConfig struct {
	DefaultLimit  int
	MaxLimit      int
	MaxCandidates int
	MatchTTL      time.Duration
}

// Evaluator selects at most one owner membership per submitted booking.
type Evaluator struct {
	repo   Repository
	payout payout.Calculator
	logg   *logger.Logger
	cfg    EvaluatorConfig
	now    func() time.Time
}

func NewEvaluator(repo Repository, calc payout.Calculator, logg *logger.Logger, cfg EvaluatorConfig) (*Evaluator, error) {
	if repo == nil {
		return nil, fmt.Errorf("matching repository required")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxLimit
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaultMaxCandidates
	}
	if cfg.MatchTTL <= 0 {
		cfg.MatchTTL = defaultMatchTTL
	}
	return &Evaluator{repo: repo, payout: calc, logg: logg, cfg: cfg, now: time.Now}, nil
}

func (e *Evaluator) limit(requested int) int {
	if requested <= 0 {
		return e.cfg.DefaultLimit
	}
	if requested > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return requested
}

// Evaluate scores candidates for the selected bookings. Per-booking load
// failures are recorded in Errors; only a failure to list bookings is returned.
func (e *Evaluator) Evaluate(ctx context.Context, opts EvaluateOptions) (*Evaluation, error) {
	now := opts.Now
	if now.IsZero() {
		now = e.now()
	}
	now = now.UTC()

	result := &Evaluation{
		EligibleBookings:  []uuid.UUID{},
		EvaluatedBookings: []BookingEvaluation{},
		MatchPlans:        []MatchPlan{},
		Errors:            []EvaluationError{},
	}

	var bookings []models.BookingRequest
	if opts.BookingID != nil {
		booking, err := e.repo.FindBooking(ctx, *opts.BookingID)
		if err != nil {
			id := *opts.BookingID
			result.Errors = append(result.Errors, EvaluationError{BookingID: &id, Stage: "load_booking", Message: err.Error()})
			return result, nil
		}
		bookings = append(bookings, *booking)
	} else {
		list, err := e.repo.ListSubmittedBookings(ctx, e.limit(opts.Limit))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list submitted bookings")
		}
		bookings = list
	}

	for i := range bookings {
		booking := &bookings[i]
		eval, plan := e.evaluateBooking(ctx, booking, now, result)
		if eval.Eligible {
			result.EligibleBookings = append(result.EligibleBookings, booking.ID)
		}
		result.EvaluatedBookings = append(result.EvaluatedBookings, eval)
		if plan != nil {
			result.MatchPlans = append(result.MatchPlans, *plan)
		}
	}
	return result, nil
}

func (e *Evaluator) evaluateBooking(ctx context.Context, booking *models.BookingRequest, now time.Time, result *Evaluation) (BookingEvaluation, *MatchPlan) {
	eval := BookingEvaluation{
		BookingID:     booking.ID,
		SkipReasons:   []SkipReason{},
		Candidates:    []CandidateEvaluation{},
		FinalDecision: DecisionSkipped,
	}
	fail := func(stage string, err error) (BookingEvaluation, *MatchPlan) {
		id := booking.ID
		result.Errors = append(result.Errors, EvaluationError{BookingID: &id, Stage: stage, Message: err.Error()})
		eval.skip(SkipLoadFailed)
		if e.logg != nil {
			logCtx := e.logg.WithBookingID(ctx, booking.ID.String())
			e.logg.Error(logCtx, "matching evaluation load failed: "+stage, err)
		}
		return eval, nil
	}

	for _, reason := range baselineReasons(booking) {
		eval.skip(reason)
	}
	eval.Eligible = true
	for _, reason := range eval.SkipReasons {
		if reason.gatesEligibility() {
			eval.Eligible = false
		}
	}

	pending, err := e.repo.HasPendingOwnerMatch(ctx, booking.ID)
	if err != nil {
		return fail("load_pending_match", err)
	}
	if pending {
		eval.skip(SkipPendingOwnerMatchExists)
	}
	if len(eval.SkipReasons) > 0 {
		return eval, nil
	}

	resortID := *booking.PrimaryResortID
	resort, err := e.repo.FindResort(ctx, resortID)
	if err != nil {
		return fail("load_resort", err)
	}

	memberships, err := e.repo.ListCandidateMemberships(ctx, resortID, resort.CalculatorCode, e.cfg.MaxCandidates)
	if err != nil {
		return fail("load_memberships", err)
	}
	if len(memberships) == 0 {
		eval.skip(SkipNoMembershipForResort)
		return eval, nil
	}

	lookup, err := e.loadOwnerContext(ctx, memberships)
	if err != nil {
		return fail("load_owner_context", err)
	}

	totalPoints := booking.Points()
	checkIn := *booking.CheckIn
	checkOut := *booking.CheckOut

	bestIdx := -1
	bestScore := 0
	for _, membership := range memberships {
		candidate := e.evaluateCandidate(membership, lookup, totalPoints, checkIn, checkOut)
		eval.Candidates = append(eval.Candidates, candidate)
		if !candidate.Passed {
			continue
		}
		if bestIdx == -1 || *candidate.Score > bestScore {
			bestIdx = len(eval.Candidates) - 1
			bestScore = *candidate.Score
		}
	}

	if bestIdx == -1 {
		eval.skip(SkipNoEligibleCandidates)
		return eval, nil
	}

	selected := eval.Candidates[bestIdx]
	membership := memberships[bestIdx]
	eval.FinalDecision = DecisionMatched
	eval.SelectedMembershipID = &selected.MembershipID

	reserveCurrent := min(selected.CurrentAvailable, totalPoints)
	reserveBorrowed := totalPoints - reserveCurrent
	var borrowID *uuid.UUID
	if reserveBorrowed > 0 {
		borrowID = selected.BorrowMembershipID
	}

	plan := &MatchPlan{
		BookingID:              booking.ID,
		OwnerID:                membership.OwnerID,
		OwnerMembershipID:      membership.ID,
		PointsReserved:         totalPoints,
		PointsReservedCurrent:  reserveCurrent,
		PointsReservedBorrowed: reserveBorrowed,
		BorrowMembershipID:     borrowID,
		ExpiresAt:              now.Add(e.cfg.MatchTTL),
		Payout:                 e.payout.ComputeOwnerPayout(totalPoints, payout.MembershipResort(membership.ResortID, membership.HomeResort, resort.ID, resort.CalculatorCode), booking.PrimaryResortID),
		Notification: OwnerNotification{
			To:             selected.ownerEmail,
			OwnerName:      selected.ownerName,
			ResortName:     resort.Name,
			CheckIn:        checkIn,
			CheckOut:       checkOut,
			TotalPoints:    totalPoints,
			LeadGuestName:  booking.LeadGuestName,
			LeadGuestEmail: booking.LeadGuestEmail,
		},
	}
	return eval, plan
}

func baselineReasons(booking *models.BookingRequest) []SkipReason {
	var reasons []SkipReason
	if booking.PrimaryResortID == nil || *booking.PrimaryResortID == uuid.Nil {
		reasons = append(reasons, SkipMissingResort)
	}
	if booking.Points() <= 0 {
		reasons = append(reasons, SkipMissingPoints)
	}
	if booking.CheckIn == nil || booking.CheckOut == nil {
		reasons = append(reasons, SkipMissingDates)
	}
	if booking.Status != enums.BookingStatusSubmitted {
		reasons = append(reasons, SkipStatusNotSubmitted)
	}
	return reasons
}

// ownerContext holds everything bulk-loaded for one booking's candidates.
type ownerContext struct {
	owners        map[uuid.UUID]*models.Owner
	profiles      map[uuid.UUID]*models.Profile
	verifications map[uuid.UUID]enums.OwnerVerificationStatus
	nextYear      map[string]models.OwnerMembership
}

func (e *Evaluator) loadOwnerContext(ctx context.Context, memberships []models.OwnerMembership) (*ownerContext, error) {
	ownerIDs := uniqueIDs(len(memberships), func(i int) uuid.UUID { return memberships[i].OwnerID })

	owners, err := e.repo.FindOwners(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("owners: %w", err)
	}
	lookup := &ownerContext{
		owners:   make(map[uuid.UUID]*models.Owner, len(owners)*2),
		profiles: make(map[uuid.UUID]*models.Profile),
		nextYear: make(map[string]models.OwnerMembership),
	}
	verifyIDs := append([]uuid.UUID{}, ownerIDs...)
	var userIDs []uuid.UUID
	for i := range owners {
		owner := &owners[i]
		lookup.owners[owner.ID] = owner
		verifyIDs = append(verifyIDs, owner.ID)
		if owner.UserID != nil {
			if _, taken := lookup.owners[*owner.UserID]; !taken {
				lookup.owners[*owner.UserID] = owner
			}
			userIDs = append(userIDs, *owner.UserID)
		}
	}

	profiles, err := e.repo.FindProfiles(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	for i := range profiles {
		lookup.profiles[profiles[i].ID] = &profiles[i]
	}

	lookup.verifications, err = e.repo.LoadVerificationStatuses(ctx, uniqueIDs(len(verifyIDs), func(i int) uuid.UUID { return verifyIDs[i] }))
	if err != nil {
		return nil, fmt.Errorf("verifications: %w", err)
	}

	related, err := e.repo.ListOwnerMemberships(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("owner memberships: %w", err)
	}
	for _, m := range related {
		if m.ContractYear == nil {
			continue
		}
		for _, key := range membershipKeys(m.OwnerID, m, *m.ContractYear) {
			if _, exists := lookup.nextYear[key]; !exists {
				lookup.nextYear[key] = m
			}
		}
	}
	return lookup, nil
}

func (e *Evaluator) evaluateCandidate(m models.OwnerMembership, lookup *ownerContext, totalPoints int, checkIn, checkOut time.Time) CandidateEvaluation {
	candidate := CandidateEvaluation{
		MembershipID:  m.ID,
		OwnerID:       m.OwnerID,
		ResortID:      m.ResortID,
		HomeResort:    m.HomeResort,
		ContractYear:  m.ContractYear,
		RejectReasons: []RejectReason{},
	}

	owner := lookup.owners[m.OwnerID]
	candidate.OwnerVerified = isVerified(owner, m.OwnerID, lookup.verifications)
	if !candidate.OwnerVerified {
		candidate.RejectReasons = append(candidate.RejectReasons, RejectOwnerNotVerified)
	}

	var profile *models.Profile
	if owner != nil && owner.UserID != nil {
		profile = lookup.profiles[*owner.UserID]
	}
	candidate.ownerEmail = models.OwnerContactEmail(profile, owner)
	candidate.ownerName = models.OwnerDisplayName(profile, owner)
	candidate.PayoutEmailFound = candidate.ownerEmail != ""
	if !candidate.PayoutEmailFound {
		candidate.RejectReasons = append(candidate.RejectReasons, RejectMissingPayoutEmail)
	}

	if m.ContractYear != nil && *m.ContractYear != checkIn.Year() {
		candidate.RejectReasons = append(candidate.RejectReasons, RejectContractYearMismatch)
	}

	if m.UseYearStart != nil && m.UseYearEnd != nil {
		if dateOnly(checkIn).Before(dateOnly(*m.UseYearStart)) || dateOnly(checkOut).After(dateOnly(*m.UseYearEnd)) {
			candidate.RejectReasons = append(candidate.RejectReasons, RejectOutsideUseYear)
		}
	}

	candidate.CurrentAvailable = m.UsablePoints()
	if m.BorrowingEnabled && m.ContractYear != nil {
		for _, key := range membershipKeys(m.OwnerID, m, *m.ContractYear+1) {
			next, ok := lookup.nextYear[key]
			if !ok {
				continue
			}
			candidate.Borrowable = min(max(m.MaxPointsToBorrow, 0), next.UsablePoints())
			nextID := next.ID
			candidate.BorrowMembershipID = &nextID
			break
		}
	}
	candidate.TotalUsable = candidate.CurrentAvailable + candidate.Borrowable
	if candidate.TotalUsable < totalPoints {
		candidate.RejectReasons = append(candidate.RejectReasons, RejectInsufficientPoints)
	}

	if len(candidate.RejectReasons) == 0 {
		candidate.Passed = true
		score := scoreCandidate(candidate.CurrentAvailable, candidate.TotalUsable, totalPoints)
		candidate.Score = &score
	}
	return candidate
}

// scoreCandidate prefers the tightest fit that needs no borrowing. Borrowing
// costs twice as much as leftover points.
func scoreCandidate(currentAvailable, totalUsable, totalPoints int) int {
	if currentAvailable >= totalPoints {
		return 1000 - (currentAvailable - totalPoints)
	}
	borrowed := totalPoints - currentAvailable
	leftover := totalUsable - totalPoints
	return 600 - borrowed*2 - leftover
}

func isVerified(owner *models.Owner, membershipOwnerID uuid.UUID, verifications map[uuid.UUID]enums.OwnerVerificationStatus) bool {
	if verifications[membershipOwnerID] == enums.OwnerVerificationApproved {
		return true
	}
	if owner == nil {
		return false
	}
	if strings.EqualFold(owner.Verification, enums.OwnerVerifiedFlag) {
		return true
	}
	return verifications[owner.ID] == enums.OwnerVerificationApproved
}

// membershipKeys indexes a membership as owner:resort:contract_year under both
// its resort id and its home resort code.
func membershipKeys(ownerID uuid.UUID, m models.OwnerMembership, year int) []string {
	suffix := ":" + strconv.Itoa(year)
	var keys []string
	if m.ResortID != nil && *m.ResortID != uuid.Nil {
		keys = append(keys, ownerID.String()+":"+m.ResortID.String()+suffix)
	}
	if m.HomeResort != nil && *m.HomeResort != "" {
		keys = append(keys, ownerID.String()+":code="+strings.ToUpper(*m.HomeResort)+suffix)
	}
	return keys
}

func uniqueIDs(n int, at func(int) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, n)
	out := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := at(i)
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
