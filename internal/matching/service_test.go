package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
)

func TestRunDryRunPersistsNothing(t *testing.T) {
	f := newFixture(t)
	resort := f.resort("Beach Club Villas", "BCV")
	m := f.membership(f.verifiedOwner("Owner"), membershipOpts{resortID: &resort.ID, contractYear: 2026, available: 200})
	booking := f.booking(&resort.ID, 100, f.now)
	mailer := &fakeMailer{}

	res, err := f.service(mailer, nil).Run(context.Background(), RunOptions{
		EvaluateOptions: EvaluateOptions{Now: f.now},
		DryRun:          true,
		SendEmails:      true,
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.DryRun)
	assert.Zero(t, res.MatchesCreated)
	assert.Empty(t, res.MatchIDs)
	assert.Equal(t, DecisionMatched, findBookingEval(t, res.EvaluatedBookings, booking.ID).FinalDecision)
	assert.Empty(t, mailer.sent)

	var count int64
	require.NoError(t, f.conn.Model(&models.BookingMatch{}).Count(&count).Error)
	assert.Zero(t, count)

	var reloaded models.OwnerMembership
	f.reload(&reloaded, m.ID)
	assert.Zero(t, reloaded.PointsReserved)
}

func TestRunAppliesMatchAtomically(t *testing.T) {
	f := newFixture(t)
	resort := f.resort("Riviera", "RR")
	owner := f.verifiedOwner("Owner R")
	current := f.membership(owner, membershipOpts{resortID: &resort.ID, contractYear: 2026, available: 80, borrowing: true, maxBorrow: 40})
	next := f.membership(owner, membershipOpts{resortID: &resort.ID, contractYear: 2027, available: 60})
	booking := f.booking(&resort.ID, 100, f.now)
	mailer := &fakeMailer{}

	res, err := f.service(mailer, nil).Run(context.Background(), RunOptions{
		EvaluateOptions: EvaluateOptions{Now: f.now},
		SendEmails:      true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.MatchesCreated)
	require.Len(t, res.MatchIDs, 1)

	var match models.BookingMatch
	f.reload(&match, res.MatchIDs[0])
	assert.Equal(t, booking.ID, match.BookingID)
	assert.Equal(t, enums.MatchStatusPendingOwner, match.Status)
	assert.Equal(t, 80, match.PointsReservedCurrent)
	assert.Equal(t, 20, match.PointsReservedBorrowed)
	assert.Equal(t, int64(180000), match.OwnerTotalCents)
	assert.True(t, match.OwnerHomeResortPremiumApplied)

	var reloadedCurrent, reloadedNext models.OwnerMembership
	f.reload(&reloadedCurrent, current.ID)
	f.reload(&reloadedNext, next.ID)
	assert.Equal(t, 80, reloadedCurrent.PointsReserved)
	assert.Equal(t, 20, reloadedNext.PointsReserved)

	var reloadedBooking models.BookingRequest
	f.reload(&reloadedBooking, booking.ID)
	assert.Equal(t, enums.BookingStatusPendingOwner, reloadedBooking.Status)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventMatchCreated, events[0].EventType)
	assert.Equal(t, match.ID, events[0].AggregateID)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "https://pixiedvc.test/owner/matches/"+match.ID.String()+"/accept", msg.AcceptURL)
	assert.Equal(t, "https://pixiedvc.test/owner/matches/"+match.ID.String()+"/decline", msg.DeclineURL)
	assert.Equal(t, "Owner R", msg.OwnerName)
	assert.Equal(t, 100, msg.TotalPoints)
}

func TestRunNeverDoubleReservesPoints(t *testing.T) {
	f := newFixture(t)
	resort := f.resort("Vero Beach", "VB")
	tight := f.membership(f.verifiedOwner("Tight"), membershipOpts{resortID: &resort.ID, contractYear: 2026, available: 150})
	roomy := f.membership(f.verifiedOwner("Roomy"), membershipOpts{resortID: &resort.ID, contractYear: 2026, available: 300})
	first := f.booking(&resort.ID, 100, f.now)
	second := f.booking(&resort.ID, 100, f.now.Add(-1))

	res, err := f.service(nil, nil).Run(context.Background(), RunOptions{EvaluateOptions: EvaluateOptions{Now: f.now}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchesCreated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "apply_match", res.Errors[0].Stage)
	assert.Equal(t, second.ID, *res.Errors[0].BookingID)

	failed := findBookingEval(t, res.EvaluatedBookings, second.ID)
	assert.Equal(t, DecisionSkipped, failed.FinalDecision)
	assert.Contains(t, failed.SkipReasons, SkipMatchApplyFailed)

	var reloaded models.OwnerMembership
	f.reload(&reloaded, tight.ID)
	assert.Equal(t, 100, reloaded.PointsReserved)

	var firstBooking, secondBooking models.BookingRequest
	f.reload(&firstBooking, first.ID)
	f.reload(&secondBooking, second.ID)
	assert.Equal(t, enums.BookingStatusPendingOwner, firstBooking.Status)
	assert.Equal(t, enums.BookingStatusSubmitted, secondBooking.Status)

	var matches, events int64
	require.NoError(t, f.conn.Model(&models.BookingMatch{}).Count(&matches).Error)
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.EqualValues(t, 1, matches)
	assert.EqualValues(t, 1, events)

	retry, err := f.service(nil, nil).Run(context.Background(), RunOptions{EvaluateOptions: EvaluateOptions{Now: f.now}})
	require.NoError(t, err)
	assert.Equal(t, 1, retry.MatchesCreated)
	assert.Empty(t, retry.Errors)

	var match models.BookingMatch
	require.NoError(t, f.conn.Where("booking_id = ?", second.ID).First(&match).Error)
	assert.Equal(t, roomy.ID, match.OwnerMembershipID)
	f.reload(&secondBooking, second.ID)
	assert.Equal(t, enums.BookingStatusPendingOwner, secondBooking.Status)
	f.reload(&reloaded, tight.ID)
	assert.Equal(t, 100, reloaded.PointsReserved)
}

func TestRunEmailFailureDoesNotFailMatch(t *testing.T) {
	f := newFixture(t)
	resort := f.resort("Kidani Village", "AKV")
	f.membership(f.verifiedOwner("Owner"), membershipOpts{resortID: &resort.ID, contractYear: 2026, available: 100})
	f.booking(&resort.ID, 100, f.now)
	mailer := &fakeMailer{err: errors.New("smtp down")}

	res, err := f.service(mailer, nil).Run(context.Background(), RunOptions{
		EvaluateOptions: EvaluateOptions{Now: f.now},
		SendEmails:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchesCreated)
	assert.Empty(t, res.Errors)
	assert.Len(t, mailer.sent, 1)
}

func TestRunSkipsEmailWhenDisabled(t *testing.T) {
	f := newFixture(t)
	resort := f.resort("Wilderness Lodge", "BLV")
	f.membership(f.verifiedOwner("Owner"), membershipOpts{resortID: &resort.ID, contractYear: 2026, available: 100})
	f.booking(&resort.ID, 100, f.now)
	mailer := &fakeMailer{}

	res, err := f.service(mailer, nil).Run(context.Background(), RunOptions{EvaluateOptions: EvaluateOptions{Now: f.now}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchesCreated)
	assert.Empty(t, mailer.sent)
}

func TestRunRespectsLock(t *testing.T) {
	f := newFixture(t)

	busy := &fakeLock{acquire: false}
	_, err := f.service(nil, busy).Run(context.Background(), RunOptions{EvaluateOptions: EvaluateOptions{Now: f.now}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	free := &fakeLock{acquire: true}
	_, err = f.service(nil, free).Run(context.Background(), RunOptions{EvaluateOptions: EvaluateOptions{Now: f.now}})
	require.NoError(t, err)
	assert.Equal(t, 1, free.released)

	_, err = f.service(nil, busy).Run(context.Background(), RunOptions{EvaluateOptions: EvaluateOptions{Now: f.now}, DryRun: true})
	require.NoError(t, err)
}
