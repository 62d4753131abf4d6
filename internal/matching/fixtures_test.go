package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/internal/payout"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/dbtest"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
)

var testRates = payout.Rates{BasePerPointCents: 1600, PremiumPerPointCents: 200}

type fixture struct {
	t    *testing.T
	conn *gorm.DB
	repo Repository
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	return &fixture{
		t:    t,
		conn: conn,
		repo: NewRepository(conn),
		now:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) evaluator() *Evaluator {
	f.t.Helper()
	ev, err := NewEvaluator(f.repo, payout.NewCalculator(testRates), nil, EvaluatorConfig{})
	require.NoError(f.t, err)
	return ev
}

func (f *fixture) service(mailer OwnerMailer, lock RunLock) Service {
	f.t.Helper()
	svc, err := NewService(ServiceParams{
		Evaluator:     f.evaluator(),
		Repo:          f.repo,
		Tx:            db.NewFromGorm(f.conn),
		Outbox:        outbox.NewService(outbox.NewRepository(f.conn), nil),
		Mailer:        mailer,
		Lock:          lock,
		PublicBaseURL: "https://pixiedvc.test/",
	})
	require.NoError(f.t, err)
	return svc
}

func (f *fixture) resort(name, code string) models.Resort {
	f.t.Helper()
	resort := models.Resort{Name: name, CalculatorCode: code}
	require.NoError(f.t, f.conn.Create(&resort).Error)
	return resort
}

// verifiedOwner creates an owner with a linked profile and approved verification.
func (f *fixture) verifiedOwner(name string) models.Owner {
	f.t.Helper()
	return f.owner(name, true, "owner-"+uuid.NewString()[:8]+"@example.com")
}

func (f *fixture) owner(name string, verified bool, email string) models.Owner {
	f.t.Helper()
	userID := uuid.New()
	require.NoError(f.t, f.conn.Create(&models.Profile{ID: userID, Email: email, FullName: name}).Error)
	owner := models.Owner{UserID: &userID, DisplayName: name, Verification: "pending"}
	require.NoError(f.t, f.conn.Create(&owner).Error)
	status := enums.OwnerVerificationPending
	if verified {
		status = enums.OwnerVerificationApproved
	}
	require.NoError(f.t, f.conn.Create(&models.OwnerVerification{OwnerID: owner.ID, Status: status}).Error)
	return owner
}

type membershipOpts struct {
	resortID     *uuid.UUID
	homeResort   string
	contractYear int
	available    int
	reserved     int
	borrowing    bool
	maxBorrow    int
	noUseYear    bool
}

func (f *fixture) membership(owner models.Owner, opts membershipOpts) models.OwnerMembership {
	f.t.Helper()
	m := models.OwnerMembership{
		OwnerID:           owner.ID,
		ResortID:          opts.resortID,
		PointsAvailable:   opts.available,
		PointsReserved:    opts.reserved,
		BorrowingEnabled:  opts.borrowing,
		MaxPointsToBorrow: opts.maxBorrow,
	}
	if opts.homeResort != "" {
		code := opts.homeResort
		m.HomeResort = &code
	}
	if opts.contractYear != 0 {
		year := opts.contractYear
		m.ContractYear = &year
		if !opts.noUseYear {
			start := time.Date(year, 2, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(year+1, 1, 31, 0, 0, 0, 0, time.UTC)
			m.UseYearStart = &start
			m.UseYearEnd = &end
		}
	}
	require.NoError(f.t, f.conn.Create(&m).Error)
	return m
}

func (f *fixture) booking(resortID *uuid.UUID, points int, createdAt time.Time) models.BookingRequest {
	f.t.Helper()
	checkIn := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)
	renter := uuid.New()
	b := models.BookingRequest{
		RenterID:        &renter,
		PrimaryResortID: resortID,
		TotalPoints:     &points,
		Status:          enums.BookingStatusSubmitted,
		CheckIn:         &checkIn,
		CheckOut:        &checkOut,
		LeadGuestName:   "Mickey Guest",
		LeadGuestEmail:  "guest@example.com",
		CreatedAt:       createdAt,
	}
	require.NoError(f.t, f.conn.Create(&b).Error)
	return b
}

func (f *fixture) reload(dest any, id uuid.UUID) {
	f.t.Helper()
	require.NoError(f.t, f.conn.First(dest, "id = ?", id).Error)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []OwnerMatchEmail
	err  error
}

func (m *fakeMailer) SendOwnerMatchEmail(_ context.Context, msg OwnerMatchEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type fakeLock struct {
	acquire  bool
	err      error
	released int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) { return l.acquire, l.err }

func (l *fakeLock) Release(context.Context) error {
	l.released++
	return nil
}

type fakeRentals struct {
	calls []uuid.UUID
	id    uuid.UUID
	err   error
}

func (r *fakeRentals) EnsureRental(_ context.Context, matchID uuid.UUID) (uuid.UUID, error) {
	r.calls = append(r.calls, matchID)
	return r.id, r.err
}

func findBookingEval(t *testing.T, evals []BookingEvaluation, id uuid.UUID) BookingEvaluation {
	t.Helper()
	for _, e := range evals {
		if e.BookingID == id {
			return e
		}
	}
	t.Fatalf("booking %s not evaluated", id)
	return BookingEvaluation{}
}

func ptr[T any](v T) *T { return &v }
