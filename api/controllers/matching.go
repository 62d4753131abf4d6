package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/api/responses"
	"github.com/pixiedvc/pixiedvc-backend/api/validators"
	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	"github.com/pixiedvc/pixiedvc-backend/internal/rentals"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

type matchRunner interface {
	Run(ctx context.Context, opts matching.RunOptions) (*matching.RunResult, error)
}

type rentalEnsurer interface {
	EnsureRentalForMatch(ctx context.Context, matchID uuid.UUID) (*rentals.EnsureResult, error)
}

type milestoneLister interface {
	Milestones(ctx context.Context, rentalID uuid.UUID) ([]models.RentalMilestone, error)
}

type matchRunRequest struct {
	DryRun     bool    `json:"dryRun"`
	BookingID  *string `json:"bookingId" validate:"omitempty,uuid"`
	Limit      int     `json:"limit" validate:"gte=0,lte=500"`
	SendEmails *bool   `json:"sendEmails"`
}

// AdminRunMatching triggers one matching pass. Emails default to on for
// live runs.
func AdminRunMatching(svc matchRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matching service unavailable"))
			return
		}

		var req matchRunRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		opts := matching.RunOptions{
			DryRun:     req.DryRun,
			SendEmails: !req.DryRun,
		}
		opts.Limit = req.Limit
		if req.SendEmails != nil {
			opts.SendEmails = *req.SendEmails
		}
		if req.BookingID != nil {
			id, err := uuid.Parse(*req.BookingID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
				return
			}
			opts.BookingID = &id
		}

		result, err := svc.Run(r.Context(), opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminEnsureRental materializes (or refreshes) the rental for a match.
func AdminEnsureRental(svc rentalEnsurer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rental service unavailable"))
			return
		}

		matchID, err := validators.ParseUUIDParam(r, "matchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.EnsureRentalForMatch(r.Context(), matchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func AdminRentalMilestones(svc milestoneLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rental service unavailable"))
			return
		}
		rentalID, err := validators.ParseUUIDParam(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		milestones, err := svc.Milestones(r.Context(), rentalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, milestones)
	}
}
