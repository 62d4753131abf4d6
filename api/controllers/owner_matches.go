package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/api/middleware"
	"github.com/pixiedvc/pixiedvc-backend/api/responses"
	"github.com/pixiedvc/pixiedvc-backend/api/validators"
	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

type matchDecider interface {
	Decide(ctx context.Context, input matching.DecisionInput) (*matching.DecisionResult, error)
}

// OwnerAcceptMatch records an owner's acceptance of a pending match.
func OwnerAcceptMatch(svc matchDecider, logg *logger.Logger) http.HandlerFunc {
	return ownerDecision(svc, enums.MatchDecisionAccept, logg)
}

// OwnerDeclineMatch records an owner's refusal of a pending match.
func OwnerDeclineMatch(svc matchDecider, logg *logger.Logger) http.HandlerFunc {
	return ownerDecision(svc, enums.MatchDecisionDecline, logg)
}

func ownerDecision(svc matchDecider, decision enums.MatchDecision, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		matchID, err := validators.ParseUUIDParam(r, "matchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if actor == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing"))
			return
		}
		role := middleware.RoleFromContext(r.Context())

		result, err := svc.Decide(r.Context(), matching.DecisionInput{
			MatchID:     matchID,
			Decision:    decision,
			ActorUserID: actor,
			ActorRole:   role,
			AsAdmin:     role == enums.ActorRoleAdmin.String(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
