package handlers

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/authz"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/notification"
	"github.com/tripplan/tripplan-api/internal/repository"
	"github.com/tripplan/tripplan-api/internal/sharing"
)

type SharedTripHandler struct {
	sharing sharing.Service
	guard   tripGuard
	mailer  notification.InviteMailer
	urlTpl  string
	logger  zerolog.Logger
}

type sharedTripResponse struct {
	models.SharedTrip
	InviteURL string `json:"inviteUrl"`
}

// NewSharedTripHandler builds the invite endpoints. mailer may be nil, in which
// case invite links are only returned to the caller.
func NewSharedTripHandler(
	sharingService sharing.Service,
	trips repository.TripRepository,
	mailer notification.InviteMailer,
	inviteURLTemplate string,
	logger zerolog.Logger,
) *SharedTripHandler {
	if inviteURLTemplate == "" {
		inviteURLTemplate = "https://app.tripplan.dev/shared/%s"
	}
	return &SharedTripHandler{
		sharing: sharingService,
		guard:   tripGuard{trips: trips, sharing: sharingService},
		mailer:  mailer,
		urlTpl:  inviteURLTemplate,
		logger:  logger.With().Str("handler", "shared_trip").Logger(),
	}
}

func (h *SharedTripHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	var req models.CreateSharedTripRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	trip, err := h.guard.authorize(r.Context(), req.TripID, user, accessWrite)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	invite, err := h.sharing.IssueOrReuseInviteLink(r.Context(), trip.ID, req.CanRead, req.CanWrite, user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	inviteURL := fmt.Sprintf(h.urlTpl, invite.InviteLink)
	if req.Email != "" && h.mailer != nil {
		if err := h.mailer.SendInvite(req.Email, trip.Name, inviteURL); err != nil {
			h.logger.Warn().Err(err).Int64("invite_id", invite.ID).Msg("failed to send invite email")
		}
	}

	writeJSON(w, http.StatusOK, sharedTripResponse{SharedTrip: invite, InviteURL: inviteURL})
}

func (h *SharedTripHandler) Validate(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	var req models.InviteTokenRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	invite, err := h.sharing.ValidateToken(r.Context(), req.Token, user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invite)
}

func (h *SharedTripHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	var req models.InviteTokenRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	invite, err := h.sharing.AcceptInvite(r.Context(), req.Token, user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invite)
}

func (h *SharedTripHandler) SharedTripIDs(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	ids, err := h.sharing.GetSharedTripIDs(r.Context(), user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SharedTripIDs{TripIDs: ids})
}

func (h *SharedTripHandler) ListTripInvites(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if _, err := h.guard.authorize(r.Context(), tripID, user, accessOwner); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	invites, err := h.sharing.ListTripInvites(r.Context(), tripID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *SharedTripHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	inviteID, err := pathID(r, "inviteID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if _, err := h.guard.authorize(r.Context(), tripID, user, accessOwner); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.sharing.RevokeInvite(r.Context(), tripID, inviteID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
