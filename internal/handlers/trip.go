package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/authz"
	"github.com/tripplan/tripplan-api/internal/history"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/repository"
	"github.com/tripplan/tripplan-api/internal/sharing"
)

const (
	actionCreatedTrip = "created trip"
	actionUpdatedTrip = "updated trip"
)

type TripHandler struct {
	trips   repository.TripRepository
	sharing sharing.Service
	history history.Service
	guard   tripGuard
	logger  zerolog.Logger
}

func NewTripHandler(trips repository.TripRepository, sharingService sharing.Service, historyService history.Service, logger zerolog.Logger) *TripHandler {
	return &TripHandler{
		trips:   trips,
		sharing: sharingService,
		history: historyService,
		guard:   tripGuard{trips: trips, sharing: sharingService},
		logger:  logger.With().Str("handler", "trip").Logger(),
	}
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	sharedIDs, err := h.sharing.GetSharedTripIDs(r.Context(), user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	trips, err := h.trips.ListForUser(r.Context(), user.ID, sharedIDs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	var req models.CreateTripRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !models.DatesInOrder(req.StartDate, req.EndDate) {
		writeError(w, r, h.logger, apperr.BadRequest("endDate must not be before startDate"))
		return
	}

	trip, err := h.trips.Create(r.Context(), models.Trip{
		Name:      req.Name,
		OwnerID:   user.ID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.record(r.Context(), trip, actionCreatedTrip, user)
	writeJSON(w, http.StatusCreated, trip)
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	trip, err := h.guard.authorize(r.Context(), tripID, user, accessRead)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req models.UpdateTripRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.IsEmpty() {
		writeError(w, r, h.logger, apperr.BadRequest("no fields to update"))
		return
	}

	current, err := h.guard.authorize(r.Context(), tripID, user, accessWrite)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	start, end := current.StartDate, current.EndDate
	if req.StartDate != nil {
		start = req.StartDate
	}
	if req.EndDate != nil {
		end = req.EndDate
	}
	if !models.DatesInOrder(start, end) {
		writeError(w, r, h.logger, apperr.BadRequest("endDate must not be before startDate"))
		return
	}

	trip, err := h.trips.Update(r.Context(), tripID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.record(r.Context(), trip, actionUpdatedTrip, user)
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.trips.Delete(r.Context(), tripID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.history.DeleteTripHistory(r.Context(), tripID); err != nil {
		h.logger.Warn().Err(err).Int64("trip_id", tripID).Msg("trip deleted but its history was kept")
	}

	w.WriteHeader(http.StatusNoContent)
}

// record appends a trip-level history entry. The trip change has already been
// stored, so a failure here is logged and not returned.
func (h *TripHandler) record(ctx context.Context, trip models.Trip, action string, user models.User) {
	params, _ := json.Marshal(map[string]string{"tripName": trip.Name})
	_, err := h.history.RecordHistory(ctx, models.CreateHistoryRequest{
		TripID:       trip.ID,
		Action:       action,
		ActionParams: params,
	}, user)
	if err != nil {
		h.logger.Warn().Err(err).Int64("trip_id", trip.ID).Str("action", action).Msg("failed to record trip history")
	}
}
