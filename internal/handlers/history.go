package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/authz"
	"github.com/tripplan/tripplan-api/internal/history"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/repository"
	"github.com/tripplan/tripplan-api/internal/sharing"
)

const maxHistoryLimit = 500

type HistoryHandler struct {
	history      history.Service
	guard        tripGuard
	defaultLimit int
	logger       zerolog.Logger
}

func NewHistoryHandler(
	historyService history.Service,
	trips repository.TripRepository,
	sharingService sharing.Service,
	defaultLimit int,
	logger zerolog.Logger,
) *HistoryHandler {
	if defaultLimit <= 0 {
		defaultLimit = history.DefaultLimit
	}
	return &HistoryHandler{
		history:      historyService,
		guard:        tripGuard{trips: trips, sharing: sharingService},
		defaultLimit: defaultLimit,
		logger:       logger.With().Str("handler", "history").Logger(),
	}
}

// Create records a history entry. A tripId of 0 is resolved from
// actionParams.tripName; the resolved trip needs write access like any other.
// Only an entry that stays unattached (trip id 0) skips the check.
func (h *HistoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	var req models.CreateHistoryRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if req.TripID == 0 {
		tripID, err := h.resolveTripID(r.Context(), req.TripName())
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		req.TripID = tripID
	}

	if req.TripID > 0 {
		if _, err := h.guard.authorize(r.Context(), req.TripID, user, accessWrite); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	record, err := h.history.RecordHistory(r.Context(), req, user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *HistoryHandler) TripHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	limit := h.defaultLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			writeError(w, r, h.logger, apperr.BadRequest("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = parsed
	}

	if _, err := h.guard.authorize(r.Context(), tripID, user, accessRead); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.history.GetTripHistory(r.Context(), tripID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HistoryHandler) Count(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromRequest(r)

	count, err := h.history.GetAllHistoryCount(r.Context(), user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, count)
}

// resolveTripID returns 0 when the name is empty or matches no trip.
func (h *HistoryHandler) resolveTripID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	trip, err := h.guard.trips.FindByName(ctx, name)
	if err != nil {
		if apperr.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return trip.ID, nil
}
