package history

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/repository"
)

const (
	// DefaultMaxPerTrip caps the history rows kept for one trip.
	DefaultMaxPerTrip = 500
	DefaultLimit      = 20
)

// TripFinder resolves a trip by its name.
type TripFinder interface {
	FindByName(ctx context.Context, name string) (models.Trip, error)
}

type Service interface {
	RecordHistory(ctx context.Context, req models.CreateHistoryRequest, user models.User) (models.HistoryRecord, error)
	Prune(ctx context.Context, tripID int64) (int, error)
	GetTripHistory(ctx context.Context, tripID int64, limit int) (models.TripHistory, error)
	GetAllHistoryCount(ctx context.Context, user models.User) (models.HistoryCount, error)
	DeleteTripHistory(ctx context.Context, tripID int64) (int64, error)
}

type service struct {
	repo       repository.HistoryRepository
	trips      TripFinder
	logger     zerolog.Logger
	maxPerTrip int
}

func NewService(repo repository.HistoryRepository, trips TripFinder, maxPerTrip int, logger zerolog.Logger) Service {
	if maxPerTrip <= 0 {
		maxPerTrip = DefaultMaxPerTrip
	}
	return &service{
		repo:       repo,
		trips:      trips,
		logger:     logger.With().Str("component", "history_service").Logger(),
		maxPerTrip: maxPerTrip,
	}
}

func (s *service) RecordHistory(ctx context.Context, req models.CreateHistoryRequest, user models.User) (models.HistoryRecord, error) {
	tripID := req.TripID
	if tripID == 0 {
		tripID = s.resolveTripID(ctx, req.TripName())
	}

	if _, err := s.Prune(ctx, tripID); err != nil {
		return models.HistoryRecord{}, err
	}

	record, err := s.repo.Create(ctx, models.HistoryRecord{
		TripID:       tripID,
		EventID:      req.EventID,
		EventName:    req.EventName,
		Action:       req.Action,
		ActionParams: req.ActionParams,
		UpdatedBy:    user.ID,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("trip_id", tripID).Int64("user_id", user.ID).Msg("failed to record history")
		return models.HistoryRecord{}, err
	}
	record.UpdatedByUsername = user.Username
	return record, nil
}

// resolveTripID returns 0 when the name is empty or matches no trip.
func (s *service) resolveTripID(ctx context.Context, name string) int64 {
	if name == "" || s.trips == nil {
		return 0
	}
	trip, err := s.trips.FindByName(ctx, name)
	if err != nil {
		if !apperr.IsNotFound(err) {
			s.logger.Warn().Err(err).Str("trip_name", name).Msg("trip lookup by name failed")
		}
		return 0
	}
	return trip.ID
}

// Prune deletes the oldest rows so one more insert keeps the trip at the cap.
func (s *service) Prune(ctx context.Context, tripID int64) (int, error) {
	ids, err := s.repo.ListIDsByTrip(ctx, tripID)
	if err != nil {
		s.logger.Error().Err(err).Int64("trip_id", tripID).Msg("failed to load history for pruning")
		return 0, err
	}
	if len(ids) < s.maxPerTrip {
		return 0, nil
	}

	overflow := len(ids) - s.maxPerTrip + 1
	deleted := 0
	for _, id := range ids[:overflow] {
		if err := s.repo.DeleteByID(ctx, id); err != nil {
			s.logger.Error().Err(err).Int64("trip_id", tripID).Int64("history_id", id).Msg("failed to prune history record")
			return deleted, err
		}
		deleted++
	}

	s.logger.Debug().Int64("trip_id", tripID).Int("deleted", deleted).Msg("history pruned")
	return deleted, nil
}

// GetTripHistory returns at most max(1, min(total-1, limit)) of the newest rows.
// The last position of a page is never returned once total exceeds one.
func (s *service) GetTripHistory(ctx context.Context, tripID int64, limit int) (models.TripHistory, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	records, err := s.repo.ListByTripWithUser(ctx, tripID)
	if err != nil {
		s.logger.Error().Err(err).Int64("trip_id", tripID).Msg("failed to load trip history")
		return models.TripHistory{}, err
	}

	total := len(records)
	if total == 0 {
		return models.TripHistory{Total: 0, History: []models.HistoryRecord{}}, nil
	}
	return models.TripHistory{
		Total:   total,
		History: records[:max(1, min(total-1, limit))],
	}, nil
}

func (s *service) GetAllHistoryCount(ctx context.Context, user models.User) (models.HistoryCount, error) {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to count history")
		return models.HistoryCount{}, err
	}
	return models.HistoryCount{Total: total}, nil
}

func (s *service) DeleteTripHistory(ctx context.Context, tripID int64) (int64, error) {
	deleted, err := s.repo.DeleteByTrip(ctx, tripID)
	if err != nil {
		s.logger.Error().Err(err).Int64("trip_id", tripID).Msg("failed to delete trip history")
		return 0, err
	}
	return deleted, nil
}
