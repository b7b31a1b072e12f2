package handlers

import (
	"context"

	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/repository"
	"github.com/tripplan/tripplan-api/internal/sharing"
)

type accessLevel int

const (
	accessRead accessLevel = iota
	accessWrite
	accessOwner
)

// tripGuard loads a trip and checks the caller's rights on it. Owners hold every
// right; invitees hold what their accepted invites grant.
type tripGuard struct {
	trips   repository.TripRepository
	sharing sharing.Service
}

func (g tripGuard) authorize(ctx context.Context, tripID int64, user models.User, level accessLevel) (models.Trip, error) {
	trip, err := g.trips.GetByID(ctx, tripID)
	if err != nil {
		return models.Trip{}, err
	}
	if trip.OwnerID == user.ID {
		return trip, nil
	}
	if level == accessOwner {
		return models.Trip{}, apperr.Forbidden("only the trip owner can do this")
	}

	canRead, canWrite, err := g.sharing.TripAccess(ctx, tripID, user.ID)
	if err != nil {
		return models.Trip{}, err
	}
	switch {
	case level == accessWrite && canWrite:
		return trip, nil
	case level == accessRead && (canRead || canWrite):
		return trip, nil
	}
	return models.Trip{}, apperr.Forbidden("no access to trip %d", tripID)
}
