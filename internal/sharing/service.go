package sharing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
	"github.com/tripplan/tripplan-api/internal/repository"
	"github.com/tripplan/tripplan-api/internal/utils"
)

// DefaultInviteTTL is how long an unaccepted invite link stays redeemable.
const DefaultInviteTTL = 60 * time.Minute

// Service issues, reuses and validates trip invite links.
type Service interface {
	IssueOrReuseInviteLink(ctx context.Context, tripID int64, canRead, canWrite bool, issuer models.User) (models.SharedTrip, error)
	ValidateToken(ctx context.Context, token string, acceptingUserID int64) (models.SharedTrip, error)
	AcceptInvite(ctx context.Context, token string, user models.User) (models.SharedTrip, error)
	GetSharedTripIDs(ctx context.Context, user models.User) ([]int64, error)
	ListTripInvites(ctx context.Context, tripID int64) ([]models.SharedTripView, error)
	RevokeInvite(ctx context.Context, tripID, inviteID int64) error
	TripAccess(ctx context.Context, tripID, userID int64) (canRead, canWrite bool, err error)
}

type Option func(*service)

func WithTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(clock utils.Clock) Option {
	return func(s *service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *service) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

type service struct {
	repo     repository.SharedTripRepository
	logger   zerolog.Logger
	clock    utils.Clock
	ttl      time.Duration
	newToken func() (string, error)
}

func NewService(repo repository.SharedTripRepository, logger zerolog.Logger, opts ...Option) Service {
	s := &service{
		repo:     repo,
		logger:   logger.With().Str("component", "sharing_service").Logger(),
		clock:    utils.SystemClock(),
		ttl:      DefaultInviteTTL,
		newToken: utils.GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) IssueOrReuseInviteLink(ctx context.Context, tripID int64, canRead, canWrite bool, issuer models.User) (models.SharedTrip, error) {
	now := s.clock.Now()

	existing, err := s.repo.FindOpenInvite(ctx, tripID, canRead, canWrite, issuer.ID, now.Unix())
	switch {
	case err == nil:
		return existing, nil
	case !apperr.IsNotFound(err):
		s.logger.Error().Err(err).Int64("trip_id", tripID).Int64("user_id", issuer.ID).Msg("failed to look up open invite")
		return models.SharedTrip{}, err
	}

	token, err := s.newToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate invite token")
		return models.SharedTrip{}, apperr.Internal(errors.Wrap(err, "generate invite token"), "failed to create invite")
	}

	invite, err := s.repo.Create(ctx, models.SharedTrip{
		TripID:          tripID,
		CanRead:         canRead,
		CanWrite:        canWrite,
		InvitedByUserID: issuer.ID,
		InviteLink:      token,
		InvitedAt:       now.Unix(),
		ExpiredAt:       utils.ExpiresAt(now, s.ttl),
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("trip_id", tripID).Int64("user_id", issuer.ID).Msg("failed to create invite")
		return models.SharedTrip{}, err
	}

	s.logger.Info().
		Int64("invite_id", invite.ID).
		Int64("trip_id", tripID).
		Bool("can_read", canRead).
		Bool("can_write", canWrite).
		Msg("invite link issued")
	return invite, nil
}

// ValidateToken matches a token still open for first acceptance, then falls back
// to a token this user already accepted. The fallback ignores expiry.
func (s *service) ValidateToken(ctx context.Context, token string, acceptingUserID int64) (models.SharedTrip, error) {
	invite, err := s.repo.FindOpenByToken(ctx, token, utils.UnixNow(s.clock))
	if err == nil {
		return invite, nil
	}
	if !apperr.IsNotFound(err) {
		s.logger.Error().Err(err).Msg("failed to look up open invite by token")
		return models.SharedTrip{}, err
	}

	invite, err = s.repo.FindAcceptedByToken(ctx, token, acceptingUserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.SharedTrip{}, apperr.NotFound("invite not found")
		}
		s.logger.Error().Err(err).Int64("user_id", acceptingUserID).Msg("failed to look up accepted invite by token")
		return models.SharedTrip{}, err
	}
	return invite, nil
}

func (s *service) AcceptInvite(ctx context.Context, token string, user models.User) (models.SharedTrip, error) {
	invite, err := s.ValidateToken(ctx, token, user.ID)
	if err != nil {
		return models.SharedTrip{}, err
	}
	if invite.AcceptedBy(user.ID) {
		return invite, nil
	}

	accepted, err := s.repo.MarkAccepted(ctx, invite.ID, user.ID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.SharedTrip{}, apperr.NotFound("invite not found")
		}
		s.logger.Error().Err(err).Int64("invite_id", invite.ID).Int64("user_id", user.ID).Msg("failed to accept invite")
		return models.SharedTrip{}, err
	}

	s.logger.Info().
		Int64("invite_id", accepted.ID).
		Int64("trip_id", accepted.TripID).
		Int64("user_id", user.ID).
		Msg("invite accepted")
	return accepted, nil
}

func (s *service) GetSharedTripIDs(ctx context.Context, user models.User) ([]int64, error) {
	ids, err := s.repo.ListSharedTripIDs(ctx, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to list shared trip ids")
		return nil, err
	}
	return ids, nil
}

// ListTripInvites derives each invite's state from the service clock.
func (s *service) ListTripInvites(ctx context.Context, tripID int64) ([]models.SharedTripView, error) {
	invites, err := s.repo.ListByTrip(ctx, tripID)
	if err != nil {
		s.logger.Error().Err(err).Int64("trip_id", tripID).Msg("failed to list trip invites")
		return nil, err
	}

	now := s.clock.Now()
	views := make([]models.SharedTripView, 0, len(invites))
	for _, invite := range invites {
		views = append(views, models.SharedTripView{SharedTrip: invite, State: invite.State(now)})
	}
	return views, nil
}

func (s *service) RevokeInvite(ctx context.Context, tripID, inviteID int64) error {
	if err := s.repo.SoftDelete(ctx, tripID, inviteID); err != nil {
		if !apperr.IsNotFound(err) {
			s.logger.Error().Err(err).Int64("invite_id", inviteID).Msg("failed to revoke invite")
		}
		return err
	}
	s.logger.Info().Int64("invite_id", inviteID).Int64("trip_id", tripID).Msg("invite revoked")
	return nil
}

func (s *service) TripAccess(ctx context.Context, tripID, userID int64) (bool, bool, error) {
	return s.repo.GetAccess(ctx, tripID, userID)
}
