package models

import (
	"time"

	"github.com/tripplan/tripplan-api/internal/utils"
)

// InviteState is derived from the stored columns and the current time.
type InviteState string

const (
	InviteStateOpen     InviteState = "open"
	InviteStateAccepted InviteState = "accepted"
	InviteStateExpired  InviteState = "expired"
	InviteStateDeleted  InviteState = "deleted"
)

// SharedTrip is an invite link granting read and/or write access to a trip.
// InvitedAt and ExpiredAt are Unix seconds.
type SharedTrip struct {
	ID              int64  `json:"id"`
	TripID          int64  `json:"tripId"`
	CanRead         bool   `json:"canRead"`
	CanWrite        bool   `json:"canWrite"`
	InvitedByUserID int64  `json:"invitedByUserId"`
	UserID          *int64 `json:"userId"`
	InviteLink      string `json:"inviteLink"`
	InvitedAt       int64  `json:"invitedAt"`
	ExpiredAt       int64  `json:"expiredAt"`
	IsDeleted       bool   `json:"isDeleted"`
}

// IsAccepted indicates whether a user has claimed the invite.
func (s SharedTrip) IsAccepted() bool {
	return s.UserID != nil
}

// IsExpired determines whether the invite can no longer be accepted for the first time.
func (s SharedTrip) IsExpired(now time.Time) bool {
	return utils.IsExpired(s.ExpiredAt, now)
}

func (s SharedTrip) AcceptedBy(userID int64) bool {
	return s.UserID != nil && *s.UserID == userID
}

func (s SharedTrip) State(now time.Time) InviteState {
	switch {
	case s.IsDeleted:
		return InviteStateDeleted
	case s.IsAccepted():
		return InviteStateAccepted
	case s.IsExpired(now):
		return InviteStateExpired
	default:
		return InviteStateOpen
	}
}

// SharedTripView pairs an invite with its state at listing time.
type SharedTripView struct {
	SharedTrip
	State InviteState `json:"state"`
}

type CreateSharedTripRequest struct {
	TripID   int64  `json:"tripId" validate:"required,gt=0"`
	CanRead  bool   `json:"canRead"`
	CanWrite bool   `json:"canWrite"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type InviteTokenRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

type SharedTripIDs struct {
	TripIDs []int64 `json:"tripIds"`
}
