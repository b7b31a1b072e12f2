package models

import "time"

// Trip is the aggregate that invites and history entries point at.
type Trip struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	OwnerID   int64      `json:"ownerId"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CreateTripRequest struct {
	Name      string     `json:"name" validate:"required,max=200"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type UpdateTripRequest struct {
	Name      *string    `json:"name" validate:"omitempty,min=1,max=200"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// IsEmpty reports whether the update carries no fields.
func (r UpdateTripRequest) IsEmpty() bool {
	return r.Name == nil && r.StartDate == nil && r.EndDate == nil
}

// DatesInOrder reports whether the end date, when both are set, is not before the start.
func DatesInOrder(start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	return !end.Before(*start)
}
