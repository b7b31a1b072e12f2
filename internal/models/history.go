package models

import (
	"encoding/json"
	"strings"
	"time"
)

// HistoryRecord is one audit entry describing a change to a trip.
type HistoryRecord struct {
	ID                int64           `json:"id"`
	TripID            int64           `json:"tripId"`
	EventID           *int64          `json:"eventId,omitempty"`
	EventName         *string         `json:"eventName,omitempty"`
	Action            string          `json:"action"`
	ActionParams      json.RawMessage `json:"actionParams,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	UpdatedBy         int64           `json:"updatedBy"`
	UpdatedByUsername string          `json:"username,omitempty"`
}

type CreateHistoryRequest struct {
	TripID       int64           `json:"tripId" validate:"gte=0"`
	EventID      *int64          `json:"eventId"`
	EventName    *string         `json:"eventName" validate:"omitempty,max=255"`
	Action       string          `json:"action" validate:"required,max=1000"`
	ActionParams json.RawMessage `json:"actionParams"`
}

// TripName extracts actionParams.tripName, or "" when absent or not an object.
func (r CreateHistoryRequest) TripName() string {
	if len(r.ActionParams) == 0 {
		return ""
	}
	var params struct {
		TripName string `json:"tripName"`
	}
	if err := json.Unmarshal(r.ActionParams, &params); err != nil {
		return ""
	}
	return strings.TrimSpace(params.TripName)
}

type TripHistory struct {
	Total   int             `json:"total"`
	History []HistoryRecord `json:"history"`
}

type HistoryCount struct {
	Total int `json:"total"`
}
