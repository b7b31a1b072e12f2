package sharing

import (
	"context"
	"sort"
	"time"

	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
)

// fixedClock reports the same instant until advanced.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// memoryRepo mirrors the WHERE clauses of the SQL repository.
type memoryRepo struct {
	rows      []models.SharedTrip
	nextID    int64
	createErr error
	creates   int
}

func (m *memoryRepo) FindOpenInvite(_ context.Context, tripID int64, canRead, canWrite bool, invitedBy, now int64) (models.SharedTrip, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.TripID == tripID && r.CanRead == canRead && r.CanWrite == canWrite && r.InvitedByUserID == invitedBy &&
			r.UserID == nil && !r.IsDeleted && r.ExpiredAt > now {
			return r, nil
		}
	}
	return models.SharedTrip{}, apperr.NotFound("invite not found")
}

func (m *memoryRepo) FindOpenByToken(_ context.Context, token string, now int64) (models.SharedTrip, error) {
	for _, r := range m.rows {
		if r.InviteLink == token && !r.IsDeleted && r.ExpiredAt > now && r.UserID == nil {
			return r, nil
		}
	}
	return models.SharedTrip{}, apperr.NotFound("invite not found")
}

func (m *memoryRepo) FindAcceptedByToken(_ context.Context, token string, userID int64) (models.SharedTrip, error) {
	for _, r := range m.rows {
		if r.InviteLink == token && !r.IsDeleted && r.UserID != nil && *r.UserID == userID {
			return r, nil
		}
	}
	return models.SharedTrip{}, apperr.NotFound("invite not found")
}

func (m *memoryRepo) Create(_ context.Context, invite models.SharedTrip) (models.SharedTrip, error) {
	if m.createErr != nil {
		return models.SharedTrip{}, m.createErr
	}
	for _, r := range m.rows {
		if r.InviteLink == invite.InviteLink {
			return models.SharedTrip{}, apperr.Conflict("resource already exists")
		}
	}
	m.nextID++
	m.creates++
	invite.ID = m.nextID
	m.rows = append(m.rows, invite)
	return invite, nil
}

func (m *memoryRepo) MarkAccepted(_ context.Context, inviteID, userID int64) (models.SharedTrip, error) {
	for i := range m.rows {
		if m.rows[i].ID == inviteID && m.rows[i].UserID == nil && !m.rows[i].IsDeleted {
			uid := userID
			m.rows[i].UserID = &uid
			return m.rows[i], nil
		}
	}
	return models.SharedTrip{}, apperr.NotFound("invite no longer valid")
}

func (m *memoryRepo) ListSharedTripIDs(_ context.Context, userID int64) ([]int64, error) {
	seen := map[int64]struct{}{}
	ids := make([]int64, 0)
	for _, r := range m.rows {
		if r.UserID != nil && *r.UserID == userID && !r.IsDeleted {
			if _, ok := seen[r.TripID]; !ok {
				seen[r.TripID] = struct{}{}
				ids = append(ids, r.TripID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryRepo) ListByTrip(_ context.Context, tripID int64) ([]models.SharedTrip, error) {
	out := make([]models.SharedTrip, 0)
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].TripID == tripID && !m.rows[i].IsDeleted {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memoryRepo) GetAccess(_ context.Context, tripID, userID int64) (bool, bool, error) {
	var canRead, canWrite bool
	for _, r := range m.rows {
		if r.TripID == tripID && r.UserID != nil && *r.UserID == userID && !r.IsDeleted {
			canRead = canRead || r.CanRead
			canWrite = canWrite || r.CanWrite
		}
	}
	return canRead, canWrite, nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, tripID, inviteID int64) error {
	for i := range m.rows {
		if m.rows[i].ID == inviteID && m.rows[i].TripID == tripID && !m.rows[i].IsDeleted {
			m.rows[i].IsDeleted = true
			return nil
		}
	}
	return apperr.NotFound("invite %d not found", inviteID)
}
