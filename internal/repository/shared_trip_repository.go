package repository

import (
	"context"
	"database/sql"

	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
)

type SharedTripRepository interface {
	FindOpenInvite(ctx context.Context, tripID int64, canRead, canWrite bool, invitedBy, now int64) (models.SharedTrip, error)
	FindOpenByToken(ctx context.Context, token string, now int64) (models.SharedTrip, error)
	FindAcceptedByToken(ctx context.Context, token string, userID int64) (models.SharedTrip, error)
	Create(ctx context.Context, invite models.SharedTrip) (models.SharedTrip, error)
	MarkAccepted(ctx context.Context, inviteID, userID int64) (models.SharedTrip, error)
	ListSharedTripIDs(ctx context.Context, userID int64) ([]int64, error)
	ListByTrip(ctx context.Context, tripID int64) ([]models.SharedTrip, error)
	GetAccess(ctx context.Context, tripID, userID int64) (canRead, canWrite bool, err error)
	SoftDelete(ctx context.Context, tripID, inviteID int64) error
}

type sharedTripRepository struct {
	db *sql.DB
}

func NewSharedTripRepository(db *sql.DB) SharedTripRepository {
	return &sharedTripRepository{db: db}
}

const sharedTripColumns = `id, trip_id, can_read, can_write, invited_by_user_id, user_id, invite_link, invited_at, expired_at, is_deleted`

func (r *sharedTripRepository) FindOpenInvite(ctx context.Context, tripID int64, canRead, canWrite bool, invitedBy, now int64) (models.SharedTrip, error) {
	const query = `
		SELECT ` + sharedTripColumns + `
		FROM shared_trips
		WHERE trip_id = $1 AND can_read = $2 AND can_write = $3 AND invited_by_user_id = $4
		  AND user_id IS NULL AND is_deleted = FALSE AND expired_at > $5
		ORDER BY id DESC
		LIMIT 1;
	`
	row := r.db.QueryRowContext(ctx, query, tripID, canRead, canWrite, invitedBy, now)
	invite, err := scanSharedTrip(row)
	return invite, translateError(err, "invite not found", "failed to load invite")
}

func (r *sharedTripRepository) FindOpenByToken(ctx context.Context, token string, now int64) (models.SharedTrip, error) {
	const query = `
		SELECT ` + sharedTripColumns + `
		FROM shared_trips
		WHERE invite_link = $1 AND is_deleted = FALSE AND expired_at > $2 AND user_id IS NULL;
	`
	row := r.db.QueryRowContext(ctx, query, token, now)
	invite, err := scanSharedTrip(row)
	return invite, translateError(err, "invite not found", "failed to load invite")
}

func (r *sharedTripRepository) FindAcceptedByToken(ctx context.Context, token string, userID int64) (models.SharedTrip, error) {
	const query = `
		SELECT ` + sharedTripColumns + `
		FROM shared_trips
		WHERE invite_link = $1 AND is_deleted = FALSE AND user_id = $2;
	`
	row := r.db.QueryRowContext(ctx, query, token, userID)
	invite, err := scanSharedTrip(row)
	return invite, translateError(err, "invite not found", "failed to load invite")
}

func (r *sharedTripRepository) Create(ctx context.Context, invite models.SharedTrip) (models.SharedTrip, error) {
	const query = `
		INSERT INTO shared_trips (trip_id, can_read, can_write, invited_by_user_id, invite_link, invited_at, expired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + sharedTripColumns + `;
	`
	row := r.db.QueryRowContext(ctx, query,
		invite.TripID,
		invite.CanRead,
		invite.CanWrite,
		invite.InvitedByUserID,
		invite.InviteLink,
		invite.InvitedAt,
		invite.ExpiredAt,
	)
	created, err := scanSharedTrip(row)
	return created, translateError(err, "invite not found", "failed to create invite")
}

func (r *sharedTripRepository) MarkAccepted(ctx context.Context, inviteID, userID int64) (models.SharedTrip, error) {
	const query = `
		UPDATE shared_trips
		SET user_id = $2
		WHERE id = $1 AND user_id IS NULL AND is_deleted = FALSE
		RETURNING ` + sharedTripColumns + `;
	`
	row := r.db.QueryRowContext(ctx, query, inviteID, userID)
	invite, err := scanSharedTrip(row)
	return invite, translateError(err, "invite no longer valid", "failed to accept invite")
}

func (r *sharedTripRepository) ListSharedTripIDs(ctx context.Context, userID int64) ([]int64, error) {
	const query = `
		SELECT DISTINCT trip_id
		FROM shared_trips
		WHERE user_id = $1 AND is_deleted = FALSE
		ORDER BY trip_id;
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateError(err, "", "failed to list shared trips")
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, translateError(err, "", "failed to list shared trips")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "", "failed to list shared trips")
	}
	return ids, nil
}

func (r *sharedTripRepository) ListByTrip(ctx context.Context, tripID int64) ([]models.SharedTrip, error) {
	const query = `
		SELECT ` + sharedTripColumns + `
		FROM shared_trips
		WHERE trip_id = $1 AND is_deleted = FALSE
		ORDER BY id DESC;
	`
	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, translateError(err, "", "failed to list invites")
	}
	defer rows.Close()

	invites := make([]models.SharedTrip, 0)
	for rows.Next() {
		invite, err := scanSharedTrip(rows)
		if err != nil {
			return nil, translateError(err, "", "failed to list invites")
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "", "failed to list invites")
	}
	return invites, nil
}

// GetAccess folds every accepted, non-deleted invite the user holds for the trip.
func (r *sharedTripRepository) GetAccess(ctx context.Context, tripID, userID int64) (bool, bool, error) {
	const query = `
		SELECT bool_or(can_read), bool_or(can_write)
		FROM shared_trips
		WHERE trip_id = $1 AND user_id = $2 AND is_deleted = FALSE;
	`
	var canRead, canWrite sql.NullBool
	if err := r.db.QueryRowContext(ctx, query, tripID, userID).Scan(&canRead, &canWrite); err != nil {
		return false, false, translateError(err, "", "failed to load trip access")
	}
	return canRead.Valid && canRead.Bool, canWrite.Valid && canWrite.Bool, nil
}

func (r *sharedTripRepository) SoftDelete(ctx context.Context, tripID, inviteID int64) error {
	const query = `
		UPDATE shared_trips
		SET is_deleted = TRUE
		WHERE id = $1 AND trip_id = $2 AND is_deleted = FALSE;
	`
	result, err := r.db.ExecContext(ctx, query, inviteID, tripID)
	if err != nil {
		return translateError(err, "", "failed to revoke invite")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "", "failed to revoke invite")
	}
	if affected == 0 {
		return apperr.NotFound("invite %d not found", inviteID)
	}
	return nil
}

func scanSharedTrip(scanner rowScanner) (models.SharedTrip, error) {
	var (
		invite models.SharedTrip
		userID sql.NullInt64
	)
	if err := scanner.Scan(
		&invite.ID,
		&invite.TripID,
		&invite.CanRead,
		&invite.CanWrite,
		&invite.InvitedByUserID,
		&userID,
		&invite.InviteLink,
		&invite.InvitedAt,
		&invite.ExpiredAt,
		&invite.IsDeleted,
	); err != nil {
		return models.SharedTrip{}, err
	}
	if userID.Valid {
		uid := userID.Int64
		invite.UserID = &uid
	}
	return invite, nil
}
