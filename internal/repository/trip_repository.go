package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
)

type TripRepository interface {
	Create(ctx context.Context, trip models.Trip) (models.Trip, error)
	GetByID(ctx context.Context, id int64) (models.Trip, error)
	FindByName(ctx context.Context, name string) (models.Trip, error)
	ListForUser(ctx context.Context, ownerID int64, sharedIDs []int64) ([]models.Trip, error)
	Update(ctx context.Context, id int64, req models.UpdateTripRequest) (models.Trip, error)
	Delete(ctx context.Context, id int64) error
}

type tripRepository struct {
	db *sql.DB
}

func NewTripRepository(db *sql.DB) TripRepository {
	return &tripRepository{db: db}
}

const tripColumns = `id, name, owner_id, start_date, end_date, created_at, updated_at`

func (r *tripRepository) Create(ctx context.Context, trip models.Trip) (models.Trip, error) {
	const query = `
		INSERT INTO trips (name, owner_id, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + tripColumns + `;
	`
	row := r.db.QueryRowContext(ctx, query, trip.Name, trip.OwnerID, nullableTime(trip.StartDate), nullableTime(trip.EndDate))
	created, err := scanTrip(row)
	return created, translateError(err, "trip not found", "failed to create trip")
}

func (r *tripRepository) GetByID(ctx context.Context, id int64) (models.Trip, error) {
	const query = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = $1;
	`
	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, id))
	return trip, translateError(err, "trip not found", "failed to load trip")
}

// FindByName returns the oldest trip with exactly this name.
func (r *tripRepository) FindByName(ctx context.Context, name string) (models.Trip, error) {
	const query = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE name = $1
		ORDER BY id ASC
		LIMIT 1;
	`
	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, name))
	return trip, translateError(err, "trip not found", "failed to load trip")
}

// ListForUser merges trips owned by ownerID with the given shared trip ids.
func (r *tripRepository) ListForUser(ctx context.Context, ownerID int64, sharedIDs []int64) ([]models.Trip, error) {
	const query = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE owner_id = $1 OR id = ANY($2)
		ORDER BY id ASC;
	`
	if sharedIDs == nil {
		sharedIDs = []int64{}
	}
	rows, err := r.db.QueryContext(ctx, query, ownerID, pq.Array(sharedIDs))
	if err != nil {
		return nil, translateError(err, "", "failed to list trips")
	}
	defer rows.Close()

	trips := make([]models.Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, translateError(err, "", "failed to list trips")
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "", "failed to list trips")
	}
	return trips, nil
}

func (r *tripRepository) Update(ctx context.Context, id int64, req models.UpdateTripRequest) (models.Trip, error) {
	if req.IsEmpty() {
		return models.Trip{}, apperr.BadRequest("no fields to update")
	}

	const query = `
		UPDATE trips
		SET name = COALESCE($2, name),
		    start_date = COALESCE($3, start_date),
		    end_date = COALESCE($4, end_date),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + tripColumns + `;
	`
	row := r.db.QueryRowContext(ctx, query, id, nullableString(req.Name), nullableTime(req.StartDate), nullableTime(req.EndDate))
	trip, err := scanTrip(row)
	return trip, translateError(err, "trip not found", "failed to update trip")
}

func (r *tripRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM trips WHERE id = $1;`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err, "", "failed to delete trip")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "", "failed to delete trip")
	}
	if affected == 0 {
		return apperr.NotFound("trip %d not found", id)
	}
	return nil
}

func scanTrip(scanner rowScanner) (models.Trip, error) {
	var (
		trip      models.Trip
		startDate sql.NullTime
		endDate   sql.NullTime
	)
	if err := scanner.Scan(
		&trip.ID,
		&trip.Name,
		&trip.OwnerID,
		&startDate,
		&endDate,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	); err != nil {
		return models.Trip{}, err
	}
	if startDate.Valid {
		t := startDate.Time
		trip.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		trip.EndDate = &t
	}
	return trip, nil
}
