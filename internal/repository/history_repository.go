package repository

import (
	"context"
	"database/sql"

	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/models"
)

type HistoryRepository interface {
	Create(ctx context.Context, record models.HistoryRecord) (models.HistoryRecord, error)
	// ListIDsByTrip returns the trip's record ids, oldest first.
	ListIDsByTrip(ctx context.Context, tripID int64) ([]int64, error)
	DeleteByID(ctx context.Context, id int64) error
	// ListByTripWithUser returns the trip's records newest first with the author's username.
	ListByTripWithUser(ctx context.Context, tripID int64) ([]models.HistoryRecord, error)
	CountAll(ctx context.Context) (int, error)
	DeleteByTrip(ctx context.Context, tripID int64) (int64, error)
}

type historyRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, record models.HistoryRecord) (models.HistoryRecord, error) {
	const query = `
		INSERT INTO history (trip_id, event_id, event_name, action, action_params, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, trip_id, event_id, event_name, action, action_params, updated_at, updated_by;
	`

	var params interface{}
	if len(record.ActionParams) > 0 {
		params = []byte(record.ActionParams)
	}

	row := r.db.QueryRowContext(ctx, query,
		record.TripID,
		nullableInt64(record.EventID),
		nullableString(record.EventName),
		record.Action,
		params,
		record.UpdatedBy,
	)
	created, err := scanHistory(row)
	return created, translateError(err, "history record not found", "failed to record history")
}

func (r *historyRepository) ListIDsByTrip(ctx context.Context, tripID int64) ([]int64, error) {
	const query = `
		SELECT id
		FROM history
		WHERE trip_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, translateError(err, "", "failed to load trip history")
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, translateError(err, "", "failed to load trip history")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "", "failed to load trip history")
	}
	return ids, nil
}

func (r *historyRepository) DeleteByID(ctx context.Context, id int64) error {
	const query = `DELETE FROM history WHERE id = $1;`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err, "", "failed to delete history record")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "", "failed to delete history record")
	}
	if affected == 0 {
		return apperr.NotFound("history record %d not found", id)
	}
	return nil
}

func (r *historyRepository) ListByTripWithUser(ctx context.Context, tripID int64) ([]models.HistoryRecord, error) {
	const query = `
		SELECT h.id, h.trip_id, h.event_id, h.event_name, h.action, h.action_params, h.updated_at, h.updated_by, u.username
		FROM history h
		LEFT JOIN users u ON u.id = h.updated_by
		WHERE h.trip_id = $1
		ORDER BY h.id DESC;
	`
	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, translateError(err, "", "failed to load trip history")
	}
	defer rows.Close()

	records := make([]models.HistoryRecord, 0)
	for rows.Next() {
		var username sql.NullString
		record, err := scanHistory(rows, &username)
		if err != nil {
			return nil, translateError(err, "", "failed to load trip history")
		}
		record.UpdatedByUsername = username.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "", "failed to load trip history")
	}
	return records, nil
}

func (r *historyRepository) CountAll(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM history;`

	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, translateError(err, "", "failed to count history")
	}
	return total, nil
}

func (r *historyRepository) DeleteByTrip(ctx context.Context, tripID int64) (int64, error) {
	const query = `DELETE FROM history WHERE trip_id = $1;`

	result, err := r.db.ExecContext(ctx, query, tripID)
	if err != nil {
		return 0, translateError(err, "", "failed to delete trip history")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, translateError(err, "", "failed to delete trip history")
	}
	return affected, nil
}

// scanHistory reads the base history columns followed by any extra destinations.
func scanHistory(scanner rowScanner, extra ...interface{}) (models.HistoryRecord, error) {
	var (
		record    models.HistoryRecord
		eventID   sql.NullInt64
		eventName sql.NullString
		params    []byte
	)
	dest := []interface{}{
		&record.ID,
		&record.TripID,
		&eventID,
		&eventName,
		&record.Action,
		&params,
		&record.UpdatedAt,
		&record.UpdatedBy,
	}
	dest = append(dest, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return models.HistoryRecord{}, err
	}

	if eventID.Valid {
		id := eventID.Int64
		record.EventID = &id
	}
	if eventName.Valid {
		name := eventName.String
		record.EventName = &name
	}
	if len(params) > 0 {
		record.ActionParams = params
	}
	return record, nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
