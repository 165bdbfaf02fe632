package db

import (
	"context"
	"encoding/json"

	"commune.social/core/models"
)

// InsertActivity appends to the audit log. Entries are never updated or
// deleted; the log is the record of everything this instance sent
// (local = true) or accepted from elsewhere (local = false).
func (d *DB) InsertActivity(ctx context.Context, userID int64, payload json.RawMessage, local bool) error {
	_, err := d.db.ExecContext(ctx,
		`insert into activities (user_id, data, local) values (?, ?, ?)`,
		userID, string(payload), local,
	)
	return err
}

// ListActivities is used by audit tooling and tests; dispatch code only
// ever appends.
func (d *DB) ListActivities(ctx context.Context, userID int64) ([]models.Activity, error) {
	rows, err := d.db.QueryContext(ctx, `
		select id, user_id, data, local, published
		from activities
		where user_id = ?
		order by id asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var data string
		if err := rows.Scan(&a.ID, &a.UserID, &data, &a.Local, &a.Published); err != nil {
			return nil, err
		}
		a.Data = []byte(data)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
