package db

import (
	"context"
	"database/sql"

	"commune.social/core/models"
)

const userCols = `id, name, actor_id, bio, public_key, private_key, local, deleted, published, updated`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var updated sql.NullTime
	err := row.Scan(
		&u.ID, &u.Name, &u.ActorID, &u.Bio, &u.PublicKey, &u.PrivateKey,
		&u.Local, &u.Deleted, &u.Published, &updated,
	)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		u.Updated = &updated.Time
	}
	return &u, nil
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	res, err := d.db.ExecContext(ctx,
		`insert into users (name, actor_id, bio, public_key, private_key, local, deleted)
		 values (?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.ActorID, u.Bio, u.PublicKey, u.PrivateKey, u.Local, u.Deleted,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetUser(ctx, id)
}

func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := d.db.QueryRowContext(ctx, `select `+userCols+` from users where id = ?`, id)
	return scanUser(row)
}

func (d *DB) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+userCols+` from users where name = ? and local = 1`, name)
	return scanUser(row)
}

func (d *DB) GetUserByActorID(ctx context.Context, actorID string) (*models.User, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+userCols+` from users where actor_id = ?`, actorID)
	return scanUser(row)
}

// UpsertRemoteUser materializes a remote actor, refreshing keys and
// profile fields when it is already known.
func (d *DB) UpsertRemoteUser(ctx context.Context, u *models.User) (*models.User, error) {
	_, err := d.db.ExecContext(ctx,
		`insert into users (name, actor_id, bio, public_key, local, updated)
		 values (?, ?, ?, ?, 0, current_timestamp)
		 on conflict(actor_id) do update set
			name = excluded.name,
			bio = excluded.bio,
			public_key = excluded.public_key,
			updated = current_timestamp`,
		u.Name, u.ActorID, u.Bio, u.PublicKey,
	)
	if err != nil {
		return nil, err
	}
	return d.GetUserByActorID(ctx, u.ActorID)
}

func (d *DB) UserActorID(ctx context.Context, id int64) (string, error) {
	var actorID string
	err := d.db.QueryRowContext(ctx, `select actor_id from users where id = ?`, id).Scan(&actorID)
	return actorID, err
}
