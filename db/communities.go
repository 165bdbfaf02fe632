package db

import (
	"context"
	"database/sql"

	"commune.social/core/models"
)

const communityCols = `id, name, title, description, creator_id, actor_id, public_key, private_key, local, deleted, removed, nsfw, published, updated`

func scanCommunity(row interface{ Scan(...any) error }) (*models.Community, error) {
	var c models.Community
	var updated sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.Title, &c.Description, &c.CreatorID, &c.ActorID,
		&c.PublicKey, &c.PrivateKey, &c.Local, &c.Deleted, &c.Removed, &c.Nsfw,
		&c.Published, &updated,
	)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		c.Updated = &updated.Time
	}
	return &c, nil
}

func (d *DB) CreateCommunity(ctx context.Context, c *models.Community) (*models.Community, error) {
	res, err := d.db.ExecContext(ctx,
		`insert into communities (name, title, description, creator_id, actor_id, public_key, private_key, local, deleted, removed, nsfw)
		 values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Title, c.Description, c.CreatorID, c.ActorID,
		c.PublicKey, c.PrivateKey, c.Local, c.Deleted, c.Removed, c.Nsfw,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetCommunity(ctx, id)
}

func (d *DB) GetCommunity(ctx context.Context, id int64) (*models.Community, error) {
	row := d.db.QueryRowContext(ctx, `select `+communityCols+` from communities where id = ?`, id)
	return scanCommunity(row)
}

func (d *DB) GetCommunityByName(ctx context.Context, name string) (*models.Community, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+communityCols+` from communities where name = ? and local = 1`, name)
	return scanCommunity(row)
}

func (d *DB) GetCommunityByActorID(ctx context.Context, actorID string) (*models.Community, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+communityCols+` from communities where actor_id = ?`, actorID)
	return scanCommunity(row)
}

func (d *DB) UpsertRemoteCommunity(ctx context.Context, c *models.Community) (*models.Community, error) {
	_, err := d.db.ExecContext(ctx,
		`insert into communities (name, title, description, creator_id, actor_id, public_key, local, updated)
		 values (?, ?, ?, ?, ?, ?, 0, current_timestamp)
		 on conflict(actor_id) do update set
			name = excluded.name,
			title = excluded.title,
			description = excluded.description,
			public_key = excluded.public_key,
			updated = current_timestamp`,
		c.Name, c.Title, c.Description, c.CreatorID, c.ActorID, c.PublicKey,
	)
	if err != nil {
		return nil, err
	}
	return d.GetCommunityByActorID(ctx, c.ActorID)
}

func (d *DB) CommunityActorID(ctx context.Context, id int64) (string, error) {
	var actorID string
	err := d.db.QueryRowContext(ctx, `select actor_id from communities where id = ?`, id).Scan(&actorID)
	return actorID, err
}

func (d *DB) FollowCommunity(ctx context.Context, communityID, userID int64, pending bool) error {
	_, err := d.db.ExecContext(ctx,
		`insert into community_followers (community_id, user_id, pending)
		 values (?, ?, ?)
		 on conflict(community_id, user_id) do update set pending = excluded.pending`,
		communityID, userID, pending,
	)
	return err
}

func (d *DB) UnfollowCommunity(ctx context.Context, communityID, userID int64) error {
	_, err := d.db.ExecContext(ctx,
		`delete from community_followers where community_id = ? and user_id = ?`,
		communityID, userID,
	)
	return err
}

// CommunityFollowerInboxes returns one inbox URL per follower. Inboxes
// are derived from the follower's identifier, matching the endpoint
// layout every actor advertises.
func (d *DB) CommunityFollowerInboxes(ctx context.Context, communityID int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		select u.actor_id
		from community_followers cf
		join users u on u.id = cf.user_id
		where cf.community_id = ? and cf.pending = 0
		order by cf.id asc
	`, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inboxes []string
	for rows.Next() {
		var actorID string
		if err := rows.Scan(&actorID); err != nil {
			return nil, err
		}
		inboxes = append(inboxes, actorID+"/inbox")
	}
	return inboxes, rows.Err()
}
