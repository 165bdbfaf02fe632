package db

import (
	"context"
	"database/sql"

	"commune.social/core/models"
)

const postCols = `id, name, url, body, creator_id, community_id, ap_id, local, deleted, removed, locked, nsfw, published, updated`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	var updated sql.NullTime
	err := row.Scan(
		&p.ID, &p.Name, &p.URL, &p.Body, &p.CreatorID, &p.CommunityID, &p.ApID,
		&p.Local, &p.Deleted, &p.Removed, &p.Locked, &p.Nsfw, &p.Published, &updated,
	)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		p.Updated = &updated.Time
	}
	return &p, nil
}

func (d *DB) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	res, err := d.db.ExecContext(ctx,
		`insert into posts (name, url, body, creator_id, community_id, ap_id, local, deleted, removed, locked, nsfw)
		 values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.URL, p.Body, p.CreatorID, p.CommunityID, p.ApID,
		p.Local, p.Deleted, p.Removed, p.Locked, p.Nsfw,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetPost(ctx, id)
}

func (d *DB) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	row := d.db.QueryRowContext(ctx, `select `+postCols+` from posts where id = ?`, id)
	return scanPost(row)
}

func (d *DB) GetPostByApID(ctx context.Context, apID string) (*models.Post, error) {
	row := d.db.QueryRowContext(ctx, `select `+postCols+` from posts where ap_id = ?`, apID)
	return scanPost(row)
}

func (d *DB) UpsertRemotePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	_, err := d.db.ExecContext(ctx,
		`insert into posts (name, url, body, creator_id, community_id, ap_id, local, nsfw, updated)
		 values (?, ?, ?, ?, ?, ?, 0, ?, ?)
		 on conflict(ap_id) do update set
			name = excluded.name,
			url = excluded.url,
			body = excluded.body,
			nsfw = excluded.nsfw,
			updated = excluded.updated`,
		p.Name, p.URL, p.Body, p.CreatorID, p.CommunityID, p.ApID, p.Nsfw, p.Updated,
	)
	if err != nil {
		return nil, err
	}
	return d.GetPostByApID(ctx, p.ApID)
}

// SetPostDeleted flips the deletion flag and stamps updated, which later
// serves as the tombstone's deletion time.
func (d *DB) SetPostDeleted(ctx context.Context, id int64, deleted bool) (*models.Post, error) {
	_, err := d.db.ExecContext(ctx,
		`update posts set deleted = ?, updated = current_timestamp where id = ?`,
		deleted, id,
	)
	if err != nil {
		return nil, err
	}
	return d.GetPost(ctx, id)
}

func (d *DB) SetPostRemoved(ctx context.Context, id int64, removed bool) (*models.Post, error) {
	_, err := d.db.ExecContext(ctx,
		`update posts set removed = ?, updated = current_timestamp where id = ?`,
		removed, id,
	)
	if err != nil {
		return nil, err
	}
	return d.GetPost(ctx, id)
}

func (d *DB) PostApID(ctx context.Context, id int64) (string, error) {
	var apID string
	err := d.db.QueryRowContext(ctx, `select ap_id from posts where id = ?`, id).Scan(&apID)
	return apID, err
}

const commentCols = `id, creator_id, post_id, parent_id, content, ap_id, local, deleted, removed, published, updated`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	var updated sql.NullTime
	err := row.Scan(
		&c.ID, &c.CreatorID, &c.PostID, &c.ParentID, &c.Content, &c.ApID,
		&c.Local, &c.Deleted, &c.Removed, &c.Published, &updated,
	)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		c.Updated = &updated.Time
	}
	return &c, nil
}

func (d *DB) CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	res, err := d.db.ExecContext(ctx,
		`insert into comments (creator_id, post_id, parent_id, content, ap_id, local, deleted, removed)
		 values (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CreatorID, c.PostID, c.ParentID, c.Content, c.ApID, c.Local, c.Deleted, c.Removed,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetComment(ctx, id)
}

func (d *DB) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	row := d.db.QueryRowContext(ctx, `select `+commentCols+` from comments where id = ?`, id)
	return scanComment(row)
}

func (d *DB) GetCommentByApID(ctx context.Context, apID string) (*models.Comment, error) {
	row := d.db.QueryRowContext(ctx, `select `+commentCols+` from comments where ap_id = ?`, apID)
	return scanComment(row)
}

func (d *DB) UpsertRemoteComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	_, err := d.db.ExecContext(ctx,
		`insert into comments (creator_id, post_id, parent_id, content, ap_id, local, updated)
		 values (?, ?, ?, ?, ?, 0, ?)
		 on conflict(ap_id) do update set
			content = excluded.content,
			updated = excluded.updated`,
		c.CreatorID, c.PostID, c.ParentID, c.Content, c.ApID, c.Updated,
	)
	if err != nil {
		return nil, err
	}
	return d.GetCommentByApID(ctx, c.ApID)
}

func (d *DB) SetCommentDeleted(ctx context.Context, id int64, deleted bool) (*models.Comment, error) {
	_, err := d.db.ExecContext(ctx,
		`update comments set deleted = ?, updated = current_timestamp where id = ?`,
		deleted, id,
	)
	if err != nil {
		return nil, err
	}
	return d.GetComment(ctx, id)
}

func (d *DB) SetCommentRemoved(ctx context.Context, id int64, removed bool) (*models.Comment, error) {
	_, err := d.db.ExecContext(ctx,
		`update comments set removed = ?, updated = current_timestamp where id = ?`,
		removed, id,
	)
	if err != nil {
		return nil, err
	}
	return d.GetComment(ctx, id)
}

func (d *DB) CommentApID(ctx context.Context, id int64) (string, error) {
	var apID string
	err := d.db.QueryRowContext(ctx, `select ap_id from comments where id = ?`, id).Scan(&apID)
	return apID, err
}

const pmCols = `id, creator_id, recipient_id, content, ap_id, local, deleted, read, published, updated`

func scanPrivateMessage(row interface{ Scan(...any) error }) (*models.PrivateMessage, error) {
	var pm models.PrivateMessage
	var updated sql.NullTime
	err := row.Scan(
		&pm.ID, &pm.CreatorID, &pm.RecipientID, &pm.Content, &pm.ApID,
		&pm.Local, &pm.Deleted, &pm.Read, &pm.Published, &updated,
	)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		pm.Updated = &updated.Time
	}
	return &pm, nil
}

func (d *DB) CreatePrivateMessage(ctx context.Context, pm *models.PrivateMessage) (*models.PrivateMessage, error) {
	res, err := d.db.ExecContext(ctx,
		`insert into private_messages (creator_id, recipient_id, content, ap_id, local, deleted, read)
		 values (?, ?, ?, ?, ?, ?, ?)`,
		pm.CreatorID, pm.RecipientID, pm.Content, pm.ApID, pm.Local, pm.Deleted, pm.Read,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetPrivateMessage(ctx, id)
}

func (d *DB) GetPrivateMessage(ctx context.Context, id int64) (*models.PrivateMessage, error) {
	row := d.db.QueryRowContext(ctx, `select `+pmCols+` from private_messages where id = ?`, id)
	return scanPrivateMessage(row)
}

func (d *DB) GetPrivateMessageByApID(ctx context.Context, apID string) (*models.PrivateMessage, error) {
	row := d.db.QueryRowContext(ctx, `select `+pmCols+` from private_messages where ap_id = ?`, apID)
	return scanPrivateMessage(row)
}

func (d *DB) UpsertRemotePrivateMessage(ctx context.Context, pm *models.PrivateMessage) (*models.PrivateMessage, error) {
	_, err := d.db.ExecContext(ctx,
		`insert into private_messages (creator_id, recipient_id, content, ap_id, local, updated)
		 values (?, ?, ?, ?, 0, ?)
		 on conflict(ap_id) do update set
			content = excluded.content,
			updated = excluded.updated`,
		pm.CreatorID, pm.RecipientID, pm.Content, pm.ApID, pm.Updated,
	)
	if err != nil {
		return nil, err
	}
	return d.GetPrivateMessageByApID(ctx, pm.ApID)
}
