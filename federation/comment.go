package federation

import (
	"context"
	"database/sql"
	"errors"
	"net/url"

	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

// ApubComment implements the conversion and dispatch contracts for
// comments. Comments federate as Note objects replying to a page (or to
// another note) and fan out to the followers of the post's community.
type ApubComment struct {
	Comment *models.Comment
}

func (c ApubComment) ToApub(ctx context.Context, store ObjectStore) (*vocab.Object, error) {
	creator, err := store.UserActorID(ctx, c.Comment.CreatorID)
	if err != nil {
		return nil, StorageError(err)
	}

	inReplyTo, err := c.inReplyTo(ctx, store)
	if err != nil {
		return nil, err
	}

	return &vocab.Object{
		Context:      vocab.DefaultContext(),
		ID:           c.Comment.ApID,
		Type:         "Note",
		AttributedTo: creator,
		To:           []string{vocab.PublicAudience},
		Content:      c.Comment.Content,
		MediaType:    "text/html",
		InReplyTo:    inReplyTo,
		Published:    &c.Comment.Published,
		Updated:      c.Comment.Updated,
	}, nil
}

func (c ApubComment) inReplyTo(ctx context.Context, store ObjectStore) (string, error) {
	if c.Comment.ParentID != nil {
		parent, err := store.CommentApID(ctx, *c.Comment.ParentID)
		if err != nil {
			return "", StorageError(err)
		}
		return parent, nil
	}
	post, err := store.PostApID(ctx, c.Comment.PostID)
	if err != nil {
		return "", StorageError(err)
	}
	return post, nil
}

func (c ApubComment) ToTombstone() (*vocab.Tombstone, error) {
	return CreateTombstone(c.Comment.Deleted, c.Comment.ApID, c.Comment.Updated, "Note")
}

func (c ApubComment) SendCreate(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	return c.sendLifecycle(ctx, creator, d, store, "Create")
}

func (c ApubComment) SendUpdate(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	return c.sendLifecycle(ctx, creator, d, store, "Update")
}

func (c ApubComment) SendDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", creator.ActorID(), c.Comment.ApID)
	return c.sendToCommunity(ctx, creator, d, store, del)
}

func (c ApubComment) SendUndoDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", creator.ActorID(), c.Comment.ApID)
	del.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", creator.ActorID(), del)
	return c.sendToCommunity(ctx, creator, d, store, undo)
}

func (c ApubComment) SendRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error {
	remove := vocab.NewActivity(d.NewActivityID(), "Remove", mod.ActorID(), c.Comment.ApID)
	return c.sendToCommunity(ctx, mod, d, store, remove)
}

func (c ApubComment) SendUndoRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error {
	remove := vocab.NewActivity(d.NewActivityID(), "Remove", mod.ActorID(), c.Comment.ApID)
	remove.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", mod.ActorID(), remove)
	return c.sendToCommunity(ctx, mod, d, store, undo)
}

func (c ApubComment) SendLike(ctx context.Context, by Actor, d *Deliverer, store Store) error {
	like := vocab.NewActivity(d.NewActivityID(), "Like", by.ActorID(), c.Comment.ApID)
	return c.sendToCommunity(ctx, by, d, store, like)
}

func (c ApubComment) SendDislike(ctx context.Context, by Actor, d *Deliverer, store Store) error {
	dislike := vocab.NewActivity(d.NewActivityID(), "Dislike", by.ActorID(), c.Comment.ApID)
	return c.sendToCommunity(ctx, by, d, store, dislike)
}

func (c ApubComment) SendUndoLike(ctx context.Context, by Actor, d *Deliverer, store Store) error {
	like := vocab.NewActivity(d.NewActivityID(), "Like", by.ActorID(), c.Comment.ApID)
	like.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", by.ActorID(), like)
	return c.sendToCommunity(ctx, by, d, store, undo)
}

func (c ApubComment) sendLifecycle(ctx context.Context, creator Actor, d *Deliverer, store Store, typ string) error {
	obj, err := c.ToApub(ctx, store)
	if err != nil {
		return err
	}
	obj.Context = nil

	activity := vocab.NewActivity(d.NewActivityID(), typ, creator.ActorID(), obj)
	return c.sendToCommunity(ctx, creator, d, store, activity)
}

func (c ApubComment) sendToCommunity(ctx context.Context, sender Actor, d *Deliverer, store Store, activity vocab.Activity) error {
	post, err := store.GetPost(ctx, c.Comment.PostID)
	if err != nil {
		return StorageError(err)
	}
	community, err := store.GetCommunity(ctx, post.CommunityID)
	if err != nil {
		return StorageError(err)
	}
	inboxes, err := NewCommunityActor(community, store).FollowerInboxes(ctx, store)
	if err != nil {
		return err
	}
	return d.SendActivity(ctx, sender, activity, inboxes)
}

// CommentFromApub maps a note document onto a comment entity. The parent
// post (or comment) must resolve; a reply to an unknown thread is
// fetched through the fetcher like any other first contact.
func CommentFromApub(ctx context.Context, note *vocab.Object, fetch *Fetcher, store Store, expectedDomain *url.URL) (*models.Comment, error) {
	apID, err := ReconcileActorDomain(fetch.cfg, note.ID, expectedDomain)
	if err != nil {
		return nil, err
	}
	if note.Content == "" {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("note document has no content"),
		)
	}
	if note.InReplyTo == "" {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("note document has no inReplyTo"),
		)
	}

	creator, err := fetch.GetOrFetchUser(ctx, note.AttributedTo)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		CreatorID: creator.ID,
		Content:   SanitizeContent(note.Content),
		ApID:      apID,
		Local:     false,
		Updated:   note.Updated,
	}

	// inReplyTo points either at a page or at another note.
	parent, err := store.GetCommentByApID(ctx, note.InReplyTo)
	if err == nil {
		comment.PostID = parent.PostID
		comment.ParentID = &parent.ID
		return &comment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, StorageError(err)
	}

	post, err := fetch.GetOrFetchPost(ctx, note.InReplyTo)
	if err != nil {
		return nil, err
	}
	comment.PostID = post.ID
	return &comment, nil
}
