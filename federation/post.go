package federation

import (
	"context"
	"net/url"

	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

// ApubPost implements the conversion and dispatch contracts for posts.
// Posts federate as Page objects addressed to their community; state
// changes fan out to the community's followers.
type ApubPost struct {
	Post *models.Post
}

func (p ApubPost) ToApub(ctx context.Context, store ObjectStore) (*vocab.Object, error) {
	creator, err := store.UserActorID(ctx, p.Post.CreatorID)
	if err != nil {
		return nil, StorageError(err)
	}
	community, err := store.CommunityActorID(ctx, p.Post.CommunityID)
	if err != nil {
		return nil, StorageError(err)
	}

	commentsEnabled := !p.Post.Locked
	obj := vocab.Object{
		Context:         vocab.DefaultContext(),
		ID:              p.Post.ApID,
		Type:            "Page",
		AttributedTo:    creator,
		To:              []string{community},
		Name:            p.Post.Name,
		Published:       &p.Post.Published,
		Updated:         p.Post.Updated,
		Sensitive:       &p.Post.Nsfw,
		CommentsEnabled: &commentsEnabled,
	}
	if p.Post.Body != nil {
		obj.Content = *p.Post.Body
		obj.MediaType = "text/html"
	}
	if p.Post.URL != nil {
		obj.URL = *p.Post.URL
	}
	return &obj, nil
}

func (p ApubPost) ToTombstone() (*vocab.Tombstone, error) {
	return CreateTombstone(p.Post.Deleted, p.Post.ApID, p.Post.Updated, "Page")
}

func (p ApubPost) SendCreate(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	return p.sendLifecycle(ctx, creator, d, store, "Create")
}

func (p ApubPost) SendUpdate(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	return p.sendLifecycle(ctx, creator, d, store, "Update")
}

func (p ApubPost) SendDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", creator.ActorID(), p.Post.ApID)
	return p.sendToCommunity(ctx, creator, d, store, del)
}

func (p ApubPost) SendUndoDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", creator.ActorID(), p.Post.ApID)
	del.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", creator.ActorID(), del)
	return p.sendToCommunity(ctx, creator, d, store, undo)
}

func (p ApubPost) SendRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error {
	remove := vocab.NewActivity(d.NewActivityID(), "Remove", mod.ActorID(), p.Post.ApID)
	return p.sendToCommunity(ctx, mod, d, store, remove)
}

func (p ApubPost) SendUndoRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error {
	remove := vocab.NewActivity(d.NewActivityID(), "Remove", mod.ActorID(), p.Post.ApID)
	remove.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", mod.ActorID(), remove)
	return p.sendToCommunity(ctx, mod, d, store, undo)
}

func (p ApubPost) SendLike(ctx context.Context, by Actor, d *Deliverer, store Store) error {
	like := vocab.NewActivity(d.NewActivityID(), "Like", by.ActorID(), p.Post.ApID)
	return p.sendToCommunity(ctx, by, d, store, like)
}

func (p ApubPost) SendDislike(ctx context.Context, by Actor, d *Deliverer, store Store) error {
	dislike := vocab.NewActivity(d.NewActivityID(), "Dislike", by.ActorID(), p.Post.ApID)
	return p.sendToCommunity(ctx, by, d, store, dislike)
}

func (p ApubPost) SendUndoLike(ctx context.Context, by Actor, d *Deliverer, store Store) error {
	like := vocab.NewActivity(d.NewActivityID(), "Like", by.ActorID(), p.Post.ApID)
	like.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", by.ActorID(), like)
	return p.sendToCommunity(ctx, by, d, store, undo)
}

func (p ApubPost) sendLifecycle(ctx context.Context, creator Actor, d *Deliverer, store Store, typ string) error {
	obj, err := p.ToApub(ctx, store)
	if err != nil {
		return err
	}
	obj.Context = nil

	activity := vocab.NewActivity(d.NewActivityID(), typ, creator.ActorID(), obj)
	return p.sendToCommunity(ctx, creator, d, store, activity)
}

func (p ApubPost) sendToCommunity(ctx context.Context, sender Actor, d *Deliverer, store Store, activity vocab.Activity) error {
	inboxes, err := p.recipientInboxes(ctx, store)
	if err != nil {
		return err
	}
	return d.SendActivity(ctx, sender, activity, inboxes)
}

func (p ApubPost) recipientInboxes(ctx context.Context, store Store) ([]*url.URL, error) {
	community, err := store.GetCommunity(ctx, p.Post.CommunityID)
	if err != nil {
		return nil, StorageError(err)
	}
	return NewCommunityActor(community, store).FollowerInboxes(ctx, store)
}

// PostFromApub maps a page document onto a post entity, resolving the
// owning actor and community through the fetcher when they are not yet
// known locally. The caller persists the result.
func PostFromApub(ctx context.Context, page *vocab.Object, fetch *Fetcher, store Store, expectedDomain *url.URL) (*models.Post, error) {
	apID, err := ReconcileActorDomain(fetch.cfg, page.ID, expectedDomain)
	if err != nil {
		return nil, err
	}
	if page.Name == "" {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("page document has no name"),
		)
	}
	if len(page.To) == 0 {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("page document is not addressed to a community"),
		)
	}

	creator, err := fetch.GetOrFetchUser(ctx, page.AttributedTo)
	if err != nil {
		return nil, err
	}
	community, err := fetch.GetOrFetchCommunity(ctx, page.To[0])
	if err != nil {
		return nil, err
	}

	p := models.Post{
		Name:        page.Name,
		CreatorID:   creator.ID,
		CommunityID: community.ID,
		ApID:        apID,
		Local:       false,
		Updated:     page.Updated,
	}
	if page.Content != "" {
		body := SanitizeContent(page.Content)
		p.Body = &body
	}
	if page.URL != "" {
		u := page.URL
		p.URL = &u
	}
	if page.Sensitive != nil {
		p.Nsfw = *page.Sensitive
	}
	if page.CommentsEnabled != nil {
		p.Locked = !*page.CommentsEnabled
	}
	return &p, nil
}
