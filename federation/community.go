package federation

import (
	"context"
	"net/url"

	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

// CommunityActor adapts a community row to the actor capability set.
// Communities accept follows and announce their own deletion or removal
// to followers; they never initiate follows themselves, so those verbs
// stay no-ops via NoopVerbs.
type CommunityActor struct {
	NoopVerbs
	Community *models.Community

	// Store resolves the follower set for fan-out verbs.
	Store FollowerStore
}

func NewCommunityActor(c *models.Community, store FollowerStore) CommunityActor {
	return CommunityActor{Community: c, Store: store}
}

func (a CommunityActor) ActorID() string        { return a.Community.ActorID }
func (a CommunityActor) PublicKeyPEM() *string  { return a.Community.PublicKey }
func (a CommunityActor) PrivateKeyPEM() *string { return a.Community.PrivateKey }

// LocalID is the community creator's user id: the activity log records
// which local user an activity was sent on behalf of, and a community
// acts on behalf of its creator.
func (a CommunityActor) LocalID() int64 { return a.Community.CreatorID }

func (a CommunityActor) FollowerInboxes(ctx context.Context, store FollowerStore) ([]*url.URL, error) {
	raw, err := store.CommunityFollowerInboxes(ctx, a.Community.ID)
	if err != nil {
		return nil, StorageError(err)
	}

	var inboxes []*url.URL
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			return nil, MalformedActorIDError(r, err)
		}
		inboxes = append(inboxes, u)
	}
	return inboxes, nil
}

// SendAcceptFollow answers a remote follow request. The accept carries
// the original follow so the requester can correlate it.
func (a CommunityActor) SendAcceptFollow(ctx context.Context, d *Deliverer, follow vocab.Activity) error {
	follower, err := url.Parse(follow.Actor)
	if err != nil {
		return MalformedActorIDError(follow.Actor, err)
	}

	follow.Context = nil
	accept := vocab.NewActivity(d.NewActivityID(), "Accept", a.ActorID(), follow)

	return d.SendActivity(ctx, a, accept, []*url.URL{follower.JoinPath("inbox")})
}

func (a CommunityActor) SendDelete(ctx context.Context, d *Deliverer, by Actor) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", by.ActorID(), a.ActorID())
	return a.sendToFollowers(ctx, d, del)
}

func (a CommunityActor) SendUndoDelete(ctx context.Context, d *Deliverer, by Actor) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", by.ActorID(), a.ActorID())
	del.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", by.ActorID(), del)
	return a.sendToFollowers(ctx, d, undo)
}

func (a CommunityActor) SendRemove(ctx context.Context, d *Deliverer, mod Actor) error {
	remove := vocab.NewActivity(d.NewActivityID(), "Remove", mod.ActorID(), a.ActorID())
	return a.sendToFollowers(ctx, d, remove)
}

func (a CommunityActor) SendUndoRemove(ctx context.Context, d *Deliverer, mod Actor) error {
	remove := vocab.NewActivity(d.NewActivityID(), "Remove", mod.ActorID(), a.ActorID())
	remove.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", mod.ActorID(), remove)
	return a.sendToFollowers(ctx, d, undo)
}

func (a CommunityActor) sendToFollowers(ctx context.Context, d *Deliverer, activity vocab.Activity) error {
	inboxes, err := a.FollowerInboxes(ctx, a.Store)
	if err != nil {
		return err
	}
	return d.SendActivity(ctx, a, activity, inboxes)
}

// CommunityToApub renders the group document served at the community's
// identifier.
func CommunityToApub(ctx context.Context, c *models.Community, store Store) (*vocab.Actor, error) {
	actor := CommunityActor{Community: c, Store: store}

	inbox, err := InboxURL(actor)
	if err != nil {
		return nil, err
	}
	outbox, err := OutboxURL(actor)
	if err != nil {
		return nil, err
	}
	followers, err := FollowersURL(actor)
	if err != nil {
		return nil, err
	}
	shared, err := SharedInboxURL(actor)
	if err != nil {
		return nil, err
	}
	creatorID, err := store.UserActorID(ctx, c.CreatorID)
	if err != nil {
		return nil, StorageError(err)
	}

	doc := vocab.Actor{
		Context:           vocab.DefaultContext(),
		ID:                c.ActorID,
		Type:              "Group",
		PreferredUsername: c.Name,
		Name:              c.Title,
		AttributedTo:      creatorID,
		Inbox:             inbox.String(),
		Outbox:            outbox.String(),
		Followers:         followers.String(),
		Endpoints:         &vocab.Endpoints{SharedInbox: shared.String()},
		Published:         &c.Published,
		Updated:           c.Updated,
		Sensitive:         &c.Nsfw,
	}
	if c.Description != nil {
		doc.Summary = *c.Description
	}
	if c.PublicKey != nil {
		key, err := PublicKeyExt(actor)
		if err != nil {
			return nil, err
		}
		doc.PublicKey = key
	}
	return &doc, nil
}

// CommunityFromApub maps a group document onto a community entity. The
// creator is resolved through the fetcher so first contact with a remote
// community also materializes its owner.
func CommunityFromApub(ctx context.Context, group *vocab.Actor, fetch *Fetcher, store Store, expectedDomain *url.URL) (*models.Community, error) {
	apID, err := ReconcileActorDomain(fetch.cfg, group.ID, expectedDomain)
	if err != nil {
		return nil, err
	}
	if group.PreferredUsername == "" {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("group document has no preferredUsername"),
		)
	}
	if group.AttributedTo == "" {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("group document has no attributedTo"),
		)
	}

	creator, err := fetch.GetOrFetchUser(ctx, group.AttributedTo)
	if err != nil {
		return nil, err
	}

	c := models.Community{
		Name:      group.PreferredUsername,
		Title:     group.Name,
		CreatorID: creator.ID,
		ActorID:   apID,
		Local:     false,
	}
	if c.Title == "" {
		c.Title = c.Name
	}
	if group.Summary != "" {
		desc := SanitizeContent(group.Summary)
		c.Description = &desc
	}
	if group.PublicKey != nil {
		pem := group.PublicKey.PublicKeyPem
		c.PublicKey = &pem
	}
	if group.Sensitive != nil {
		c.Nsfw = *group.Sensitive
	}
	return &c, nil
}
