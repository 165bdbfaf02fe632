package federation

import (
	"context"
	"net/url"

	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

// UserActor adapts a user row to the actor capability set. Users initiate
// follows; the remaining actor verbs are not meaningful for the person
// variant and stay no-ops via NoopVerbs.
type UserActor struct {
	NoopVerbs
	User *models.User
}

func (a UserActor) ActorID() string        { return a.User.ActorID }
func (a UserActor) PublicKeyPEM() *string  { return a.User.PublicKey }
func (a UserActor) PrivateKeyPEM() *string { return a.User.PrivateKey }
func (a UserActor) LocalID() int64         { return a.User.ID }

// FollowerInboxes is empty for users: nothing follows a person actor in
// this protocol generation.
func (a UserActor) FollowerInboxes(ctx context.Context, store FollowerStore) ([]*url.URL, error) {
	return nil, nil
}

func (a UserActor) SendFollow(ctx context.Context, d *Deliverer, target Actor) error {
	follow := vocab.NewActivity(d.NewActivityID(), "Follow", a.ActorID(), target.ActorID())

	inbox, err := InboxURL(target)
	if err != nil {
		return err
	}
	return d.SendActivity(ctx, a, follow, []*url.URL{inbox})
}

func (a UserActor) SendUnfollow(ctx context.Context, d *Deliverer, target Actor) error {
	follow := vocab.NewActivity(d.NewActivityID(), "Follow", a.ActorID(), target.ActorID())
	follow.Context = nil

	undo := vocab.NewActivity(d.NewActivityID(), "Undo", a.ActorID(), follow)

	inbox, err := InboxURL(target)
	if err != nil {
		return err
	}
	return d.SendActivity(ctx, a, undo, []*url.URL{inbox})
}

// UserToApub renders the person document served at the user's
// identifier.
func UserToApub(u *models.User) (*vocab.Actor, error) {
	actor := UserActor{User: u}

	inbox, err := InboxURL(actor)
	if err != nil {
		return nil, err
	}
	outbox, err := OutboxURL(actor)
	if err != nil {
		return nil, err
	}
	following, err := FollowingURL(actor)
	if err != nil {
		return nil, err
	}
	liked, err := LikedURL(actor)
	if err != nil {
		return nil, err
	}
	shared, err := SharedInboxURL(actor)
	if err != nil {
		return nil, err
	}

	doc := vocab.Actor{
		Context:           vocab.DefaultContext(),
		ID:                u.ActorID,
		Type:              "Person",
		PreferredUsername: u.Name,
		Inbox:             inbox.String(),
		Outbox:            outbox.String(),
		Following:         following.String(),
		Liked:             liked.String(),
		Endpoints:         &vocab.Endpoints{SharedInbox: shared.String()},
		Published:         &u.Published,
		Updated:           u.Updated,
	}
	if u.Bio != nil {
		doc.Summary = *u.Bio
	}
	if u.PublicKey != nil {
		key, err := PublicKeyExt(actor)
		if err != nil {
			return nil, err
		}
		doc.PublicKey = key
	}
	return &doc, nil
}

// UserFromApub maps a person document onto a user entity. The identifier
// is trust-checked (or reconciled against the delivery domain) before
// anything else is read. The caller persists the result.
func UserFromApub(ctx context.Context, person *vocab.Actor, fetch *Fetcher, store Store, expectedDomain *url.URL) (*models.User, error) {
	apID, err := ReconcileActorDomain(fetch.cfg, person.ID, expectedDomain)
	if err != nil {
		return nil, err
	}
	if person.PreferredUsername == "" {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("person document has no preferredUsername"),
		)
	}

	u := models.User{
		Name:    person.PreferredUsername,
		ActorID: apID,
		Local:   false,
	}
	if person.Summary != "" {
		bio := SanitizeContent(person.Summary)
		u.Bio = &bio
	}
	if person.PublicKey != nil {
		pem := person.PublicKey.PublicKeyPem
		u.PublicKey = &pem
	}
	return &u, nil
}
