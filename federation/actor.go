package federation

import (
	"context"
	"fmt"
	"net/url"

	"commune.social/core/federation/vocab"
)

// Actor is the capability set every actor-bearing entity (user,
// community) implements. An actor with a private key is local; an actor
// without one is remote and its key is fetched on first contact.
type Actor interface {
	// ActorID is the raw federated identifier.
	ActorID() string

	PublicKeyPEM() *string
	PrivateKeyPEM() *string

	// LocalID is the numeric database reference, used for the activity log.
	LocalID() int64

	// FollowerInboxes returns the inbox URLs of every follower. Only
	// communities have followers in this protocol generation; other
	// variants return an empty set.
	FollowerInboxes(ctx context.Context, store FollowerStore) ([]*url.URL, error)

	ActorVerbs
}

// ActorVerbs are the actor-level outbound verbs. Variants for which a
// verb is not meaningful embed NoopVerbs rather than inheriting a silent
// default: a community cannot itself follow, only user actors initiate
// follows.
type ActorVerbs interface {
	SendFollow(ctx context.Context, d *Deliverer, target Actor) error
	SendUnfollow(ctx context.Context, d *Deliverer, target Actor) error
	SendAcceptFollow(ctx context.Context, d *Deliverer, follow vocab.Activity) error
	SendDelete(ctx context.Context, d *Deliverer, by Actor) error
	SendUndoDelete(ctx context.Context, d *Deliverer, by Actor) error
	SendRemove(ctx context.Context, d *Deliverer, mod Actor) error
	SendUndoRemove(ctx context.Context, d *Deliverer, mod Actor) error
}

// FollowerStore is the storage capability FollowerInboxes needs.
type FollowerStore interface {
	CommunityFollowerInboxes(ctx context.Context, communityID int64) ([]string, error)
}

// NoopVerbs is embedded by actor variants to opt out of verbs that do
// not apply to them.
type NoopVerbs struct{}

func (NoopVerbs) SendFollow(context.Context, *Deliverer, Actor) error   { return nil }
func (NoopVerbs) SendUnfollow(context.Context, *Deliverer, Actor) error { return nil }
func (NoopVerbs) SendAcceptFollow(context.Context, *Deliverer, vocab.Activity) error {
	return nil
}
func (NoopVerbs) SendDelete(context.Context, *Deliverer, Actor) error     { return nil }
func (NoopVerbs) SendUndoDelete(context.Context, *Deliverer, Actor) error { return nil }
func (NoopVerbs) SendRemove(context.Context, *Deliverer, Actor) error     { return nil }
func (NoopVerbs) SendUndoRemove(context.Context, *Deliverer, Actor) error { return nil }

// ActorURL parses the actor's identifier.
func ActorURL(a Actor) (*url.URL, error) {
	u, err := url.Parse(a.ActorID())
	if err != nil {
		return nil, MalformedActorIDError(a.ActorID(), err)
	}
	if u.Host == "" {
		return nil, MalformedActorIDError(a.ActorID(), fmt.Errorf("no host"))
	}
	return u, nil
}

func endpointURL(a Actor, suffix string) (*url.URL, error) {
	base, err := ActorURL(a)
	if err != nil {
		return nil, err
	}
	return base.JoinPath(suffix), nil
}

func InboxURL(a Actor) (*url.URL, error) {
	return endpointURL(a, "inbox")
}

func OutboxURL(a Actor) (*url.URL, error) {
	return endpointURL(a, "outbox")
}

func FollowersURL(a Actor) (*url.URL, error) {
	return endpointURL(a, "followers")
}

func FollowingURL(a Actor) (*url.URL, error) {
	return endpointURL(a, "following")
}

func LikedURL(a Actor) (*url.URL, error) {
	return endpointURL(a, "liked")
}

// SharedInboxURL derives the per-host inbox from the actor's identifier:
// scheme, host and port are kept, the actor's path is dropped. Two actors
// on the same host share the same shared inbox, which lets deliveries be
// batched per host instead of per actor.
func SharedInboxURL(a Actor) (*url.URL, error) {
	base, err := ActorURL(a)
	if err != nil {
		return nil, err
	}
	return &url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/inbox",
	}, nil
}

// PublicKeyExt renders the actor's key in the security vocabulary shape
// embedded in actor documents.
func PublicKeyExt(a Actor) (*vocab.PublicKey, error) {
	pem := a.PublicKeyPEM()
	if pem == nil {
		return nil, NewFedError(
			WithTag(ErrMalformedActorID.Tag),
			WithMessage(fmt.Sprintf("actor %s has no public key", a.ActorID())),
		)
	}
	return &vocab.PublicKey{
		ID:           KeyID(a),
		Owner:        a.ActorID(),
		PublicKeyPem: *pem,
	}, nil
}

// KeyID names the actor's main key, for both the key extension and the
// HTTP signature keyId parameter.
func KeyID(a Actor) string {
	return a.ActorID() + "#main-key"
}
