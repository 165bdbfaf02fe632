package federation

import (
	"context"
	"net/url"

	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

// ApubPrivateMessage implements the conversion and lifecycle dispatch
// contracts for private messages. A private message federates as a Note
// addressed to exactly one recipient and is delivered to that
// recipient's inbox only. Moderator removal does not apply, so the
// remove verbs are explicit no-ops rather than follower fan-outs.
type ApubPrivateMessage struct {
	Message *models.PrivateMessage
}

func (m ApubPrivateMessage) ToApub(ctx context.Context, store ObjectStore) (*vocab.Object, error) {
	creator, err := store.UserActorID(ctx, m.Message.CreatorID)
	if err != nil {
		return nil, StorageError(err)
	}
	recipient, err := store.UserActorID(ctx, m.Message.RecipientID)
	if err != nil {
		return nil, StorageError(err)
	}

	return &vocab.Object{
		Context:      vocab.DefaultContext(),
		ID:           m.Message.ApID,
		Type:         "Note",
		AttributedTo: creator,
		To:           []string{recipient},
		Content:      m.Message.Content,
		MediaType:    "text/html",
		Published:    &m.Message.Published,
		Updated:      m.Message.Updated,
	}, nil
}

func (m ApubPrivateMessage) ToTombstone() (*vocab.Tombstone, error) {
	return CreateTombstone(m.Message.Deleted, m.Message.ApID, m.Message.Updated, "Note")
}

func (m ApubPrivateMessage) SendCreate(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	return m.sendLifecycle(ctx, creator, d, store, "Create")
}

func (m ApubPrivateMessage) SendUpdate(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	return m.sendLifecycle(ctx, creator, d, store, "Update")
}

func (m ApubPrivateMessage) SendDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", creator.ActorID(), m.Message.ApID)
	return m.sendToRecipient(ctx, creator, d, store, del)
}

func (m ApubPrivateMessage) SendUndoDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error {
	del := vocab.NewActivity(d.NewActivityID(), "Delete", creator.ActorID(), m.Message.ApID)
	del.Context = nil
	undo := vocab.NewActivity(d.NewActivityID(), "Undo", creator.ActorID(), del)
	return m.sendToRecipient(ctx, creator, d, store, undo)
}

func (m ApubPrivateMessage) SendRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error {
	return nil
}

func (m ApubPrivateMessage) SendUndoRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error {
	return nil
}

func (m ApubPrivateMessage) sendLifecycle(ctx context.Context, creator Actor, d *Deliverer, store Store, typ string) error {
	obj, err := m.ToApub(ctx, store)
	if err != nil {
		return err
	}
	obj.Context = nil

	activity := vocab.NewActivity(d.NewActivityID(), typ, creator.ActorID(), obj)
	return m.sendToRecipient(ctx, creator, d, store, activity)
}

func (m ApubPrivateMessage) sendToRecipient(ctx context.Context, sender Actor, d *Deliverer, store Store, activity vocab.Activity) error {
	recipient, err := store.GetUser(ctx, m.Message.RecipientID)
	if err != nil {
		return StorageError(err)
	}
	inbox, err := InboxURL(UserActor{User: recipient})
	if err != nil {
		return err
	}
	return d.SendActivity(ctx, sender, activity, []*url.URL{inbox})
}

// PrivateMessageFromApub maps a direct note onto a private message
// entity. The recipient must already be a local user; we do not accept
// mail for actors we do not host.
func PrivateMessageFromApub(ctx context.Context, note *vocab.Object, fetch *Fetcher, store Store, expectedDomain *url.URL) (*models.PrivateMessage, error) {
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
	if len(note.To) == 0 {
		return nil, NewFedError(
			WithTag(ErrDeserialize.Tag),
			WithMessage("direct note has no recipient"),
		)
	}

	creator, err := fetch.GetOrFetchUser(ctx, note.AttributedTo)
	if err != nil {
		return nil, err
	}
	recipient, err := store.GetUserByActorID(ctx, note.To[0])
	if err != nil {
		return nil, StorageError(err)
	}

	return &models.PrivateMessage{
		CreatorID:   creator.ID,
		RecipientID: recipient.ID,
		Content:     SanitizeContent(note.Content),
		ApID:        apID,
		Local:       false,
		Updated:     note.Updated,
	}, nil
}
