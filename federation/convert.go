package federation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"commune.social/core/config"
	"commune.social/core/federation/vocab"
)

// Convertible is the outbound conversion contract, implemented once per
// content entity type. The inbound direction is a per-type constructor
// (PostFromApub and friends) since Go has no static interface methods.
type Convertible interface {
	ToApub(ctx context.Context, store ObjectStore) (*vocab.Object, error)
	ToTombstone() (*vocab.Tombstone, error)
}

// ObjectStore resolves local references to federated identifiers during
// outbound conversion.
type ObjectStore interface {
	UserActorID(ctx context.Context, id int64) (string, error)
	CommunityActorID(ctx context.Context, id int64) (string, error)
	PostApID(ctx context.Context, id int64) (string, error)
	CommentApID(ctx context.Context, id int64) (string, error)
}

// CreateTombstone builds the deleted-object representation. The updated
// column doubles as the deletion time, so a tombstone can only exist for
// an entity that is flagged deleted and has been touched since creation;
// anything else is a caller bug, not a degraded tombstone.
func CreateTombstone(deleted bool, objectID string, updated *time.Time, formerType string) (*vocab.Tombstone, error) {
	if !deleted {
		return nil, NewFedError(
			WithTag(ErrNotDeleted.Tag),
			WithMessage(fmt.Sprintf("cannot build tombstone for %s: object is not deleted", objectID)),
		)
	}
	if updated == nil {
		return nil, NewFedError(
			WithTag(ErrMissingDeletionTimestamp.Tag),
			WithMessage(fmt.Sprintf("cannot build tombstone for %s: no deletion time", objectID)),
		)
	}
	return &vocab.Tombstone{
		Context:    vocab.DefaultContext(),
		ID:         objectID,
		Type:       "Tombstone",
		FormerType: formerType,
		Deleted:    *updated,
	}, nil
}

// NewActivityID mints an identifier for an outbound activity on this
// instance.
func NewActivityID(cfg *config.Federation) string {
	return fmt.Sprintf("%s://%s/activities/%s", cfg.Scheme, cfg.Hostname, uuid.New())
}
