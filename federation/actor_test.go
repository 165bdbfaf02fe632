package federation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commune.social/core/models"
)

func testUserActor(actorID string) UserActor {
	return UserActor{User: &models.User{ID: 1, Name: "alice", ActorID: actorID}}
}

func TestEndpointDerivation(t *testing.T) {
	a := testUserActor("https://example.com:8536/u/alice")

	tests := []struct {
		name   string
		derive func(Actor) (string, error)
		want   string
	}{
		{"inbox", stringify(InboxURL), "https://example.com:8536/u/alice/inbox"},
		{"outbox", stringify(OutboxURL), "https://example.com:8536/u/alice/outbox"},
		{"followers", stringify(FollowersURL), "https://example.com:8536/u/alice/followers"},
		{"following", stringify(FollowingURL), "https://example.com:8536/u/alice/following"},
		{"liked", stringify(LikedURL), "https://example.com:8536/u/alice/liked"},
		{"shared inbox", stringify(SharedInboxURL), "https://example.com:8536/inbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.derive(a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEndpointDerivationMalformedActorID(t *testing.T) {
	a := testUserActor("not a url")

	_, err := InboxURL(a)
	assert.ErrorIs(t, err, ErrMalformedActorID)

	_, err = SharedInboxURL(a)
	assert.ErrorIs(t, err, ErrMalformedActorID)
}

func TestSharedInboxIsHostOnly(t *testing.T) {
	alice := testUserActor("https://example.com:8536/u/alice")
	bob := testUserActor("https://example.com:8536/u/bob")

	aliceShared, err := SharedInboxURL(alice)
	require.NoError(t, err)
	bobShared, err := SharedInboxURL(bob)
	require.NoError(t, err)

	// changing only the actor path must not change the shared inbox
	assert.Equal(t, aliceShared.String(), bobShared.String())

	otherPort := testUserActor("https://example.com:9999/u/alice")
	otherShared, err := SharedInboxURL(otherPort)
	require.NoError(t, err)
	assert.NotEqual(t, aliceShared.String(), otherShared.String())
}

func TestPublicKeyExt(t *testing.T) {
	pem := "-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----"
	u := &models.User{ID: 1, Name: "alice", ActorID: "https://example.com/u/alice", PublicKey: &pem}

	key, err := PublicKeyExt(UserActor{User: u})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/u/alice#main-key", key.ID)
	assert.Equal(t, "https://example.com/u/alice", key.Owner)
	assert.Equal(t, pem, key.PublicKeyPem)

	_, err = PublicKeyExt(testUserActor("https://example.com/u/alice"))
	assert.Error(t, err)
}

func TestCommunityActorLocalID(t *testing.T) {
	c := &models.Community{ID: 7, CreatorID: 3, ActorID: "https://example.com/c/golang"}
	a := NewCommunityActor(c, nil)

	// activities sent on behalf of a community are logged against its creator
	assert.EqualValues(t, 3, a.LocalID())
}

func stringify(derive func(Actor) (*url.URL, error)) func(Actor) (string, error) {
	return func(a Actor) (string, error) {
		u, err := derive(a)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
}
