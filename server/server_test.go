package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commune.social/core/config"
	"commune.social/core/db"
	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

func setup(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.Setup(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	c := &config.Config{
		Federation: config.Federation{
			Scheme:   "https",
			Hostname: "example.com",
		},
	}
	return New(c, database), database
}

func seed(t *testing.T, database *db.DB) (*models.User, *models.Community) {
	t.Helper()
	ctx := context.Background()

	user, err := database.CreateUser(ctx, &models.User{
		Name:    "alice",
		ActorID: "https://example.com/u/alice",
		Local:   true,
	})
	require.NoError(t, err)

	community, err := database.CreateCommunity(ctx, &models.Community{
		Name:      "golang",
		Title:     "The Go Programming Language",
		CreatorID: user.ID,
		ActorID:   "https://example.com/c/golang",
		Local:     true,
	})
	require.NoError(t, err)

	return user, community
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestGetUserDocument(t *testing.T) {
	s, database := setup(t)
	seed(t, database)

	rec := get(t, s, "/u/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vocab.ContentType, rec.Header().Get("Content-Type"))

	var doc vocab.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Person", doc.Type)
	assert.Equal(t, "https://example.com/u/alice", doc.ID)
	assert.Equal(t, "https://example.com/u/alice/inbox", doc.Inbox)
	require.NotNil(t, doc.Endpoints)
	assert.Equal(t, "https://example.com/inbox", doc.Endpoints.SharedInbox)

	rec = get(t, s, "/u/nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCommunityDocument(t *testing.T) {
	s, database := setup(t)
	user, _ := seed(t, database)

	rec := get(t, s, "/c/golang")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc vocab.Actor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Group", doc.Type)
	assert.Equal(t, user.ActorID, doc.AttributedTo)
	assert.Equal(t, "https://example.com/c/golang/followers", doc.Followers)
}

func TestGetPostDocumentAndTombstone(t *testing.T) {
	s, database := setup(t)
	ctx := context.Background()
	user, community := seed(t, database)

	post, err := database.CreatePost(ctx, &models.Post{
		Name:        "Go generics",
		CreatorID:   user.ID,
		CommunityID: community.ID,
		ApID:        "https://example.com/post/1",
		Local:       true,
	})
	require.NoError(t, err)

	rec := get(t, s, "/post/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var page vocab.Object
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "Page", page.Type)
	assert.Equal(t, post.ApID, page.ID)

	// deleted posts render as a tombstone with 410
	_, err = database.SetPostDeleted(ctx, post.ID, true)
	require.NoError(t, err)

	rec = get(t, s, "/post/1")
	require.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, vocab.ContentType, rec.Header().Get("Content-Type"))

	var tomb vocab.Tombstone
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tomb))
	assert.Equal(t, "Tombstone", tomb.Type)
	assert.Equal(t, "Page", tomb.FormerType)
	assert.Equal(t, post.ApID, tomb.ID)
	assert.False(t, tomb.Deleted.IsZero())

	rec = get(t, s, "/post/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCommentTombstone(t *testing.T) {
	s, database := setup(t)
	ctx := context.Background()
	user, community := seed(t, database)

	post, err := database.CreatePost(ctx, &models.Post{
		Name:        "Go generics",
		CreatorID:   user.ID,
		CommunityID: community.ID,
		ApID:        "https://example.com/post/1",
		Local:       true,
	})
	require.NoError(t, err)

	comment, err := database.CreateComment(ctx, &models.Comment{
		CreatorID: user.ID,
		PostID:    post.ID,
		Content:   "<p>finally</p>",
		ApID:      "https://example.com/comment/1",
		Local:     true,
	})
	require.NoError(t, err)

	rec := get(t, s, "/comment/1")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = database.SetCommentDeleted(ctx, comment.ID, true)
	require.NoError(t, err)

	rec = get(t, s, "/comment/1")
	require.Equal(t, http.StatusGone, rec.Code)

	var tomb vocab.Tombstone
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tomb))
	assert.Equal(t, "Note", tomb.FormerType)
	assert.Equal(t, comment.ApID, tomb.ID)
}

func TestWebFinger(t *testing.T) {
	s, database := setup(t)
	seed(t, database)

	rec := get(t, s, "/.well-known/webfinger?resource=acct:alice@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/jrd+json", rec.Header().Get("Content-Type"))

	var res vocab.WebFingerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "acct:alice@example.com", res.Subject)
	require.Len(t, res.Links, 1)
	assert.Equal(t, vocab.ContentType, res.Links[0].Type)
	assert.Equal(t, "https://example.com/u/alice", res.Links[0].Href)

	rec = get(t, s, "/.well-known/webfinger?resource=acct:golang@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "https://example.com/c/golang", res.Links[0].Href)

	rec = get(t, s, "/.well-known/webfinger?resource=acct:alice@elsewhere.tld")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/.well-known/webfinger?resource=https://example.com/u/alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
