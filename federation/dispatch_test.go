package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commune.social/core/config"
	"commune.social/core/federation/vocab"
	"commune.social/core/models"
)

type memLog struct {
	mu      sync.Mutex
	entries []memLogEntry
}

type memLogEntry struct {
	userID int64
	data   json.RawMessage
	local  bool
}

func (m *memLog) InsertActivity(ctx context.Context, userID int64, payload json.RawMessage, local bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, memLogEntry{userID: userID, data: payload, local: local})
	return nil
}

func testDeliverer(store ActivityStore) *Deliverer {
	cfg := &config.Federation{
		Scheme:              "http",
		Hostname:            "example.com",
		RetryAttempts:       1,
		RetryBaseDelay:      time.Millisecond,
		DeliveryConcurrency: 4,
	}
	return NewDeliverer(cfg, &http.Client{}, NoopSigner{}, store)
}

func newInboxServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, vocab.ContentType, r.Header.Get("Content-Type"))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func inboxURL(t *testing.T, srv *httptest.Server) *url.URL {
	t.Helper()
	u, err := url.Parse(srv.URL + "/u/someone/inbox")
	require.NoError(t, err)
	return u
}

func TestSendActivityPartialFailure(t *testing.T) {
	okA, hitsA := newInboxServer(t, http.StatusOK)
	okB, hitsB := newInboxServer(t, http.StatusOK)
	down, _ := newInboxServer(t, http.StatusInternalServerError)

	store := &memLog{}
	d := testDeliverer(store)
	sender := UserActor{User: &models.User{ID: 42, ActorID: "http://example.com/u/alice"}}

	activity := vocab.NewActivity(d.NewActivityID(), "Create", sender.ActorID(), "http://example.com/post/1")
	inboxes := []*url.URL{inboxURL(t, okA), inboxURL(t, okB), inboxURL(t, down)}

	err := d.SendActivity(context.Background(), sender, activity, inboxes)

	// one unreachable recipient surfaces as a partial failure
	var partial PartialDeliveryError
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, ErrPartialDelivery)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, inboxURL(t, down).String(), partial.Failed[0])

	// the reachable recipients still got the activity
	assert.EqualValues(t, 1, hitsA.Load())
	assert.EqualValues(t, 1, hitsB.Load())

	// the log insert still happened, with local = true
	require.Len(t, store.entries, 1)
	assert.EqualValues(t, 42, store.entries[0].userID)
	assert.True(t, store.entries[0].local)

	var logged vocab.Activity
	require.NoError(t, json.Unmarshal(store.entries[0].data, &logged))
	assert.Equal(t, activity.ID, logged.ID)
}

func TestSendActivityAllReachable(t *testing.T) {
	okA, _ := newInboxServer(t, http.StatusOK)
	okB, _ := newInboxServer(t, http.StatusOK)

	store := &memLog{}
	d := testDeliverer(store)
	sender := UserActor{User: &models.User{ID: 1, ActorID: "http://example.com/u/alice"}}

	activity := vocab.NewActivity(d.NewActivityID(), "Like", sender.ActorID(), "http://example.com/post/1")
	err := d.SendActivity(context.Background(), sender, activity, []*url.URL{inboxURL(t, okA), inboxURL(t, okB)})

	assert.NoError(t, err)
	assert.Len(t, store.entries, 1)
}

func TestSendActivityRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store := &memLog{}
	d := testDeliverer(store)
	d.cfg.RetryAttempts = 3
	sender := UserActor{User: &models.User{ID: 1, ActorID: "http://example.com/u/alice"}}

	activity := vocab.NewActivity(d.NewActivityID(), "Create", sender.ActorID(), "http://example.com/post/1")
	err := d.SendActivity(context.Background(), sender, activity, []*url.URL{inboxURL(t, srv)})

	assert.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestSendActivityDoesNotRetryClientErrors(t *testing.T) {
	srv, hits := newInboxServer(t, http.StatusForbidden)

	store := &memLog{}
	d := testDeliverer(store)
	d.cfg.RetryAttempts = 3
	sender := UserActor{User: &models.User{ID: 1, ActorID: "http://example.com/u/alice"}}

	activity := vocab.NewActivity(d.NewActivityID(), "Create", sender.ActorID(), "http://example.com/post/1")
	err := d.SendActivity(context.Background(), sender, activity, []*url.URL{inboxURL(t, srv)})

	assert.ErrorIs(t, err, ErrPartialDelivery)
	assert.EqualValues(t, 1, hits.Load())
}

func TestSendActivityDefaultsConcurrency(t *testing.T) {
	srv, hits := newInboxServer(t, http.StatusOK)

	// a config built in code may leave the concurrency bound unset;
	// delivery must not deadlock on a zero limit
	cfg := &config.Federation{
		Scheme:         "http",
		Hostname:       "example.com",
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
	}
	store := &memLog{}
	d := NewDeliverer(cfg, &http.Client{}, NoopSigner{}, store)
	sender := UserActor{User: &models.User{ID: 1, ActorID: "http://example.com/u/alice"}}

	activity := vocab.NewActivity(d.NewActivityID(), "Create", sender.ActorID(), "http://example.com/post/1")
	err := d.SendActivity(context.Background(), sender, activity, []*url.URL{inboxURL(t, srv)})

	assert.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.Len(t, store.entries, 1)
}

func TestCollapseByHost(t *testing.T) {
	parse := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u
	}

	t.Run("multiple inboxes on one host collapse to shared inbox", func(t *testing.T) {
		targets := collapseByHost([]*url.URL{
			parse("https://remote.tld/u/a/inbox"),
			parse("https://remote.tld/u/b/inbox"),
			parse("https://elsewhere.tld/u/c/inbox"),
		})

		require.Len(t, targets, 2)
		assert.Equal(t, "https://remote.tld/inbox", targets[0].String())
		assert.Equal(t, "https://elsewhere.tld/u/c/inbox", targets[1].String())
	})

	t.Run("duplicate inboxes dedupe", func(t *testing.T) {
		targets := collapseByHost([]*url.URL{
			parse("https://remote.tld/u/a/inbox"),
			parse("https://remote.tld/u/a/inbox"),
		})

		require.Len(t, targets, 1)
		assert.Equal(t, "https://remote.tld/u/a/inbox", targets[0].String())
	})

	t.Run("hosts differing only by port stay separate", func(t *testing.T) {
		targets := collapseByHost([]*url.URL{
			parse("https://remote.tld:8536/u/a/inbox"),
			parse("https://remote.tld:9999/u/b/inbox"),
		})
		assert.Len(t, targets, 2)
	})
}
