package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dgraph-io/ristretto"

	"commune.social/core/config"
	"commune.social/core/federation/vocab"
	"commune.social/core/log"
	"commune.social/core/models"
)

// Store is the storage collaborator the conversion and fetch paths need.
// Implemented by the db package; tests substitute an in-memory database.
type Store interface {
	ObjectStore
	FollowerStore
	ActivityStore

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByActorID(ctx context.Context, actorID string) (*models.User, error)
	UpsertRemoteUser(ctx context.Context, u *models.User) (*models.User, error)

	GetCommunity(ctx context.Context, id int64) (*models.Community, error)
	GetCommunityByActorID(ctx context.Context, actorID string) (*models.Community, error)
	UpsertRemoteCommunity(ctx context.Context, c *models.Community) (*models.Community, error)

	GetPost(ctx context.Context, id int64) (*models.Post, error)
	GetPostByApID(ctx context.Context, apID string) (*models.Post, error)
	UpsertRemotePost(ctx context.Context, p *models.Post) (*models.Post, error)

	GetCommentByApID(ctx context.Context, apID string) (*models.Comment, error)
	UpsertRemoteComment(ctx context.Context, c *models.Comment) (*models.Comment, error)
}

const actorCacheTTL = time.Hour

// Fetcher materializes remote actors and objects on first contact. Every
// fetched identifier passes the trust check before a single byte is
// requested, and fetched actors land in storage so later conversions can
// resolve them without the network.
type Fetcher struct {
	cfg    *config.Federation
	client *http.Client
	store  Store
	cache  *ristretto.Cache
	l      *slog.Logger
}

func NewFetcher(cfg *config.Federation, client *http.Client, store Store) (*Fetcher, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		cfg:    cfg,
		client: client,
		store:  store,
		cache:  cache,
		l:      log.New("fetch"),
	}, nil
}

// GetOrFetchUser resolves an actor identifier to a locally known user,
// fetching and materializing it when this is the first contact.
func (f *Fetcher) GetOrFetchUser(ctx context.Context, actorID string) (*models.User, error) {
	if cached, ok := f.cache.Get(actorID); ok {
		if u, ok := cached.(*models.User); ok {
			return u, nil
		}
	}

	if u, err := f.store.GetUserByActorID(ctx, actorID); err == nil {
		f.cache.SetWithTTL(actorID, u, 1, actorCacheTTL)
		return u, nil
	}

	if _, err := ParseAndCheckApubID(f.cfg, actorID); err != nil {
		return nil, err
	}

	var person vocab.Actor
	if err := f.fetchJSON(ctx, actorID, &person); err != nil {
		return nil, err
	}

	u, err := UserFromApub(ctx, &person, f, f.store, nil)
	if err != nil {
		return nil, err
	}
	u, err = f.store.UpsertRemoteUser(ctx, u)
	if err != nil {
		return nil, StorageError(err)
	}

	f.cache.SetWithTTL(actorID, u, 1, actorCacheTTL)
	return u, nil
}

// GetOrFetchCommunity is GetOrFetchUser for group actors.
func (f *Fetcher) GetOrFetchCommunity(ctx context.Context, actorID string) (*models.Community, error) {
	if cached, ok := f.cache.Get(actorID); ok {
		if c, ok := cached.(*models.Community); ok {
			return c, nil
		}
	}

	if c, err := f.store.GetCommunityByActorID(ctx, actorID); err == nil {
		f.cache.SetWithTTL(actorID, c, 1, actorCacheTTL)
		return c, nil
	}

	if _, err := ParseAndCheckApubID(f.cfg, actorID); err != nil {
		return nil, err
	}

	var group vocab.Actor
	if err := f.fetchJSON(ctx, actorID, &group); err != nil {
		return nil, err
	}

	c, err := CommunityFromApub(ctx, &group, f, f.store, nil)
	if err != nil {
		return nil, err
	}
	c, err = f.store.UpsertRemoteCommunity(ctx, c)
	if err != nil {
		return nil, StorageError(err)
	}

	f.cache.SetWithTTL(actorID, c, 1, actorCacheTTL)
	return c, nil
}

// GetOrFetchPost resolves a post identifier, fetching the page document
// when the post is not yet known locally.
func (f *Fetcher) GetOrFetchPost(ctx context.Context, apID string) (*models.Post, error) {
	if p, err := f.store.GetPostByApID(ctx, apID); err == nil {
		return p, nil
	}

	if _, err := ParseAndCheckApubID(f.cfg, apID); err != nil {
		return nil, err
	}

	var page vocab.Object
	if err := f.fetchJSON(ctx, apID, &page); err != nil {
		return nil, err
	}

	p, err := PostFromApub(ctx, &page, f, f.store, nil)
	if err != nil {
		return nil, err
	}
	p, err = f.store.UpsertRemotePost(ctx, p)
	if err != nil {
		return nil, StorageError(err)
	}
	return p, nil
}

func (f *Fetcher) fetchJSON(ctx context.Context, rawURL string, out any) error {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", vocab.ContentType)
			req.Header.Set("User-Agent", userAgent())

			resp, err := f.client.Do(req)
			if err != nil {
				return NetworkError(err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode >= 500:
				return NetworkError(fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode))
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(NetworkError(fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)))
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return NetworkError(err)
			}
			return nil
		},
		retry.Attempts(f.cfg.RetryAttempts),
		retry.Delay(f.cfg.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return DecodeError(err)
	}
	return nil
}
