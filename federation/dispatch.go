package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/avast/retry-go/v4"
	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/sync/errgroup"

	"commune.social/core/config"
	"commune.social/core/federation/vocab"
	"commune.social/core/log"
)

// ObjectDispatcher is the lifecycle dispatch contract every content
// entity type implements to announce its state changes to remote
// followers.
type ObjectDispatcher interface {
	SendCreate(ctx context.Context, creator Actor, d *Deliverer, store Store) error
	SendUpdate(ctx context.Context, creator Actor, d *Deliverer, store Store) error
	SendDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error
	SendUndoDelete(ctx context.Context, creator Actor, d *Deliverer, store Store) error
	SendRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error
	SendUndoRemove(ctx context.Context, mod Actor, d *Deliverer, store Store) error
}

// LikeableDispatcher is the reaction dispatch contract for entity types
// that can be voted on.
type LikeableDispatcher interface {
	SendLike(ctx context.Context, by Actor, d *Deliverer, store Store) error
	SendDislike(ctx context.Context, by Actor, d *Deliverer, store Store) error
	SendUndoLike(ctx context.Context, by Actor, d *Deliverer, store Store) error
}

// defaultDeliveryConcurrency applies when the config carries no explicit
// bound, matching the envconfig default.
const defaultDeliveryConcurrency = 8

// ActivityStore records every activity this instance sends or accepts.
type ActivityStore interface {
	InsertActivity(ctx context.Context, userID int64, payload json.RawMessage, local bool) error
}

// Deliverer fans an activity out to recipient inboxes: deliveries to the
// same host collapse into one request against the shared inbox, each
// request is signed with the sender's key and retried with backoff on
// transient failures, and the activity log is written once all attempts
// have completed. A subset of unreachable inboxes surfaces as a
// PartialDeliveryError, never as an aborted dispatch.
type Deliverer struct {
	cfg    *config.Federation
	client *http.Client
	signer Signer
	store  ActivityStore
	l      *slog.Logger
}

func NewDeliverer(cfg *config.Federation, client *http.Client, signer Signer, store ActivityStore) *Deliverer {
	return &Deliverer{
		cfg:    cfg,
		client: client,
		signer: signer,
		store:  store,
		l:      log.New("deliver"),
	}
}

func (d *Deliverer) Config() *config.Federation {
	return d.cfg
}

func (d *Deliverer) NewActivityID() string {
	return NewActivityID(d.cfg)
}

func (d *Deliverer) SendActivity(ctx context.Context, sender Actor, activity vocab.Activity, inboxes []*url.URL) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return DeserializeError(err)
	}

	targets := collapseByHost(inboxes)

	var (
		mu     sync.Mutex
		failed []string
	)

	// a zero limit would make every Go call block forever
	limit := d.cfg.DeliveryConcurrency
	if limit <= 0 {
		limit = defaultDeliveryConcurrency
	}

	g := errgroup.Group{}
	g.SetLimit(limit)
	for _, target := range targets {
		g.Go(func() error {
			if err := d.deliver(ctx, sender, target, body); err != nil {
				d.l.Warn("inbox delivery failed",
					"activity", activity.ID,
					"inbox", target.String(),
					"error", err)
				mu.Lock()
				failed = append(failed, target.String())
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	// The log insert happens after every delivery attempt, successful or
	// not, so the record always reflects a dispatch that ran to completion.
	if err := d.store.InsertActivity(ctx, sender.LocalID(), body, true); err != nil {
		return StorageError(err)
	}

	if len(failed) > 0 {
		return PartialDeliveryError{Failed: failed}
	}
	return nil
}

func (d *Deliverer) deliver(ctx context.Context, sender Actor, inbox *url.URL, body []byte) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox.String(), bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", vocab.ContentType)
			req.Header.Set("User-Agent", userAgent())

			if pem := sender.PrivateKeyPEM(); pem != nil {
				if err := d.signer.Sign(req, KeyID(sender), *pem, body); err != nil {
					return retry.Unrecoverable(err)
				}
			}

			resp, err := d.client.Do(req)
			if err != nil {
				return NetworkError(err)
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			switch {
			case resp.StatusCode >= 500:
				return NetworkError(fmt.Errorf("inbox %s: status %d", inbox, resp.StatusCode))
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(fmt.Errorf("inbox %s: status %d", inbox, resp.StatusCode))
			}
			return nil
		},
		retry.Attempts(d.cfg.RetryAttempts),
		retry.Delay(d.cfg.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

// collapseByHost dedupes the inbox set and replaces multiple inboxes on
// one host with that host's shared inbox.
func collapseByHost(inboxes []*url.URL) []*url.URL {
	seen := make(map[string]struct{})
	byHost := make(map[string][]*url.URL)
	var hosts []string

	for _, inbox := range inboxes {
		if _, ok := seen[inbox.String()]; ok {
			continue
		}
		seen[inbox.String()] = struct{}{}

		key := inbox.Scheme + "://" + inbox.Host
		if _, ok := byHost[key]; !ok {
			hosts = append(hosts, key)
		}
		byHost[key] = append(byHost[key], inbox)
	}

	var targets []*url.URL
	for _, host := range hosts {
		group := byHost[host]
		if len(group) == 1 {
			targets = append(targets, group[0])
			continue
		}
		targets = append(targets, &url.URL{
			Scheme: group[0].Scheme,
			Host:   group[0].Host,
			Path:   "/inbox",
		})
	}
	return targets
}

func userAgent() string {
	return "commune/" + versioninfo.Short()
}
