// Package webfinger resolves a bare name@domain mention to the
// canonical actor identifier advertised by the mention's home instance.
package webfinger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/avast/retry-go/v4"

	"commune.social/core/config"
	"commune.social/core/federation"
	"commune.social/core/federation/vocab"
	"commune.social/core/log"
)

// Mention is an ephemeral name@domain pair. It carries no identity of
// its own until resolved.
type Mention struct {
	Name   string
	Domain string
}

func (m Mention) String() string {
	return fmt.Sprintf("@%s@%s", m.Name, m.Domain)
}

type Resolver struct {
	cfg    *config.Federation
	client *http.Client
}

func NewResolver(cfg *config.Federation, client *http.Client) *Resolver {
	return &Resolver{cfg: cfg, client: client}
}

// Resolve issues the well-known discovery request for the mention's
// domain and returns the identifier behind the single link carrying the
// federation content type. Transient failures (transport errors, 5xx)
// are retried with backoff; 4xx and malformed responses are not.
func (r *Resolver) Resolve(ctx context.Context, m Mention) (*url.URL, error) {
	fetchURL := fmt.Sprintf(
		"%s://%s/.well-known/webfinger?resource=acct:%s@%s",
		r.cfg.Scheme, m.Domain, m.Name, m.Domain,
	)
	log.FromContext(ctx).Debug("fetching webfinger url", "url", fetchURL)

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/jrd+json, application/json")

			resp, err := r.client.Do(req)
			if err != nil {
				return federation.NetworkError(err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode >= 500:
				return federation.NetworkError(fmt.Errorf("webfinger %s: status %d", m.Domain, resp.StatusCode))
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(federation.NetworkError(fmt.Errorf("webfinger %s: status %d", m.Domain, resp.StatusCode)))
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return federation.NetworkError(err)
			}
			return nil
		},
		retry.Attempts(r.cfg.RetryAttempts),
		retry.Delay(r.cfg.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}

	var res vocab.WebFingerResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, federation.DecodeError(err)
	}

	for _, link := range res.Links {
		if link.Type != vocab.ContentType {
			continue
		}
		if link.Href == "" {
			return nil, federation.NewFedError(
				federation.WithTag(federation.ErrNoHref.Tag),
				federation.WithMessage(fmt.Sprintf("webfinger link for %s has no href", m)),
			)
		}
		href, err := url.Parse(link.Href)
		if err != nil {
			return nil, federation.DecodeError(err)
		}
		return href, nil
	}

	return nil, federation.NewFedError(
		federation.WithTag(federation.ErrNoMatchingLink.Tag),
		federation.WithMessage(fmt.Sprintf("no %s link found for %s", vocab.ContentType, m)),
	)
}
