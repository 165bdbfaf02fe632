package federation

import (
	"net/url"
	"slices"
	"strings"

	"commune.social/core/config"
)

// CheckApubID decides whether a federated identifier may be treated as
// authoritative: the scheme must match the configured federation scheme
// and the domain must be in the allowlist. The local domain is always
// part of the allowlist since activities may embed objects authored on
// this instance. Pure predicate, no I/O.
func CheckApubID(cfg *config.Federation, id *url.URL) error {
	if id.Scheme != cfg.Scheme {
		return InvalidSchemeError(id.Scheme)
	}

	domain := id.Hostname()
	if domain == "" {
		return NewFedError(
			WithTag(ErrNoDomain.Tag),
			WithMessage("federation id has no domain component"),
		)
	}

	// Ports are ignored on both sides of the comparison. Federation test
	// setups run several instances on one host behind different ports.
	allowed := slices.ContainsFunc(cfg.AllowedInstances(), func(instance string) bool {
		host, _, _ := strings.Cut(instance, ":")
		return host == domain
	})
	if !allowed {
		return DomainNotAllowedError(domain)
	}

	return nil
}

// ParseAndCheckApubID is CheckApubID over a raw identifier string.
func ParseAndCheckApubID(cfg *config.Federation, raw string) (*url.URL, error) {
	id, err := url.Parse(raw)
	if err != nil {
		return nil, MalformedActorIDError(raw, err)
	}
	if err := CheckApubID(cfg, id); err != nil {
		return nil, err
	}
	return id, nil
}

// ReconcileActorDomain validates the identifier of an inbound object
// against the delivery context. When expectedDomain is set (derived from
// the signer's claimed identity) the object's own identifier must resolve
// under that exact domain; an object claiming an identifier on one domain
// but delivered from another is spoofed. Without an expected domain it
// falls back to the generic trust check. Returns the canonical identifier
// string.
func ReconcileActorDomain(cfg *config.Federation, rawID string, expectedDomain *url.URL) (string, error) {
	id, err := url.Parse(rawID)
	if err != nil {
		return "", MalformedActorIDError(rawID, err)
	}

	if expectedDomain != nil {
		if id.Hostname() != expectedDomain.Hostname() {
			return "", DomainMismatchError(id.Hostname(), expectedDomain.Hostname())
		}
		return id.String(), nil
	}

	if err := CheckApubID(cfg, id); err != nil {
		return "", err
	}
	return id.String(), nil
}
