package federation

import "net/http"

// Signer produces a detached HTTP signature over an outbound request,
// keyed by the sending actor's private key. The actual crypto lives
// outside this core.
type Signer interface {
	Sign(r *http.Request, keyID string, privateKeyPEM string, body []byte) error
}

// NoopSigner skips signing. Remote instances will reject unsigned
// deliveries, so this is only for local federation test setups.
type NoopSigner struct{}

func (NoopSigner) Sign(*http.Request, string, string, []byte) error { return nil }
