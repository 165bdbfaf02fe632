package vocab

import "time"

// PublicKey is the security vocabulary extension embedded in actor
// documents so remote instances can verify our HTTP signatures.
type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// Actor is the wire form of a federated identity: Person for users,
// Group for communities.
type Actor struct {
	Context           any        `json:"@context,omitempty"`
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	PreferredUsername string     `json:"preferredUsername"`
	Name              string     `json:"name,omitempty"`
	AttributedTo      string     `json:"attributedTo,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	Inbox             string     `json:"inbox"`
	Outbox            string     `json:"outbox"`
	Followers         string     `json:"followers,omitempty"`
	Following         string     `json:"following,omitempty"`
	Liked             string     `json:"liked,omitempty"`
	Endpoints         *Endpoints `json:"endpoints,omitempty"`
	PublicKey         *PublicKey `json:"publicKey,omitempty"`
	Published         *time.Time `json:"published,omitempty"`
	Updated           *time.Time `json:"updated,omitempty"`
	Sensitive         *bool      `json:"sensitive,omitempty"`
}
