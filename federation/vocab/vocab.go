// Package vocab holds the ActivityStreams wire types exchanged between
// instances. Only the fields the platform produces or consumes are
// modelled; unknown fields on inbound documents are ignored.
package vocab

import "time"

// ContentType is the media type for every federation request and response.
const ContentType = "application/activity+json"

// PublicAudience addresses an activity to the world.
const PublicAudience = "https://www.w3.org/ns/activitystreams#Public"

func DefaultContext() []any {
	return []any{
		"https://www.w3.org/ns/activitystreams",
		"https://w3id.org/security/v1",
	}
}

// Object is the wire form of a content entity: a Page for posts, a Note
// for comments and private messages. The platform-specific fields
// (sensitive, commentsEnabled) are layered onto the base vocabulary.
type Object struct {
	Context         any        `json:"@context,omitempty"`
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	AttributedTo    string     `json:"attributedTo,omitempty"`
	To              []string   `json:"to,omitempty"`
	Name            string     `json:"name,omitempty"`
	Content         string     `json:"content,omitempty"`
	MediaType       string     `json:"mediaType,omitempty"`
	URL             string     `json:"url,omitempty"`
	InReplyTo       string     `json:"inReplyTo,omitempty"`
	Published       *time.Time `json:"published,omitempty"`
	Updated         *time.Time `json:"updated,omitempty"`
	Sensitive       *bool      `json:"sensitive,omitempty"`
	CommentsEnabled *bool      `json:"commentsEnabled,omitempty"`
}

// Tombstone stands in for a deleted object. Deleted doubles as the
// deletion timestamp, taken from the entity's updated column.
type Tombstone struct {
	Context    any       `json:"@context,omitempty"`
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	FormerType string    `json:"formerType"`
	Deleted    time.Time `json:"deleted"`
}

// Activity is the envelope for every outbound verb. Object carries either
// a bare identifier, a full Object, or a nested Activity (for Undo).
type Activity struct {
	Context any      `json:"@context,omitempty"`
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Actor   string   `json:"actor"`
	To      []string `json:"to,omitempty"`
	Cc      []string `json:"cc,omitempty"`
	Object  any      `json:"object"`
}

func NewActivity(id, typ, actor string, object any) Activity {
	return Activity{
		Context: DefaultContext(),
		ID:      id,
		Type:    typ,
		Actor:   actor,
		Object:  object,
	}
}

type WebFingerLink struct {
	Rel  string `json:"rel,omitempty"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

type WebFingerResponse struct {
	Subject string          `json:"subject"`
	Aliases []string        `json:"aliases,omitempty"`
	Links   []WebFingerLink `json:"links"`
}
