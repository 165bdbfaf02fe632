// Package models holds the domain entities shared by storage and
// federation. Entities are never hard-deleted; the deleted flag plus the
// updated timestamp carry tombstone semantics.
package models

import "time"

type User struct {
	ID         int64
	Name       string
	ActorID    string
	Bio        *string
	PublicKey  *string
	PrivateKey *string
	Local      bool
	Deleted    bool
	Published  time.Time
	Updated    *time.Time
}

type Community struct {
	ID          int64
	Name        string
	Title       string
	Description *string
	CreatorID   int64
	ActorID     string
	PublicKey   *string
	PrivateKey  *string
	Local       bool
	Deleted     bool
	Removed     bool
	Nsfw        bool
	Published   time.Time
	Updated     *time.Time
}

type Post struct {
	ID          int64
	Name        string
	URL         *string
	Body        *string
	CreatorID   int64
	CommunityID int64
	ApID        string
	Local       bool
	Deleted     bool
	Removed     bool
	Locked      bool
	Nsfw        bool
	Published   time.Time
	Updated     *time.Time
}

type Comment struct {
	ID        int64
	CreatorID int64
	PostID    int64
	ParentID  *int64
	Content   string
	ApID      string
	Local     bool
	Deleted   bool
	Removed   bool
	Published time.Time
	Updated   *time.Time
}

type PrivateMessage struct {
	ID          int64
	CreatorID   int64
	RecipientID int64
	Content     string
	ApID        string
	Local       bool
	Deleted     bool
	Read        bool
	Published   time.Time
	Updated     *time.Time
}

// CommunityFollow links a user (possibly remote) to a community.
type CommunityFollow struct {
	ID          int64
	CommunityID int64
	UserID      int64
	Pending     bool
	Published   time.Time
}

// Activity is one append-only audit log entry. Never mutated after
// insert.
type Activity struct {
	ID        int64
	UserID    int64
	Data      []byte
	Local     bool
	Published time.Time
}
