package model

import "time"

// SelfServerID is the current-server sentinel for sessions hosted by the
// player's own game instance
const SelfServerID = "self"

// Account is a player's master-server record, keyed by their stable player id
type Account struct {
	ID                 string
	IsBanned           bool // set by moderation, read-only here
	SessionToken       string
	SessionTokenExpiry time.Time
	CurrentServerID    string // empty when the player is not on any server
	PersistenceBlob    []byte
}

// Clone returns a deep copy of the account
func (a *Account) Clone() *Account {
	c := *a
	c.PersistenceBlob = append([]byte(nil), a.PersistenceBlob...)
	return &c
}

// OnSelfServer reports whether the account is authorized against a local server
func (a *Account) OnSelfServer() bool {
	return a.CurrentServerID == SelfServerID
}

// AccountUpdate carries the partial fields of a store update.
// Nil fields are left unchanged.
type AccountUpdate struct {
	SessionToken       *string
	SessionTokenExpiry *time.Time
	CurrentServerID    *string
	PersistenceBlob    []byte
}

// Apply returns a copy of a with the update's fields applied
func (u AccountUpdate) Apply(a *Account) *Account {
	c := a.Clone()
	if u.SessionToken != nil {
		c.SessionToken = *u.SessionToken
	}
	if u.SessionTokenExpiry != nil {
		c.SessionTokenExpiry = *u.SessionTokenExpiry
	}
	if u.CurrentServerID != nil {
		c.CurrentServerID = *u.CurrentServerID
	}
	if u.PersistenceBlob != nil {
		c.PersistenceBlob = append([]byte(nil), u.PersistenceBlob...)
	}
	return c
}

// SessionToken is an issued session credential and its absolute expiry
type SessionToken struct {
	Value     string
	ExpiresAt time.Time
}
