package token

import (
	"time"

	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/clock"
	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/random"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
)

const (
	// tokenBytes gives session and server tokens 128 bits of entropy
	tokenBytes = 16

	// MaxJoinTokenLength is the longest join token the game client accepts
	// as a server filter
	MaxJoinTokenLength = 31
)

// Config holds configuration for the token issuer
type Config struct {
	SessionTTL time.Duration
}

// DefaultConfig returns default issuer configuration
func DefaultConfig() Config {
	return Config{
		SessionTTL: 24 * time.Hour,
	}
}

// Issuer generates session, join and server tokens
type Issuer struct {
	clock  clock.Clock
	random random.Random
	ttl    time.Duration
}

// New creates a new Issuer
func New(clock clock.Clock, random random.Random, cfg Config) *Issuer {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultConfig().SessionTTL
	}
	return &Issuer{
		clock:  clock,
		random: random,
		ttl:    cfg.SessionTTL,
	}
}

// Issue returns a fresh session token expiring one TTL from now
func (i *Issuer) Issue() model.SessionToken {
	return model.SessionToken{
		Value:     i.random.Hex(tokenBytes),
		ExpiresAt: i.clock.Now().Add(i.ttl),
	}
}

// IssueJoinToken returns a one-time token for a single server join.
// It is only valid for the lifetime of the join handshake that issued it.
func (i *Issuer) IssueJoinToken() string {
	t := i.random.Hex(tokenBytes)
	if len(t) > MaxJoinTokenLength {
		t = t[:MaxJoinTokenLength]
	}
	return t
}

// IssueServerAuthToken returns the shared secret a game server uses to prove
// registry membership to its own auth endpoint
func (i *Issuer) IssueServerAuthToken() string {
	return i.random.Hex(tokenBytes)
}

// IsExpired reports whether expiry has been reached
func (i *Issuer) IsExpired(expiry time.Time) bool {
	return !i.clock.Now().Before(expiry)
}

// TTL returns the session token lifetime
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
