package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/mocks"
	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/random"
)

type IssuerSuite struct {
	suite.Suite
	clock  *mocks.MockClock
	random *mocks.MockRandom
	issuer *Issuer
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.issuer = New(s.clock, s.random, Config{SessionTTL: time.Hour})
}

func (s *IssuerSuite) TestIssueSetsExpiryOneTTLAhead() {
	s.random.QueueHex("0123456789abcdef0123456789abcdef")

	tok := s.issuer.Issue()
	s.Equal("0123456789abcdef0123456789abcdef", tok.Value)
	s.Equal(s.clock.Now().Add(time.Hour), tok.ExpiresAt)
}

func (s *IssuerSuite) TestFreshTokenIsNotExpired() {
	tok := s.issuer.Issue()
	s.False(s.issuer.IsExpired(tok.ExpiresAt))
}

func (s *IssuerSuite) TestExpiredExactlyAtExpiry() {
	tok := s.issuer.Issue()

	s.clock.Advance(time.Hour - time.Nanosecond)
	s.False(s.issuer.IsExpired(tok.ExpiresAt))

	s.clock.Advance(time.Nanosecond)
	s.True(s.issuer.IsExpired(tok.ExpiresAt))

	s.clock.Advance(time.Minute)
	s.True(s.issuer.IsExpired(tok.ExpiresAt))
}

func (s *IssuerSuite) TestJoinTokenIsTruncated() {
	s.random.QueueHex("0123456789abcdef0123456789abcdef")

	tok := s.issuer.IssueJoinToken()
	s.Equal("0123456789abcdef0123456789abcde", tok)
	s.Len(tok, MaxJoinTokenLength)
}

func (s *IssuerSuite) TestZeroTTLFallsBackToDefault() {
	issuer := New(s.clock, s.random, Config{})
	s.Equal(DefaultConfig().SessionTTL, issuer.TTL())
}

func TestCryptoRandomTokens(t *testing.T) {
	issuer := New(mocks.NewMockClock(time.Now()), random.New(), DefaultConfig())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := issuer.Issue().Value
		if len(tok) != 32 {
			t.Fatalf("session token length = %d, want 32", len(tok))
		}
		if seen[tok] {
			t.Fatalf("duplicate session token %q", tok)
		}
		seen[tok] = true

		if j := issuer.IssueJoinToken(); len(j) != MaxJoinTokenLength {
			t.Fatalf("join token length = %d, want %d", len(j), MaxJoinTokenLength)
		}
	}
}
