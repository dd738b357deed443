package mocks

import (
	"context"
	"sync"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/gameserver"
)

// MockRemoteAuth stands in for game server auth endpoints.
// By default every player is acknowledged.
type MockRemoteAuth struct {
	mu    sync.Mutex
	err   error
	calls []RemoteAuthCall
}

// RemoteAuthCall records one AuthenticateIncomingPlayer call
type RemoteAuthCall struct {
	Server    model.GameServer
	PlayerID  string
	JoinToken string
	Payload   gameserver.Payload
}

// NewMockRemoteAuth creates a remote that acknowledges everything
func NewMockRemoteAuth() *MockRemoteAuth {
	return &MockRemoteAuth{}
}

func (m *MockRemoteAuth) AuthenticateIncomingPlayer(ctx context.Context, server model.GameServer, playerID, joinToken string, payload gameserver.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, RemoteAuthCall{
		Server:    server,
		PlayerID:  playerID,
		JoinToken: joinToken,
		Payload:   payload,
	})
	return m.err
}

// SetError makes subsequent calls fail with err
func (m *MockRemoteAuth) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the calls made so far
func (m *MockRemoteAuth) Calls() []RemoteAuthCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RemoteAuthCall(nil), m.calls...)
}
