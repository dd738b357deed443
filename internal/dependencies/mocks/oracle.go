package mocks

import (
	"context"
	"sync"

	"github.com/lolPants/NorthstarMasterServer/internal/services/oracle"
)

// MockOracle is a scriptable identity oracle.
// By default every proof is accepted.
type MockOracle struct {
	mu      sync.Mutex
	verdict oracle.Verdict
	err     error
	calls   []OracleCall
}

// OracleCall records one Verify call
type OracleCall struct {
	PlayerID   string
	ProofToken string
}

// NewMockOracle creates an oracle that accepts everything
func NewMockOracle() *MockOracle {
	return &MockOracle{verdict: oracle.Verdict{HasOnlineAccess: true, OwnsGame: true}}
}

func (o *MockOracle) Verify(ctx context.Context, playerID, proofToken string) (oracle.Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, OracleCall{PlayerID: playerID, ProofToken: proofToken})
	return o.verdict, o.err
}

// SetVerdict changes the answer for subsequent calls
func (o *MockOracle) SetVerdict(v oracle.Verdict) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdict = v
}

// SetError makes subsequent calls fail with err
func (o *MockOracle) SetError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// Calls returns the calls made so far
func (o *MockOracle) Calls() []OracleCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]OracleCall(nil), o.calls...)
}
