package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/mocks"
	"github.com/lolPants/NorthstarMasterServer/internal/services/accounts"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
	"github.com/lolPants/NorthstarMasterServer/internal/services/registry"
	"github.com/lolPants/NorthstarMasterServer/internal/storage/memory"
	"github.com/lolPants/NorthstarMasterServer/internal/testutil"
)

// TestBlobSize is the persistence blob length used by test apps
const TestBlobSize = 64

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock      *mocks.MockClock
	MockRandom     *mocks.MockRandom
	MockOracle     *mocks.MockOracle
	MockRemoteAuth *mocks.MockRemoteAuth
	MemoryStore    *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and session token enforcement on
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(handshake.DefaultConfig())
}

// NewTestAppWithConfig creates a test App with the given coordinator config
func NewTestAppWithConfig(handshakeCfg handshake.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockOracle := mocks.NewMockOracle()
	mockRemote := mocks.NewMockRemoteAuth()

	cfg := Config{
		Accounts: accounts.Config{BlobSize: TestBlobSize},
		Registry: registry.Config{
			LivenessWindow: 30 * time.Second,
			Retention:      5 * time.Minute,
			PasswordCost:   bcrypt.MinCost,
		},
		Handshake: &handshakeCfg,
	}

	app := newWithDependencies(store, mockClock, mockRandom, mockOracle, mockRemote, cfg, testutil.NopLogger())

	return &TestApp{
		App:            app,
		MockClock:      mockClock,
		MockRandom:     mockRandom,
		MockOracle:     mockOracle,
		MockRemoteAuth: mockRemote,
		MemoryStore:    store,
	}
}
