// Package handshake runs the player and server protocols of the master
// server: identity to session, session to server join, self join,
// persistence write-back and server lifecycle calls.
package handshake

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/accounts"
	"github.com/lolPants/NorthstarMasterServer/internal/services/gameserver"
	"github.com/lolPants/NorthstarMasterServer/internal/services/oracle"
	"github.com/lolPants/NorthstarMasterServer/internal/services/registry"
	"github.com/lolPants/NorthstarMasterServer/internal/services/token"
)

// Oracle verifies identity proof tokens
type Oracle interface {
	Verify(ctx context.Context, playerID, proofToken string) (oracle.Verdict, error)
}

// RemoteAuth delivers join tokens to game servers
type RemoteAuth interface {
	AuthenticateIncomingPlayer(ctx context.Context, server model.GameServer, playerID, joinToken string, payload gameserver.Payload) error
}

// Config holds configuration for the coordinator
type Config struct {
	// RequireSessionToken enables identity and session token checks
	RequireSessionToken bool
}

// DefaultConfig returns default coordinator configuration
func DefaultConfig() Config {
	return Config{RequireSessionToken: true}
}

// Coordinator composes the account directory, server registry and external
// collaborators into the request-level protocols. No error escapes it: every
// operation returns a result carrying a Status.
type Coordinator struct {
	issuer    *token.Issuer
	directory *accounts.Directory
	registry  *registry.Registry
	oracle    Oracle
	remote    RemoteAuth
	cfg       Config
	logger    *slog.Logger
}

// New creates a new Coordinator
func New(
	issuer *token.Issuer,
	directory *accounts.Directory,
	registry *registry.Registry,
	oracle Oracle,
	remote RemoteAuth,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		issuer:    issuer,
		directory: directory,
		registry:  registry,
		oracle:    oracle,
		remote:    remote,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "handshake")),
	}
}

// OriginAuth exchanges an identity proof for a fresh session token
func (c *Coordinator) OriginAuth(ctx context.Context, playerID, proofToken string) OriginAuthResult {
	ctx = context.WithoutCancel(ctx)

	if c.cfg.RequireSessionToken {
		if strings.Contains(proofToken, "&") {
			return OriginAuthResult{Status: c.finish("origin_auth", playerID, model.ErrInvalidProofToken)}
		}

		verdict, err := c.oracle.Verify(ctx, playerID, proofToken)
		if err != nil {
			return OriginAuthResult{Status: c.finish("origin_auth", playerID, err)}
		}
		if !verdict.Authorized() {
			return OriginAuthResult{Status: c.finish("origin_auth", playerID, model.ErrMissingGameAccess)}
		}
	}

	account, err := c.directory.GetOrCreate(ctx, playerID)
	if err != nil {
		return OriginAuthResult{Status: c.finish("origin_auth", playerID, err)}
	}
	if account.IsBanned {
		return OriginAuthResult{Status: c.finish("origin_auth", playerID, model.ErrAccountBanned)}
	}

	account, err = c.directory.RefreshToken(ctx, account)
	if err != nil {
		return OriginAuthResult{Status: c.finish("origin_auth", playerID, err)}
	}

	return OriginAuthResult{Status: c.finish("origin_auth", playerID, nil), Token: account.SessionToken}
}

// AuthWithServer authorizes a player to join a registered game server
func (c *Coordinator) AuthWithServer(ctx context.Context, playerID, sessionToken, serverID, password string) ServerJoinResult {
	ctx = context.WithoutCancel(ctx)
	const op = "auth_with_server"

	server, found := c.registry.Get(serverID)
	if !found {
		return ServerJoinResult{Status: c.finish(op, playerID, model.ErrServerNotFound)}
	}
	if !registry.PasswordMatches(server, password) {
		return ServerJoinResult{Status: c.finish(op, playerID, model.ErrWrongPassword)}
	}

	account, err := c.authorizeSession(ctx, playerID, sessionToken)
	if err != nil {
		return ServerJoinResult{Status: c.finish(op, playerID, err)}
	}

	joinToken := c.issuer.IssueJoinToken()
	payload := gameserver.Payload{
		Blob:    account.PersistenceBlob,
		DiffIDs: server.PersistenceDiffIDs(),
	}

	if err := c.remote.AuthenticateIncomingPlayer(ctx, server, playerID, joinToken, payload); err != nil {
		return ServerJoinResult{Status: c.finish(op, playerID, err)}
	}

	if _, err := c.directory.SetCurrentServer(ctx, account, server.ID); err != nil {
		return ServerJoinResult{Status: c.finish(op, playerID, err)}
	}

	return ServerJoinResult{
		Status:    c.finish(op, playerID, nil),
		IP:        server.IP,
		Port:      server.Port,
		AuthToken: joinToken,
	}
}

// AuthWithSelf authorizes a player to host their own local server
func (c *Coordinator) AuthWithSelf(ctx context.Context, playerID, sessionToken string) SelfJoinResult {
	ctx = context.WithoutCancel(ctx)
	const op = "auth_with_self"

	account, err := c.authorizeSession(ctx, playerID, sessionToken)
	if err != nil {
		return SelfJoinResult{Status: c.finish(op, playerID, err)}
	}

	joinToken := c.issuer.IssueJoinToken()

	account, err = c.directory.SetCurrentServer(ctx, account, model.SelfServerID)
	if err != nil {
		return SelfJoinResult{Status: c.finish(op, playerID, err)}
	}

	return SelfJoinResult{
		Status:         c.finish(op, playerID, nil),
		ID:             account.ID,
		AuthToken:      joinToken,
		PersistentData: account.PersistenceBlob,
	}
}

// WritePersistence stores a blob sent back by the server the player is on.
// A blob of the wrong length is dropped without failing the call.
func (c *Coordinator) WritePersistence(ctx context.Context, playerID, serverID, callerIP string, blob []byte) PersistenceResult {
	ctx = context.WithoutCancel(ctx)
	const op = "write_persistence"

	// Runs against the stored account under its lock
	check := func(current *model.Account) error {
		if current.IsBanned {
			return model.ErrAccountBanned
		}
		if current.OnSelfServer() {
			return nil
		}
		server, found := c.registry.Get(serverID)
		if !found {
			return model.ErrServerNotFound
		}
		if callerIP != server.IP {
			return model.ErrOriginMismatch
		}
		if current.CurrentServerID != serverID {
			return model.ErrNotCurrentServer
		}
		return nil
	}

	if playerID == "" {
		return PersistenceResult{Status: c.finish(op, playerID, model.ErrAccountNotFound)}
	}
	_, err := c.directory.WritePersistence(ctx, &model.Account{ID: playerID}, blob, check)
	if errors.Is(err, model.ErrPersistenceSizeMismatch) {
		c.logger.Info("persistence write dropped",
			slog.String("player_id", playerID),
			slog.Int("size", len(blob)),
		)
		return PersistenceResult{Status: okStatus, Written: false}
	}
	if err != nil {
		return PersistenceResult{Status: c.finish(op, playerID, err)}
	}

	return PersistenceResult{Status: c.finish(op, playerID, nil), Written: true}
}

// Heartbeat refreshes a registered server
func (c *Coordinator) Heartbeat(ctx context.Context, serverID, callerIP string, playerCount int) HeartbeatResult {
	_, err := c.registry.Heartbeat(context.WithoutCancel(ctx), serverID, callerIP, playerCount)
	if err != nil {
		return HeartbeatResult{Status: c.finishServer("heartbeat", serverID, err)}
	}
	return HeartbeatResult{Status: okStatus}
}

// RegisterServer adds a game server to the registry
func (c *Coordinator) RegisterServer(ctx context.Context, desc model.ServerDescriptor) RegisterResult {
	server, err := c.registry.Register(context.WithoutCancel(ctx), desc)
	if err != nil {
		return RegisterResult{Status: c.finishServer("add_server", desc.ID, err)}
	}
	return RegisterResult{Status: okStatus, Server: server}
}

// RemoveServer removes a game server on behalf of its own origin
func (c *Coordinator) RemoveServer(ctx context.Context, serverID, callerIP string) RemoveResult {
	if err := c.registry.Remove(serverID, callerIP); err != nil {
		return RemoveResult{Status: c.finishServer("remove_server", serverID, err)}
	}
	return RemoveResult{Status: okStatus}
}

// Servers lists live servers
func (c *Coordinator) Servers() []model.GameServer {
	return c.registry.List()
}

// authorizeSession looks up the account and, when enforcement is on, checks
// the claimed session token
func (c *Coordinator) authorizeSession(ctx context.Context, playerID, sessionToken string) (*model.Account, error) {
	account, err := c.directory.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !c.cfg.RequireSessionToken {
		return account, nil
	}
	if sessionToken == "" || sessionToken != account.SessionToken {
		return nil, model.ErrInvalidSessionToken
	}
	if c.issuer.IsExpired(account.SessionTokenExpiry) {
		return nil, model.ErrSessionExpired
	}
	return account, nil
}

func (c *Coordinator) finish(op, playerID string, err error) Status {
	status := statusFor(err)
	c.log(status, op, slog.String("player_id", playerID))
	return status
}

func (c *Coordinator) finishServer(op, serverID string, err error) Status {
	status := statusFor(err)
	c.log(status, op, slog.String("server_id", serverID))
	return status
}

func (c *Coordinator) log(status Status, op string, subject slog.Attr) {
	switch status.Outcome {
	case OutcomeRejected:
		c.logger.Info("request rejected",
			slog.String("op", op),
			subject,
			slog.String("reason", status.Reason),
		)
	case OutcomeUnavailable:
		c.logger.Warn("dependency unavailable",
			slog.String("op", op),
			subject,
			slog.String("error", status.Err.Error()),
		)
	}
}
