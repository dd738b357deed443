// Package gameserver calls back into registered game servers.
package gameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
)

// Config holds configuration for the auth client
type Config struct {
	Timeout time.Duration
}

// DefaultConfig returns default auth client configuration
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second}
}

// Payload is the persistence data forwarded to the game server for a joining player
type Payload struct {
	Blob    []byte
	DiffIDs []string
}

// AuthClient tells game servers which players to expect
type AuthClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an auth client with its own HTTP client
func New(cfg Config, logger *slog.Logger) *AuthClient {
	return NewWithHTTPClient(cfg, &http.Client{}, logger)
}

// NewWithHTTPClient creates an auth client using an existing HTTP client
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *AuthClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &AuthClient{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "gameserver")),
	}
}

// AuthenticateIncomingPlayer hands the join token and persistence payload to
// the game server. It returns model.ErrRemoteAuthRejected when the server
// answers success:false.
func (c *AuthClient) AuthenticateIncomingPlayer(ctx context.Context, server model.GameServer, playerID, joinToken string, payload Payload) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("id", playerID)
	params.Set("authToken", joinToken)
	params.Set("serverAuthToken", server.ServerAuthToken)
	for _, id := range payload.DiffIDs {
		params.Add("pdiff", id)
	}

	target := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(server.IP, strconv.Itoa(server.AuthPort)),
		Path:     "/authenticate_incoming_player",
		RawQuery: params.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload.Blob))
	if err != nil {
		return model.Unavailable("remote auth request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("remote auth failed",
			slog.String("server_id", server.ID),
			slog.String("error", err.Error()),
		)
		return model.Unavailable("remote auth request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Unavailable("remote auth request", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Success *bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Unavailable("remote auth response", err)
	}
	if body.Success == nil {
		return model.Unavailable("remote auth response", fmt.Errorf("missing success field"))
	}
	if !*body.Success {
		return model.ErrRemoteAuthRejected
	}
	return nil
}
