// Package oracle verifies identity proof tokens against the external identity service.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
)

// Config holds configuration for the oracle client
type Config struct {
	URL string
	// ProductMarker must appear in the store URI for the player to own the game
	ProductMarker string
	Timeout       time.Duration

	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the production oracle settings
func DefaultConfig() Config {
	return Config{
		URL:               "https://r2-pc.stryder.respawn.com/nucleus-oauth.php",
		ProductMarker:     "titanfall-2",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// Verdict is the oracle's answer for one player
type Verdict struct {
	HasOnlineAccess bool
	OwnsGame        bool
}

// Authorized reports whether the player may be issued a session
func (v Verdict) Authorized() bool {
	return v.HasOnlineAccess && v.OwnsGame
}

type response struct {
	HasOnlineAccess flag   `json:"hasOnlineAccess"`
	StoreURI        string `json:"storeUri"`
}

// flag accepts "1"/"0", 1/0 and true/false
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("unexpected flag value %s", data)
	}
	return nil
}

// Client calls the identity oracle
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates an oracle client with its own HTTP client
func New(cfg Config, logger *slog.Logger) *Client {
	return NewWithHTTPClient(cfg, &http.Client{}, logger)
}

// NewWithHTTPClient creates an oracle client using an existing HTTP client
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.ProductMarker == "" {
		cfg.ProductMarker = defaults.ProductMarker
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:     logger.With(slog.String("component", "oracle")),
	}
}

// Verify asks the oracle whether proofToken belongs to playerID.
// A malformed player id is a rejection; every failure to get an answer is
// reported as a model.UnavailableError.
func (c *Client) Verify(ctx context.Context, playerID, proofToken string) (Verdict, error) {
	numericID, err := strconv.ParseUint(playerID, 10, 64)
	if err != nil {
		return Verdict{}, model.ErrInvalidProofToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return Verdict{}, model.Unavailable("oracle rate limit", err)
	}

	params := url.Values{}
	params.Set("qt", "origin-requesttoken")
	params.Set("type", "server_token")
	params.Set("code", proofToken)
	params.Set("forceTrial", "0")
	params.Set("proto", "0")
	params.Set("json", "1")
	params.Set("env", "production")
	params.Set("userId", strings.ToUpper(strconv.FormatUint(numericID, 16)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return Verdict{}, model.Unavailable("oracle request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("oracle request failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return Verdict{}, model.Unavailable("oracle request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Verdict{}, model.Unavailable("oracle request", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Verdict{}, model.Unavailable("oracle response", err)
	}

	verdict := Verdict{
		HasOnlineAccess: bool(body.HasOnlineAccess),
		OwnsGame:        strings.Contains(body.StoreURI, c.cfg.ProductMarker),
	}
	c.logger.Debug("oracle verdict",
		slog.String("player_id", playerID),
		slog.Bool("has_online_access", verdict.HasOnlineAccess),
		slog.Bool("owns_game", verdict.OwnsGame),
	)
	return verdict, nil
}
