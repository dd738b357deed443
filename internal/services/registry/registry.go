// Package registry tracks game servers that have announced themselves and
// are heartbeating.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/clock"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/token"
)

// maxPasswordLength is the longest input bcrypt will hash
const maxPasswordLength = 72

// Config holds configuration for the registry
type Config struct {
	// LivenessWindow is how long a heartbeat keeps a server live
	LivenessWindow time.Duration
	// Retention is how long a stale entry is kept so its own heartbeat can revive it
	Retention time.Duration
	// SweepInterval is the period of Run; zero disables background sweeping
	SweepInterval time.Duration
	// PasswordCost is the bcrypt cost for server passwords
	PasswordCost int
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		LivenessWindow: 30 * time.Second,
		Retention:      5 * time.Minute,
		SweepInterval:  30 * time.Second,
		PasswordCost:   bcrypt.DefaultCost,
	}
}

type slot struct {
	mu      sync.Mutex
	server  model.GameServer
	removed bool
}

// Registry is the in-memory table of game servers
type Registry struct {
	mu    sync.RWMutex
	slots map[string]*slot

	clock  clock.Clock
	issuer *token.Issuer
	cfg    Config
	logger *slog.Logger
}

// New creates a new Registry
func New(clock clock.Clock, issuer *token.Issuer, cfg Config, logger *slog.Logger) *Registry {
	defaults := DefaultConfig()
	if cfg.LivenessWindow <= 0 {
		cfg.LivenessWindow = defaults.LivenessWindow
	}
	if cfg.Retention < 0 {
		cfg.Retention = 0
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = defaults.PasswordCost
	}

	return &Registry{
		slots:  make(map[string]*slot),
		clock:  clock,
		issuer: issuer,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "registry")),
	}
}

// Register validates desc and inserts or replaces the server entry
func (r *Registry) Register(ctx context.Context, desc model.ServerDescriptor) (model.GameServer, error) {
	if err := validate(desc); err != nil {
		return model.GameServer{}, err
	}

	server := model.GameServer{
		ID:              desc.ID,
		Name:            desc.Name,
		Description:     desc.Description,
		Map:             desc.Map,
		Playlist:        desc.Playlist,
		IP:              desc.IP,
		Port:            desc.Port,
		AuthPort:        desc.AuthPort,
		MaxPlayers:      desc.MaxPlayers,
		ServerAuthToken: r.issuer.IssueServerAuthToken(),
		Mods:            append([]model.Mod(nil), desc.Mods...),
	}
	if server.ID == "" {
		server.ID = uuid.NewString()
	}

	if desc.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(desc.Password), r.cfg.PasswordCost)
		if err != nil {
			return model.GameServer{}, fmt.Errorf("%w: %v", model.ErrInvalidDescriptor, err)
		}
		server.HasPassword = true
		server.PasswordHash = hash
	}

	for {
		s := r.slotForWrite(server.ID)
		s.mu.Lock()
		if s.removed {
			s.mu.Unlock()
			continue
		}
		server.LastHeartbeat = r.clock.Now()
		s.server = server.Clone()
		s.mu.Unlock()
		break
	}

	r.logger.Info("server registered",
		slog.String("server_id", server.ID),
		slog.String("name", server.Name),
		slog.String("ip", server.IP),
		slog.Int("port", server.Port),
	)
	return server, nil
}

// Heartbeat refreshes a server's liveness. Only the server's own origin may
// heartbeat it. A retained stale entry is revived by its own heartbeat.
func (r *Registry) Heartbeat(ctx context.Context, id, sourceIP string, playerCount int) (model.GameServer, error) {
	if playerCount < 0 {
		return model.GameServer{}, fmt.Errorf("%w: negative player count", model.ErrInvalidDescriptor)
	}

	s := r.lookup(id)
	if s == nil {
		return model.GameServer{}, model.ErrServerNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return model.GameServer{}, model.ErrServerNotFound
	}
	if s.server.IP != sourceIP {
		return model.GameServer{}, model.ErrOriginMismatch
	}

	now := r.clock.Now()
	if !s.server.IsLive(now, r.cfg.LivenessWindow) {
		if !r.retained(s.server, now) {
			return model.GameServer{}, model.ErrServerNotFound
		}
		r.logger.Info("server revived", slog.String("server_id", id))
	}

	s.server.LastHeartbeat = now
	s.server.PlayerCount = playerCount
	return s.server.Clone(), nil
}

// Get returns a live server. Stale entries are never returned, whether or
// not the sweep has purged them yet.
func (r *Registry) Get(id string) (model.GameServer, bool) {
	s := r.lookup(id)
	if s == nil {
		return model.GameServer{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed || !s.server.IsLive(r.clock.Now(), r.cfg.LivenessWindow) {
		return model.GameServer{}, false
	}
	return s.server.Clone(), true
}

// List returns live servers, busiest first then by name
func (r *Registry) List() []model.GameServer {
	now := r.clock.Now()
	servers := make([]model.GameServer, 0)
	for _, s := range r.snapshot() {
		s.mu.Lock()
		if !s.removed && s.server.IsLive(now, r.cfg.LivenessWindow) {
			servers = append(servers, s.server.Clone())
		}
		s.mu.Unlock()
	}

	sort.Slice(servers, func(i, j int) bool {
		if servers[i].PlayerCount != servers[j].PlayerCount {
			return servers[i].PlayerCount > servers[j].PlayerCount
		}
		if servers[i].Name != servers[j].Name {
			return servers[i].Name < servers[j].Name
		}
		return servers[i].ID < servers[j].ID
	})
	return servers
}

// Remove deletes a server on behalf of its own origin
func (r *Registry) Remove(id, sourceIP string) error {
	s := r.lookup(id)
	if s == nil {
		return model.ErrServerNotFound
	}

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return model.ErrServerNotFound
	}
	if s.server.IP != sourceIP {
		s.mu.Unlock()
		return model.ErrOriginMismatch
	}
	s.removed = true
	s.mu.Unlock()

	r.drop(id, s)
	r.logger.Info("server removed", slog.String("server_id", id))
	return nil
}

// Sweep purges entries that have been stale for at least the retention period
// and returns how many were purged
func (r *Registry) Sweep() int {
	now := r.clock.Now()
	purged := 0
	for id, s := range r.snapshotByID() {
		s.mu.Lock()
		expired := !s.removed && !s.server.IsLive(now, r.cfg.LivenessWindow) && !r.retained(s.server, now)
		if expired {
			s.removed = true
		}
		s.mu.Unlock()

		if expired {
			r.drop(id, s)
			purged++
		}
	}

	if purged > 0 {
		r.logger.Info("swept stale servers",
			slog.Int("purged", purged),
			slog.Int("retained", r.Len()),
		)
	}
	return purged
}

// Run sweeps every SweepInterval until ctx is done
func (r *Registry) Run(ctx context.Context) {
	if r.cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of entries held, stale ones included
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// PasswordMatches reports whether password opens server. Servers without a
// password accept anything.
func PasswordMatches(server model.GameServer, password string) bool {
	if !server.HasPassword {
		return true
	}
	return bcrypt.CompareHashAndPassword(server.PasswordHash, []byte(password)) == nil
}

// retained reports whether a stale entry is still inside its retention period
func (r *Registry) retained(server model.GameServer, now time.Time) bool {
	staleSince := server.LastHeartbeat.Add(r.cfg.LivenessWindow)
	return now.Sub(staleSince) < r.cfg.Retention
}

func (r *Registry) lookup(id string) *slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slots[id]
}

// slotForWrite returns the live slot for id, creating one if needed
func (r *Registry) slotForWrite(id string) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		s = &slot{}
		r.slots[id] = s
	}
	return s
}

// drop deletes id from the table if it still maps to s
func (r *Registry) drop(id string, s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[id] == s {
		delete(r.slots, id)
	}
}

func (r *Registry) snapshot() []*slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slots := make([]*slot, 0, len(r.slots))
	for _, s := range r.slots {
		slots = append(slots, s)
	}
	return slots
}

func (r *Registry) snapshotByID() map[string]*slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slots := make(map[string]*slot, len(r.slots))
	for id, s := range r.slots {
		slots[id] = s
	}
	return slots
}

func validate(desc model.ServerDescriptor) error {
	var problems []error
	if net.ParseIP(desc.IP) == nil {
		problems = append(problems, fmt.Errorf("ip %q is not an address", desc.IP))
	}
	if desc.Port < 1 || desc.Port > 65535 {
		problems = append(problems, fmt.Errorf("port %d out of range", desc.Port))
	}
	if desc.AuthPort < 1 || desc.AuthPort > 65535 {
		problems = append(problems, fmt.Errorf("auth port %d out of range", desc.AuthPort))
	}
	if desc.Name == "" {
		problems = append(problems, errors.New("name is required"))
	}
	if desc.MaxPlayers < 0 {
		problems = append(problems, fmt.Errorf("max players %d is negative", desc.MaxPlayers))
	}
	if len(desc.Password) > maxPasswordLength {
		problems = append(problems, errors.New("password too long"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", model.ErrInvalidDescriptor, errors.Join(problems...))
	}
	return nil
}
