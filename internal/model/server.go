package model

import "time"

// Mod describes one mod a game server is running
type Mod struct {
	Name             string `json:"Name"`
	Version          string `json:"Version"`
	RequiredOnClient bool   `json:"RequiredOnClient"`
	// PersistenceDiffID names the pdiff the mod applies to persistent data, if any
	PersistenceDiffID string `json:"pdiff,omitempty"`
}

// ServerDescriptor is what a game server declares when it registers
type ServerDescriptor struct {
	ID          string // optional; assigned at registration when empty
	IP          string
	Port        int
	AuthPort    int
	Name        string
	Description string
	Map         string
	Playlist    string
	MaxPlayers  int
	Password    string
	Mods        []Mod
}

// GameServer is a registry entry for a game server
type GameServer struct {
	ID          string
	Name        string
	Description string
	Map         string
	Playlist    string

	IP       string
	Port     int
	AuthPort int // server-to-server join negotiation only

	MaxPlayers  int
	PlayerCount int

	HasPassword  bool
	PasswordHash []byte // bcrypt

	ServerAuthToken string
	Mods            []Mod

	LastHeartbeat time.Time
}

// Clone returns a deep copy of the server record
func (s GameServer) Clone() GameServer {
	c := s
	c.PasswordHash = append([]byte(nil), s.PasswordHash...)
	c.Mods = append([]Mod(nil), s.Mods...)
	return c
}

// IsLive reports whether the server heartbeated within window of now
func (s GameServer) IsLive(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastHeartbeat) < window
}

// PersistenceDiffIDs returns the distinct diff ids requested by the server's mods,
// in mod order
func (s GameServer) PersistenceDiffIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range s.Mods {
		if m.PersistenceDiffID == "" || seen[m.PersistenceDiffID] {
			continue
		}
		seen[m.PersistenceDiffID] = true
		ids = append(ids, m.PersistenceDiffID)
	}
	return ids
}
