package response

import (
	"encoding/json"
	"strconv"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
)

// Envelope carries the outcome fields every protocol response starts with
type Envelope struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// EnvelopeFromStatus converts a coordinator status
func EnvelopeFromStatus(s handshake.Status) Envelope {
	return Envelope{
		Success:   s.Success(),
		Reason:    s.Reason,
		Retryable: s.Retryable(),
	}
}

// ByteArray encodes as a JSON array of numbers, the form game clients read
// persistent data in
type ByteArray []byte

// MarshalJSON implements json.Marshaler
func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, len(b)*4+2)
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var values []uint8
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*b = values
	return nil
}

// OriginAuth is the response for /client/origin_auth
type OriginAuth struct {
	Envelope
	Token string `json:"token,omitempty"`
}

// OriginAuthFromResult converts a coordinator result
func OriginAuthFromResult(r handshake.OriginAuthResult) OriginAuth {
	return OriginAuth{Envelope: EnvelopeFromStatus(r.Status), Token: r.Token}
}

// ServerJoin is the response for /client/auth_with_server
type ServerJoin struct {
	Envelope
	IP        string `json:"ip,omitempty"`
	Port      int    `json:"port,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
}

// ServerJoinFromResult converts a coordinator result
func ServerJoinFromResult(r handshake.ServerJoinResult) ServerJoin {
	return ServerJoin{
		Envelope:  EnvelopeFromStatus(r.Status),
		IP:        r.IP,
		Port:      r.Port,
		AuthToken: r.AuthToken,
	}
}

// SelfJoin is the response for /client/auth_with_self
type SelfJoin struct {
	Envelope
	ID             string    `json:"id,omitempty"`
	AuthToken      string    `json:"authToken,omitempty"`
	PersistentData ByteArray `json:"persistentData,omitempty"`
}

// SelfJoinFromResult converts a coordinator result
func SelfJoinFromResult(r handshake.SelfJoinResult) SelfJoin {
	return SelfJoin{
		Envelope:       EnvelopeFromStatus(r.Status),
		ID:             r.ID,
		AuthToken:      r.AuthToken,
		PersistentData: r.PersistentData,
	}
}

// AddServer is the response for /server/add_server
type AddServer struct {
	Envelope
	ID              string `json:"id,omitempty"`
	ServerAuthToken string `json:"serverAuthToken,omitempty"`
}

// AddServerFromResult converts a coordinator result
func AddServerFromResult(r handshake.RegisterResult) AddServer {
	resp := AddServer{Envelope: EnvelopeFromStatus(r.Status)}
	if r.Success() {
		resp.ID = r.Server.ID
		resp.ServerAuthToken = r.Server.ServerAuthToken
	}
	return resp
}

// WritePersistence is the response for /accounts/write_persistence.
// Written is only present on success.
type WritePersistence struct {
	Envelope
	Written *bool `json:"written,omitempty"`
}

// WritePersistenceFromResult converts a coordinator result
func WritePersistenceFromResult(r handshake.PersistenceResult) WritePersistence {
	resp := WritePersistence{Envelope: EnvelopeFromStatus(r.Status)}
	if r.Success() {
		written := r.Written
		resp.Written = &written
	}
	return resp
}

// Mod is a mod entry in the server browser
type Mod struct {
	Name             string `json:"Name"`
	Version          string `json:"Version"`
	RequiredOnClient bool   `json:"RequiredOnClient"`
}

// Server is a server browser entry. Addresses, auth ports and credentials
// are never listed.
type Server struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Map         string `json:"map"`
	Playlist    string `json:"playlist"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	HasPassword bool   `json:"hasPassword"`
	ModInfo     struct {
		Mods []Mod `json:"Mods"`
	} `json:"modInfo"`
}

// ServerFromModel converts a registry entry
func ServerFromModel(s model.GameServer) Server {
	out := Server{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Map:         s.Map,
		Playlist:    s.Playlist,
		PlayerCount: s.PlayerCount,
		MaxPlayers:  s.MaxPlayers,
		HasPassword: s.HasPassword,
	}
	out.ModInfo.Mods = make([]Mod, len(s.Mods))
	for i, m := range s.Mods {
		out.ModInfo.Mods[i] = Mod{Name: m.Name, Version: m.Version, RequiredOnClient: m.RequiredOnClient}
	}
	return out
}

// ServersFromModel converts a registry listing, never returning nil
func ServersFromModel(servers []model.GameServer) []Server {
	out := make([]Server, len(servers))
	for i, s := range servers {
		out[i] = ServerFromModel(s)
	}
	return out
}
