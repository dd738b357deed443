package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

func newCmdOutput(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	case []Server:
		o.printServers(v)
	case OriginAuthResult:
		o.printEnvelope(v.Envelope)
		o.printf("Token: %s\n", v.Token)
	case SelfJoinResult:
		o.printEnvelope(v.Envelope)
		o.printf("Player: %s\n", v.ID)
		o.printf("Auth token: %s\n", v.AuthToken)
		o.printf("Persistent data: %d bytes\n", len(v.PersistentData))
	case ServerJoinResult:
		o.printEnvelope(v.Envelope)
		o.printf("Address: %s:%d\n", v.IP, v.Port)
		o.printf("Auth token: %s\n", v.AuthToken)
	case Envelope:
		o.printEnvelope(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printEnvelope(e Envelope) {
	if e.Success {
		o.printf("OK\n")
		return
	}
	retry := ""
	if e.Retryable {
		retry = " (retryable)"
	}
	o.printf("Failed: %s%s\n", e.Reason, retry)
}

func (o *Output) printServers(servers []Server) {
	if len(servers) == 0 {
		o.printf("No servers\n")
		return
	}
	for _, s := range servers {
		lock := ""
		if s.HasPassword {
			lock = " [password]"
		}
		o.printf("%s  %s  %d/%d  %s/%s%s\n", s.ID, s.Name, s.PlayerCount, s.MaxPlayers, s.Map, s.Playlist, lock)
		if len(s.ModInfo.Mods) > 0 {
			names := make([]string, len(s.ModInfo.Mods))
			for i, m := range s.ModInfo.Mods {
				names[i] = m.Name + "@" + m.Version
			}
			o.printf("    mods: %s\n", strings.Join(names, ", "))
		}
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// Envelope is the outcome part of every protocol response
type Envelope struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Err turns a failed envelope into a command error
func (e Envelope) Err() error {
	if e.Success {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRequestFailed, e.Reason)
}

// OriginAuthResult response type
type OriginAuthResult struct {
	Envelope
	Token string `json:"token,omitempty"`
}

// SelfJoinResult response type
type SelfJoinResult struct {
	Envelope
	ID             string  `json:"id,omitempty"`
	AuthToken      string  `json:"authToken,omitempty"`
	PersistentData []int64 `json:"persistentData,omitempty"`
}

// ServerJoinResult response type
type ServerJoinResult struct {
	Envelope
	IP        string `json:"ip,omitempty"`
	Port      int    `json:"port,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
}

// Server response type
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

// Mod response type
type Mod struct {
	Name             string `json:"Name"`
	Version          string `json:"Version"`
	RequiredOnClient bool   `json:"RequiredOnClient"`
}
