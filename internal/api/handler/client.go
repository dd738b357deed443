package handler

import (
	"net/http"

	"github.com/lolPants/NorthstarMasterServer/internal/api/request"
	"github.com/lolPants/NorthstarMasterServer/internal/api/response"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
)

// ClientHandler handles endpoints called by game clients
type ClientHandler struct {
	coordinator *handshake.Coordinator
}

// NewClientHandler creates a new client handler
func NewClientHandler(coordinator *handshake.Coordinator) *ClientHandler {
	return &ClientHandler{coordinator: coordinator}
}

// OriginAuth handles GET /client/origin_auth
func (h *ClientHandler) OriginAuth(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	id := q.RequiredString("id")
	proof := q.RequiredString("token")
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}

	result := h.coordinator.OriginAuth(r.Context(), id, proof)
	response.Result(w, result.Status, response.OriginAuthFromResult(result))
}

// AuthWithServer handles POST /client/auth_with_server
func (h *ClientHandler) AuthWithServer(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	id := q.RequiredString("id")
	serverID := q.RequiredString("server")
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}

	result := h.coordinator.AuthWithServer(r.Context(), id, q.String("playerToken"), serverID, q.String("password"))
	response.Result(w, result.Status, response.ServerJoinFromResult(result))
}

// AuthWithSelf handles POST /client/auth_with_self
func (h *ClientHandler) AuthWithSelf(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	id := q.RequiredString("id")
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}

	result := h.coordinator.AuthWithSelf(r.Context(), id, q.String("playerToken"))
	response.Result(w, result.Status, response.SelfJoinFromResult(result))
}

// Servers handles GET /client/servers
func (h *ClientHandler) Servers(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.ServersFromModel(h.coordinator.Servers()))
}
