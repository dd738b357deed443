package handler

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/lolPants/NorthstarMasterServer/internal/api/request"
	"github.com/lolPants/NorthstarMasterServer/internal/api/response"
	"github.com/lolPants/NorthstarMasterServer/internal/middleware"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
)

// MaxPersistenceUpload bounds persistence upload bodies
const MaxPersistenceUpload = 1 << 20

// AccountsHandler handles account write-back endpoints
type AccountsHandler struct {
	coordinator *handshake.Coordinator
}

// NewAccountsHandler creates a new accounts handler
func NewAccountsHandler(coordinator *handshake.Coordinator) *AccountsHandler {
	return &AccountsHandler{coordinator: coordinator}
}

// WritePersistence handles POST /accounts/write_persistence
func (h *AccountsHandler) WritePersistence(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	id := q.RequiredString("id")
	serverID := q.String("serverId")
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPersistenceUpload)

	var blob []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		data, err := multipartPart(r, "pdata")
		if err != nil {
			WriteError(w, err)
			return
		}
		blob = data
	} else {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, bodyError(err))
			return
		}
		blob = data
	}

	result := h.coordinator.WritePersistence(r.Context(), id, serverID, middleware.GetClientIP(r.Context()), blob)
	response.Result(w, result.Status, response.WritePersistenceFromResult(result))
}
