package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lolPants/NorthstarMasterServer/internal/api/request"
	"github.com/lolPants/NorthstarMasterServer/internal/api/response"
	"github.com/lolPants/NorthstarMasterServer/internal/middleware"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
)

const maxModInfoSize = 1 << 20

// ServerHandler handles endpoints called by game servers
type ServerHandler struct {
	coordinator *handshake.Coordinator
}

// NewServerHandler creates a new server handler
func NewServerHandler(coordinator *handshake.Coordinator) *ServerHandler {
	return &ServerHandler{coordinator: coordinator}
}

// AddServer handles POST /server/add_server
func (h *ServerHandler) AddServer(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	desc := model.ServerDescriptor{
		IP:          middleware.GetClientIP(r.Context()),
		Port:        q.RequiredInt("port"),
		AuthPort:    q.RequiredInt("authPort"),
		Name:        q.RequiredString("name"),
		Description: q.String("description"),
		Map:         q.String("map"),
		Playlist:    q.String("playlist"),
		MaxPlayers:  q.Int("maxPlayers", 0),
		Password:    q.String("password"),
	}
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxModInfoSize)
	info, err := readModInfo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	desc.Mods = info.Mods

	result := h.coordinator.RegisterServer(r.Context(), desc)
	response.Result(w, result.Status, response.AddServerFromResult(result))
}

// Heartbeat handles POST /server/heartbeat
func (h *ServerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	id := q.RequiredString("id")
	players := q.RequiredInt("playerCount")
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}
	if players < 0 {
		WriteError(w, NewInvalidRequestError("playerCount must not be negative"))
		return
	}

	result := h.coordinator.Heartbeat(r.Context(), id, middleware.GetClientIP(r.Context()), players)
	response.Result(w, result.Status, response.EnvelopeFromStatus(result.Status))
}

// RemoveServer handles DELETE /server/remove_server
func (h *ServerHandler) RemoveServer(w http.ResponseWriter, r *http.Request) {
	q := request.NewQuery(r)
	id := q.RequiredString("id")
	if err := q.Err(); err != nil {
		WriteError(w, err)
		return
	}

	result := h.coordinator.RemoveServer(r.Context(), id, middleware.GetClientIP(r.Context()))
	response.Result(w, result.Status, response.EnvelopeFromStatus(result.Status))
}

// readModInfo accepts the mod list as a JSON body or as a "modinfo" multipart
// part. An empty body means no mods.
func readModInfo(r *http.Request) (request.ModInfo, error) {
	var info request.ModInfo

	var raw []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		part, err := multipartPart(r, "modinfo")
		if err != nil {
			return info, err
		}
		raw = part
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return info, bodyError(err)
		}
		raw = body
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return info, nil
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return info, NewInvalidRequestError("invalid modinfo")
	}
	return info, nil
}

// multipartPart returns the named file or form value, falling back to the
// first uploaded file
func multipartPart(r *http.Request, name string) ([]byte, error) {
	if err := r.ParseMultipartForm(maxModInfoSize); err != nil {
		return nil, bodyError(err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if files := r.MultipartForm.File[name]; len(files) > 0 {
		return readFileHeader(files[0])
	}
	if values := r.MultipartForm.Value[name]; len(values) > 0 {
		return []byte(values[0]), nil
	}
	for _, files := range r.MultipartForm.File {
		if len(files) > 0 {
			return readFileHeader(files[0])
		}
	}
	return nil, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, bodyError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, bodyError(err)
	}
	return data, nil
}

// bodyError keeps oversize bodies distinguishable and turns every other read
// failure into a bad request
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return NewInvalidRequestError("unreadable request body")
}
