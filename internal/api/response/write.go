package response

import (
	"encoding/json"
	"net/http"

	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Result writes a protocol response. Rejections are still 200s; only
// dependency failures change the status code.
func Result(w http.ResponseWriter, status handshake.Status, data any) {
	code := http.StatusOK
	if status.Outcome == handshake.OutcomeUnavailable {
		code = http.StatusServiceUnavailable
	}
	JSON(w, code, data)
}
