package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lolPants/NorthstarMasterServer/internal/api/handler"
	"github.com/lolPants/NorthstarMasterServer/internal/api/middleware"
	sharedmw "github.com/lolPants/NorthstarMasterServer/internal/middleware"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Coordinator *handshake.Coordinator
	// TrustProxyHeaders resolves the caller's address from CF-Connecting-IP
	// and X-Forwarded-For instead of the connection
	TrustProxyHeaders bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = middleware.NotFound()
	r.MethodNotAllowedHandler = middleware.MethodNotAllowed()

	clientHandler := handler.NewClientHandler(cfg.Coordinator)
	serverHandler := handler.NewServerHandler(cfg.Coordinator)
	accountsHandler := handler.NewAccountsHandler(cfg.Coordinator)

	r.Use(sharedmw.ClientIP(cfg.TrustProxyHeaders))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(sharedmw.Logging(cfg.Logger))

	client := r.PathPrefix("/client").Subrouter()
	client.HandleFunc("/origin_auth", clientHandler.OriginAuth).Methods(http.MethodGet)
	client.HandleFunc("/auth_with_server", clientHandler.AuthWithServer).Methods(http.MethodPost)
	client.HandleFunc("/auth_with_self", clientHandler.AuthWithSelf).Methods(http.MethodPost)
	client.HandleFunc("/servers", clientHandler.Servers).Methods(http.MethodGet)

	server := r.PathPrefix("/server").Subrouter()
	server.HandleFunc("/add_server", serverHandler.AddServer).Methods(http.MethodPost)
	server.HandleFunc("/heartbeat", serverHandler.Heartbeat).Methods(http.MethodPost)
	server.HandleFunc("/remove_server", serverHandler.RemoveServer).Methods(http.MethodDelete)

	accounts := r.PathPrefix("/accounts").Subrouter()
	accounts.HandleFunc("/write_persistence", accountsHandler.WritePersistence).Methods(http.MethodPost)

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
