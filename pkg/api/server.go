package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cbodonnell/menagerie/pkg/api/handlers"
	"github.com/cbodonnell/menagerie/pkg/api/middleware"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/gorilla/mux"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	// Host defaults to the loopback interface; the API is a local debug
	// surface and has no authentication.
	Host string
	Port int
	TLS  *TLSConfig
	Game handlers.Game
	// AllowedOrigins lists the browser origins, like http://localhost:3000,
	// that may call the API.
	AllowedOrigins []string
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	host := opts.Host
	if host == "" {
		host = "127.0.0.1"
	}
	server := &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(opts.Port)),
		Handler:           NewRouter(opts.Game, opts.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// NewRouter registers every API route.
func NewRouter(game handlers.Game, allowedOrigins []string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging, middleware.CORS(allowedOrigins), middleware.RequireJSON)

	r.HandleFunc("/state", handlers.HandleGetState(game)).Methods(http.MethodGet)
	r.HandleFunc("/story-flags/{flag}", handlers.HandleGetStoryFlag(game)).Methods(http.MethodGet)
	r.HandleFunc("/shops/{shopID}/unlocked", handlers.HandleGetShopUnlocked(game)).Methods(http.MethodGet)
	r.HandleFunc("/shops/{shopID}/open", handlers.HandleOpenShop(game)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/shops/{shopID}/trades", handlers.HandleListShopTrades(game)).Methods(http.MethodGet)
	r.HandleFunc("/transactions", handlers.HandleListTransactions(game)).Methods(http.MethodGet)
	r.HandleFunc("/creatures", handlers.HandleListCreatures(game)).Methods(http.MethodGet)
	r.HandleFunc("/creatures/{creatureID}/lineage", handlers.HandleGetLineage(game)).Methods(http.MethodGet)
	r.HandleFunc("/actions/{type}", handlers.HandleDispatch(game)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/saves", handlers.HandleListSaves(game)).Methods(http.MethodGet)
	r.HandleFunc("/saves/{slot}", handlers.HandleSave(game)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/saves/{slot}/load", handlers.HandleLoad(game)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/stream", handlers.HandleStream(game, originHosts(allowedOrigins))).Methods(http.MethodGet)
	return r
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// originHosts turns origins into the host patterns the websocket upgrade
// matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			log.Warn("Ignoring invalid allowed origin %q", origin)
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
