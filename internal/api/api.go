package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/order"
)

// Orders is the read side of the session controller.
type Orders interface {
	Snapshot() order.View
	Catalog() *order.Catalog
}

type API struct {
	router    *mux.Router
	orders    Orders
	jwtSecret []byte
	logger    *zap.Logger
	server    *http.Server
	addr      string
}

// New builds the HTTP API. Without a jwtSecret /api/session is not served.
func New(bind string, orders Orders, jwtSecret []byte, logger *zap.Logger) *API {
	api := &API{
		router:    mux.NewRouter(),
		orders:    orders,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
	api.setupRoutes()

	// Bearer tokens only, no cookies.
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}
	api.server = &http.Server{
		Addr:              bind,
		Handler:           cors.New(corsOptions).Handler(api.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	if len(a.jwtSecret) == 0 {
		a.logger.Info("API_JWT_SECRET not set, /api/session disabled")
		return
	}
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)
	protected.HandleFunc("/session", a.handleSession).Methods("GET")
}

// Mount registers an extra handler, e.g. the Telegram webhook.
func (a *API) Mount(path string, h http.Handler) {
	a.router.Handle(path, h).Methods("POST")
}

func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// Start binds the listener and serves in the background. Requests are
// accepted once it returns.
func (a *API) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	a.addr = ln.Addr().String()
	a.logger.Info("API server listening", zap.String("addr", a.addr))
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address once Start succeeded.
func (a *API) Addr() string {
	return a.addr
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
