// Package httpapi serves the operation router over HTTP:
// POST /api/v1/ops/{operation} with a Bearer token, plus GET /api/health.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

// Handler runs a decoded request. *api.Router implements it.
type Handler interface {
	Handle(ctx context.Context, req api.Request) api.Response
}

// Pinger reports storage reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address   string
	handler   Handler
	db        Pinger
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, h Handler, db Pinger, secretKey string) *Server {
	return &Server{
		address:   a,
		logger:    l.With("module", "http_server"),
		handler:   h,
		db:        db,
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the route table with its middleware chain.
func (s *Server) Router() *mux.Router {
	root := mux.NewRouter()
	root.Use(s.requestID, s.recoverer)

	root.HandleFunc("/api/health", s.health).Methods(http.MethodGet)

	ops := root.PathPrefix("/api/v1/ops").Subrouter()
	ops.Use(s.authenticate)
	ops.HandleFunc("/{operation}", s.call).Methods(http.MethodPost)

	return root
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
		if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
