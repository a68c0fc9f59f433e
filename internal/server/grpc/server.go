// Package grpc exposes the operation router as the gRPC method
// teamflow.v1.TeamFlow/Call, carried with a JSON codec.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDHeader = "x-request-id"

// Handler runs a decoded request. *api.Router implements it.
type Handler interface {
	Handle(ctx context.Context, req api.Request) api.Response
}

type Server struct {
	address   string
	handler   Handler
	health    *health.Server
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, h Handler, secretKey string) *Server {
	return &Server{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		handler:   h,
		health:    health.NewServer(),
		jwtSecret: []byte(secretKey),
	}
}

// Call is the single RPC. Operation failures travel inside the Response;
// only authentication problems surface as gRPC status errors.
func (s *Server) Call(ctx context.Context, in *CallRequest) (*api.Response, error) {
	p, ok := api.PrincipalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	resp := s.handler.Handle(ctx, api.Request{
		Principal: p,
		Operation: in.Operation,
		Params:    in.Params,
		RequestID: requestID(ctx, in),
	})
	return &resp, nil
}

func requestID(ctx context.Context, in *CallRequest) string {
	if in.RequestID != "" {
		return in.RequestID
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeader); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}

// newGRPCServer builds the grpc.Server with the TeamFlow and health
// services registered.
func (s *Server) newGRPCServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	srv.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newGRPCServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
