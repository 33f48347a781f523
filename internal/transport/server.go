package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/logging"
	"flagfold/internal/registry"
	"flagfold/internal/telemetry"
	"flagfold/internal/transform"
)

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
}

// StartServer listens on addr and registers the transformer and health
// services. Call Serve to accept connections.
func StartServer(addr string, svc *Service) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewServer(lis, svc), nil
}

// NewServer wires the services onto an existing listener.
func NewServer(lis net.Listener, svc *Service) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		lis:    lis,
	}
	apiv1.RegisterTransformerServer(s.grpc, svc)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(apiv1.Transformer_ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Service answers Transform calls with a shared engine. Options sent by the
// client are applied on top of the server defaults.
type Service struct {
	engine   *transform.Engine
	defaults registry.Options
	cache    *resultCache
}

func NewService(e *transform.Engine, defaults registry.Options, cacheSize int) (*Service, error) {
	c, err := newResultCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{engine: e, defaults: defaults, cache: c}, nil
}

func (s *Service) Transform(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	start := time.Now()
	key, ok := s.cache.key(in, s.defaults)
	if ok {
		if e, hit := s.cache.get(key); hit {
			telemetry.CacheLookup(true)
			telemetry.Observe(e.summary, nil, time.Since(start))
			return e.out, nil
		}
		telemetry.CacheLookup(false)
	}

	req, err := apiv1.UnmarshalRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.engine.Transform(req.Tree, s.defaults.Merge(req.Options))
	if err != nil {
		telemetry.Observe(nil, err, time.Since(start))
		logging.L().Warn("transport: transform failed", "file", req.Filename, "err", err)
		return nil, toStatus(err)
	}
	resp := res.Response(req.Tree)
	telemetry.Observe(resp, nil, time.Since(start))
	out, err := resp.Marshal()
	if err != nil {
		return nil, toStatus(err)
	}
	if ok {
		s.cache.add(key, out, resp)
	}
	return out, nil
}

func toStatus(err error) error {
	if errors.Is(err, transform.ErrMalformedTree) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
