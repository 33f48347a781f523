package transform

// Client wraps an engine (over gRPC or in-process) and exposes a uniform API.
// Hosts can swap transport implementations behind this interface.
import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/registry"
)

type Client interface {
	Health(ctx context.Context) error
	Transform(ctx context.Context, req *apiv1.Request) (*apiv1.Response, error)
	Close() error
}

// GRPCClient talks to a `flagfold serve` instance.
type GRPCClient struct {
	conn   *grpc.ClientConn
	svc    apiv1.TransformerClient
	health healthpb.HealthClient
}

func NewGRPCClient(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		conn:   conn,
		svc:    apiv1.NewTransformerClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: apiv1.Transformer_ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("transform: service status %s", resp.GetStatus())
	}
	return nil
}

func (c *GRPCClient) Transform(ctx context.Context, req *apiv1.Request) (*apiv1.Response, error) {
	in, err := req.Marshal()
	if err != nil {
		return nil, err
	}
	out, err := c.svc.Transform(ctx, in)
	if err != nil {
		return nil, err
	}
	return apiv1.UnmarshalResponse(out)
}

func (c *GRPCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// InProcessClient adapts an engine compiled into the host. The request tree
// is mutated in place and returned as the response tree.
type InProcessClient struct {
	engine *Engine
}

func NewInProcessClient(e *Engine) *InProcessClient { return &InProcessClient{engine: e} }

func (c *InProcessClient) Health(context.Context) error { return nil }

func (c *InProcessClient) Transform(ctx context.Context, req *apiv1.Request) (*apiv1.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.engine.Transform(req.Tree, registry.Options(req.Options))
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", req.Filename, err)
	}
	return res.Response(req.Tree), nil
}

func (c *InProcessClient) Close() error { return nil }
