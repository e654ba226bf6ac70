package backend

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCConn is a gRPC connection handle to a model backend.
// It does NOT implement Backend because gRPC model APIs use generated
// clients instead of a generic call surface. Users should get the
// connection via Conn() and use generated clients; the engine itself only
// uses the standard health service for liveness probing.
type GRPCConn struct {
	name     string
	endpoint string
	conn     *grpc.ClientConn
}

// NewGRPCConn dials a gRPC model backend endpoint.
func NewGRPCConn(name, endpoint string) (*GRPCConn, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc endpoint %s: %w", target, err)
	}

	return &GRPCConn{
		name:     name,
		endpoint: endpoint,
		conn:     conn,
	}, nil
}

// Name returns the backend name.
func (c *GRPCConn) Name() string {
	return c.name
}

// Conn returns the underlying gRPC connection for generated clients.
func (c *GRPCConn) Conn() *grpc.ClientConn {
	return c.conn
}

// Healthy probes the backend via the standard gRPC health service.
func (c *GRPCConn) Healthy(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(probeCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("backend %s not serving: %s", c.name, resp.GetStatus())
	}
	return nil
}

// Close cleans up the connection.
func (c *GRPCConn) Close() error {
	return c.conn.Close()
}
