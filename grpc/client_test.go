package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestClient_Check(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewClient("passthrough:///bufnet", 2*time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	hs.SetServingStatus("svc", healthpb.HealthCheckResponse_SERVING)
	ok, err := c.Check(context.Background(), "svc")
	require.NoError(t, err)
	assert.True(t, ok)

	hs.SetServingStatus("svc", healthpb.HealthCheckResponse_NOT_SERVING)
	ok, err = c.Check(context.Background(), "svc")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Check(context.Background(), "unknown")
	assert.Error(t, err)
	assert.Equal(t, "passthrough:///bufnet", c.GetServerAddress())
}
