package render

import (
	"fmt"
	"net"

	"skullboard/utils"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the grpc_health_v1 service the render status is published under.
const HealthServiceName = "skullboard.render"

// HealthReporter receives the outcome of every render.
type HealthReporter interface {
	Report(ok bool)
}

// HealthService exposes render health over the standard gRPC health protocol.
type HealthService struct {
	health *health.Server
	server *grpc.Server
}

func NewHealthService() *HealthService {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthService{health: hs, server: gs}
}

// Report marks the service NOT_SERVING after a render exhausted its retries
// and SERVING again after the next success.
func (h *HealthService) Report(ok bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(HealthServiceName, status)
}

// Serve blocks serving gRPC on addr.
func (h *HealthService) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	utils.Info("Render", "GRPCHealth", "gRPC health service listening on "+lis.Addr().String())
	return h.ServeListener(lis)
}

func (h *HealthService) ServeListener(lis net.Listener) error {
	return h.server.Serve(lis)
}

func (h *HealthService) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
