package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/coffee-pos/internal/core/domain"
)

// ServiceName is the gRPC health service name reported for the terminal.
const ServiceName = "coffeepos.Terminal"

// HealthReporter serves the standard gRPC health service. The terminal is
// SERVING only while its catalog is loaded.
type HealthReporter struct {
	server *health.Server
}

func NewHealthReporter() *HealthReporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{server: srv}
}

func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// CatalogStatus is meant to be passed to POSService.OnCatalogStatus.
func (h *HealthReporter) CatalogStatus(status domain.Status) {
	serving := healthpb.HealthCheckResponse_NOT_SERVING
	if status.State == domain.LoadStateReady {
		serving = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", serving)
	h.server.SetServingStatus(ServiceName, serving)
}

func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}
