package handler

import (
	"context"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server implements grpc.health.v1.Health. Check runs the readiness checks on every call for the
// overall ("") service; named services are answered from the stored status.
type Server struct {
	*health.Server
	checker *Checker
}

// NewServer returns a health server backed by checker.
func NewServer(checker *Checker) *Server {
	return &Server{Server: health.NewServer(), checker: checker}
}

// Check returns SERVING or NOT_SERVING. Dependency failures are never returned as gRPC errors.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if req.GetService() != "" {
		return s.Server.Check(ctx, req)
	}
	status := healthpb.HealthCheckResponse_SERVING
	if s.checker != nil && s.checker.Ready(ctx) != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.SetServingStatus("", status)
	return &healthpb.HealthCheckResponse{Status: status}, nil
}
