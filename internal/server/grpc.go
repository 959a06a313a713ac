package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "org-credential-broker/internal/health/handler"
)

// NewGRPC returns a gRPC server exposing grpc.health.v1 backed by health, traced with otelgrpc.
func NewGRPC(health *healthhandler.Server) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterServices(s, health)
	return s
}

// RegisterServices registers the health service with s.
func RegisterServices(s grpc.ServiceRegistrar, health *healthhandler.Server) {
	if health != nil {
		healthpb.RegisterHealthServer(s, health)
	}
}
