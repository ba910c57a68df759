package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

type healthRegistrar struct {
	health *health.Server
}

func (r healthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.health)
}

// reflectionRegistrar enables reflection for grpcurl.
type reflectionRegistrar struct{}

func (reflectionRegistrar) Register(s *grpc.Server) {
	reflection.Register(s)
}
