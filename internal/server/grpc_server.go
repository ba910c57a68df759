package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/matchfeed/internal/app"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "matchfeed"

const (
	defaultProbeInterval = 10 * time.Second
	probeTimeout         = 2 * time.Second
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// GRPCServer is the admin endpoint: grpc.health.v1 plus reflection.
// A background probe flips the health status with the DB and Redis.
type GRPCServer struct {
	srv      *grpc.Server
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
	log      *slog.Logger

	stopOnce sync.Once
}

// NewGRPCServer builds the admin server and registers health, reflection and
// any extra registrars.
func NewGRPCServer(appCtx *app.AppContext, registrars ...Registrar) *GRPCServer {
	s := &GRPCServer{
		srv:      grpc.NewServer(),
		health:   health.NewServer(),
		checks:   dependencyChecks(appCtx),
		interval: defaultProbeInterval,
		log:      appCtx.Logger.With("component", "grpc"),
	}

	all := append([]Registrar{healthRegistrar{health: s.health}, reflectionRegistrar{}}, registrars...)
	for _, r := range all {
		r.Register(s.srv)
	}

	// not serving until the first probe passes
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func dependencyChecks(appCtx *app.AppContext) map[string]Check {
	checks := map[string]Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := appCtx.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if appCtx.RedisCache != nil {
		checks["redis"] = appCtx.RedisCache.Ping
	}
	return checks
}

func (s *GRPCServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// probe runs every check once and publishes the result.
func (s *GRPCServer) probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.log.Warn("health check failed", "check", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
	return status
}

func (s *GRPCServer) runProbe(ctx context.Context) {
	s.probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// Serve runs the probe and serves on lis until Stop is called.
// The probe stops with ctx.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	go s.runProbe(ctx)
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *GRPCServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.log.Info("starting gRPC server", "addr", addr)
	return s.Serve(ctx, lis)
}

// Stop marks the server NOT_SERVING and drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		s.srv.GracefulStop()
	})
}
