package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	shutdownTimeout = 5 * time.Second
	healthInterval  = 10 * time.Second
)

// Run serves HTTP on httpAddr and, when grpcAddr is set, the standard gRPC
// health service on grpcAddr. It blocks until ctx is cancelled or a listener
// fails.
func (s *Server) Run(ctx context.Context, httpAddr, grpcAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := &http.Server{
		Addr:              httpAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)

	go func() {
		s.log.Info().Str("addr", httpAddr).Msg("API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not listen on %s: %w", httpAddr, err)
		}
	}()

	var grpcServer *grpc.Server
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = server.Close()
			return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
		}
		grpcServer = grpc.NewServer()
		hs := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		go s.watchHealth(ctx, hs)
		go func() {
			s.log.Info().Str("addr", grpcAddr).Msg("gRPC health server starting")
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("gRPC server failed: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	s.log.Info().Msg("API server shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info().Msg("API server exited")
	return runErr
}

// watchHealth mirrors store reachability into the gRPC health status.
func (s *Server) watchHealth(ctx context.Context, hs *health.Server) {
	update := func() {
		pingCtx, cancel := context.WithTimeout(ctx, healthInterval/2)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err := s.store.Ping(pingCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.log.Warn().Err(err).Msg("Store is unreachable")
		}
		hs.SetServingStatus("", status)
	}

	update()
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
