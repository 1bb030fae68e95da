package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Domenick1991/tourbooking/api"
	"github.com/Domenick1991/tourbooking/config"
	bookingsapi "github.com/Domenick1991/tourbooking/internal/api/bookings_service_api"
)

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	logger     *zap.Logger
}

// Run starts the gRPC and HTTP servers and blocks until ctx is cancelled or
// a server fails.
func Run(ctx context.Context, cfg *config.Config, handlers api.Handlers, bookingsServer bookingsapi.BookingsServiceServer, logger *zap.Logger) error {
	s := newServers(cfg, handlers, bookingsServer, logger)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	logger.Info("grpc server listening", zap.String("address", cfg.GRPC.Address))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("http server listening", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func newServers(cfg *config.Config, handlers api.Handlers, bookingsServer bookingsapi.BookingsServiceServer, logger *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer()
	bookingsapi.RegisterBookingsServiceServer(grpcSrv, bookingsServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(bookingsapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.NewRouter(cfg.HTTP, handlers, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: httpSrv,
		logger:     logger,
	}
}

func (s *Servers) shutdown() error {
	s.logger.Info("shutting down servers")
	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
