package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"indicator-observer/src/grpc_control"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/models"
	"indicator-observer/src/server"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const (
	shutdownTimeout   = 10 * time.Second
	retentionInterval = 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   CmdServe,
	Short: "Start the HTTP API, the websocket hub and the gRPC control server",
	Args:  cobra.NoArgs,
	RunE:  runServeCmd,
}

// -----------------------------------------------------------------------------

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := setupPipeline(ctx, configPath, os.Stdout)
	if err != nil {
		return err
	}
	defer p.close()

	p.cache.Start(ctx)

	var srv interfaces.IDataExchanger = server.NewAPIServer(p.config.MConfig, p.logger.Named("APIServer"), server.Services{
		Aggregator: p.aggregator,
		Projector:  p.projector,
		Analysis:   p.analysis,
		Journal:    p.journal,
	})
	p.aggregator.OnRefresh(func(history *models.MCountryHistory) {
		srv.Broadcast(server.RefreshEvent(history))
	})

	controlService := grpc_control.NewControlService(p.aggregator, p.projector, p.analysis, p.logger.Named("ControlService"))
	grpcServer, healthServer := grpc_control.NewServer(controlService)

	grpcAddr := fmt.Sprintf("%s:%d", p.config.GrpcHost, p.config.GrpcPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen for gRPC on %s: %w", grpcAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		p.logger.Info("Starting gRPC Control Server on %s", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go runRetention(ctx, p)

	var serveErr error
	select {
	case <-ctx.Done():
		p.logger.Info("Shutting down...")
	case serveErr = <-errCh:
		p.logger.Error("Server failed: %v", serveErr)
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		p.logger.Warning("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	p.logger.Info("Shutdown complete.")
	return serveErr
}

// -----------------------------------------------------------------------------

// runRetention prunes the fetch journal once a day.
func runRetention(ctx context.Context, p *pipeline) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.journal.CleanupOldData(); err != nil {
				p.logger.Warning("Journal cleanup failed: %v", err)
			}
		}
	}
}
