package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/lanthing-go/ltsignal/internal/codec"
	"github.com/lanthing-go/ltsignal/internal/config"
	"github.com/lanthing-go/ltsignal/internal/ledger"
	"github.com/lanthing-go/ltsignal/internal/observability"
	"github.com/lanthing-go/ltsignal/internal/protocol"
	"github.com/lanthing-go/ltsignal/internal/store"
	"github.com/lanthing-go/ltsignal/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	// The compiled-in table has already been validated during package
	// initialization; a malformed table never gets this far.
	reg := protocol.Default()
	logger.Info("Protocol registry ready", zap.Int("entries", reg.Len()))

	policy, err := ws.ParseUnknownPolicy(cfg.UnknownPolicy)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	logger.Info("Database opened", zap.String("path", cfg.DatabasePath))

	// Refuse to serve a build that rebinds a released ID.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	_, err = ledger.NewService(db, logger).Reconcile(ctx, reg)
	cancel()
	if err != nil {
		return fmt.Errorf("protocol ledger: %w", err)
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	router := ws.NewRouter(reg)
	router.Fallback(func(_ context.Context, c *ws.Conn, id protocol.ID, msg proto.Message) {
		logger.Debug("Unhandled message",
			zap.String("conn", c.ID()),
			zap.Uint32("msg_id", uint32(id)),
			zap.Stringer("area", protocol.AreaOf(id)),
			zap.String("msg_type", string(msg.ProtoReflect().Descriptor().FullName())),
		)
	})

	opts := ws.Options{
		MaxMessageSize: cfg.MaxMessageSize,
		SendBufferSize: cfg.SendBufferSize,
		UnknownPolicy:  policy,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.UpgradeHandler(hub, codec.New(reg), router, opts, logger))

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	logger.Info("Server listening",
		zap.String("name", cfg.ServerName),
		zap.String("addr", cfg.ListenAddr),
		zap.Stringer("unknown_policy", policy),
	)

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down", zap.Stringer("signal", sig))
	case err := <-errc:
		hub.Stop()
		return fmt.Errorf("http server: %w", err)
	}

	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
	return nil
}
