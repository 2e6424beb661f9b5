package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pesio-ai/be-erp-approvals/internal/client"
	"github.com/pesio-ai/be-erp-approvals/internal/handler"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/config"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/database"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/middleware"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
	"github.com/pesio-ai/be-erp-approvals/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting ERP Approvals Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		URL:         cfg.Database.URL,
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	purchaseRequestRepo := repository.NewPurchaseRequestRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	catalogueRepo := repository.NewCatalogueItemRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	auditRepo := repository.NewStatusAuditRepository(db)

	// Post-commit observers: audit always, notifications when NATS is enabled
	observers := []service.TransitionObserver{
		service.NewAuditObserver(auditRepo, log.Component("audit")),
	}

	var nc *nats.Conn
	if cfg.NATS.Enabled {
		conn, js, err := client.ConnectJetStream(ctx, cfg.NATS.URL, cfg.NATS.Stream, cfg.Service.Name)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable; status notifications disabled")
		} else {
			nc = conn
			publisher := client.NewNotificationPublisher(js, log.Logger)
			observers = append(observers, service.NewNotificationObserver(publisher))
			log.Info().Str("url", cfg.NATS.URL).Str("stream", cfg.NATS.Stream).Msg("NATS JetStream connected")
		}
	}

	// Initialize services
	departments := service.Departments{
		Procurement: cfg.Departments.Procurement,
		Finance:     cfg.Departments.Finance,
		Inventory:   cfg.Departments.Inventory,
	}
	transitionService := service.NewStatusTransitionService(
		purchaseRequestRepo,
		withdrawalRepo,
		departments,
		[]service.TransitionHook{service.InventoryDecrementHook{}},
		observers,
		log.Component("transitions"),
	)
	recordService := service.NewRecordService(purchaseRequestRepo, withdrawalRepo, catalogueRepo, auditRepo, log)
	payrollService := service.NewPayrollService(employeeRepo, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(transitionService, recordService, payrollService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	httpHandler.RegisterRoutes(mux)

	// Apply middleware
	h := middleware.Chain(mux, log.Logger, cfg.Server.CORSOrigins, cfg.Server.RequestTimeout)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handler.UnaryRecoveryInterceptor(log),
		handler.UnaryLoggingInterceptor(log),
	))
	handler.NewGRPCHandler(transitionService, recordService, payrollService, log).Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.ApprovalServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer) // Enable reflection for debugging

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gRPC listener")
	}

	go func() {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop gRPC server gracefully
	grpcServer.GracefulStop()

	if nc != nil {
		if err := nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("NATS drain failed")
		}
	}

	log.Info().Msg("Server stopped")
}
