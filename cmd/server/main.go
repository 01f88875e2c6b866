package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	grpcapi "meeting-gate/internal/api/grpc"
	httpapi "meeting-gate/internal/api/http"
	"meeting-gate/internal/config"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/jobs"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/repository"
	"meeting-gate/internal/repository/memory"
	"meeting-gate/internal/repository/postgres"
	"meeting-gate/internal/scheduler"
	"meeting-gate/internal/security"
	"meeting-gate/internal/service"
)

const shutdownTimeout = 10 * time.Second

// stores is the membership persistence picked by database.driver.
type stores struct {
	meetings     repository.MeetingRepository
	participants repository.ParticipantRepository
	ping         func(ctx context.Context) error
	close        func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory membership store; state is lost on restart")
		store := memory.NewStore(nil)
		return &stores{meetings: store, participants: store, close: func() error { return nil }}, nil
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, err
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("Database connection established")
	return &stores{
		meetings:     store.MeetingRepository,
		participants: store.ParticipantRepository,
		ping:         store.Ping,
		close:        store.Close,
	}, nil
}

func seedMeetings(ctx context.Context, svc service.MembershipService, seeds []config.MeetingSeed) error {
	for _, seed := range seeds {
		meeting, err := svc.EnsureMeeting(ctx, domain.MeetingID(seed.ID), domain.ParticipantID(seed.Owner))
		if err != nil {
			return err
		}
		logger.Info("Meeting ready", "meetingID", meeting.ID, "ownerID", meeting.OwnerID, "channel", meeting.ChannelName)
	}
	return nil
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting meeting gate server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress(), "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize membership store
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open membership store", "error", err)
		log.Fatalf("Failed to open membership store: %v", err)
	}
	defer st.close()

	// Initialize services
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.CredentialTTL())
	membershipSvc := service.NewMembershipService(st.meetings, st.participants, tokenManager)
	if err := seedMeetings(ctx, membershipSvc, cfg.Meetings); err != nil {
		logger.Error("Failed to seed meetings", "error", err)
		log.Fatalf("Failed to seed meetings: %v", err)
	}

	// Initialize scheduler
	cronScheduler, err := scheduler.NewScheduler(jobs.NewJobRunner(membershipSvc, cfg))
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(membershipSvc, tokenManager, st.ping),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if addr := cfg.GetGRPCAddress(); addr != "" {
		reporter := grpcapi.NewHealthReporter(st.ping)
		grpcServer := grpcapi.NewServer(reporter)

		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}

		group.Go(func() error {
			reporter.Run(ctx, 10*time.Second)
			return nil
		})
		group.Go(func() error {
			logger.Info("gRPC health server listening", "address", addr)
			return grpcServer.Serve(lis)
		})
		group.Go(func() error {
			<-ctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}
