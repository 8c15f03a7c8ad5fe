package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"court-manager/backend/internal/config"
	"court-manager/backend/internal/domain/availability"
	"court-manager/backend/internal/domain/block"
	"court-manager/backend/internal/domain/booking"
	"court-manager/backend/internal/domain/court"
	"court-manager/backend/internal/domain/notifications"
	"court-manager/backend/internal/domain/quota"
	"court-manager/backend/internal/domain/schedule"
	"court-manager/backend/internal/domain/user"
	"court-manager/backend/internal/firebase"
	apihttp "court-manager/backend/internal/http"
	"court-manager/backend/internal/scheduler"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()
	cfg := config.Load()
	loc := cfg.Location()

	app, err := firebase.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase app init failed")
	}

	authClient, err := firebase.NewAuthClient(ctx, app)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase auth client init failed")
	}

	fs, err := firebase.NewFirestore(ctx, app)
	if err != nil {
		log.Fatal().Err(err).Msg("firestore init failed")
	}
	defer fs.Close()

	fcm, err := firebase.NewMessagingClient(ctx, app)
	if err != nil {
		log.Warn().Err(err).Msg("FCM unavailable, push notifications disabled")
		fcm = nil
	}

	// Repositories
	userRepo := user.NewRepo(fs.Client)
	courtRepo := court.NewRepo(fs.Client)
	scheduleRepo := schedule.NewRepo(fs.Client)
	blockRepo := block.NewRepo(fs.Client)
	bookingRepo := booking.NewRepo(fs.Client)
	quotaTracker := quota.NewTracker(fs.Client)

	// Services
	courtSvc := court.NewService(courtRepo)
	scheduleSvc := schedule.NewService(scheduleRepo, loc)
	blockSvc := block.NewService(blockRepo, loc)
	notificationsSvc := notifications.NewService(fs.Client, fcm, userRepo)
	bookingSvc := booking.NewService(bookingRepo, scheduleSvc, blockSvc, courtSvc, userRepo, notificationsSvc, loc)
	availabilitySvc := availability.NewResolver(scheduleSvc, blockSvc, bookingRepo, loc)

	// Background maintenance
	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init failed")
	}
	if _, err := sched.AddJob("block-sweep", cfg.BlockSweepCron, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		blockSvc.Sweep(sweepCtx)
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register block sweep")
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}()

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:              cfg,
		AuthClient:       authClient,
		UserRepo:         userRepo,
		CourtSvc:         courtSvc,
		ScheduleSvc:      scheduleSvc,
		BlockSvc:         blockSvc,
		BookingSvc:       bookingSvc,
		AvailabilitySvc:  availabilitySvc,
		QuotaTracker:     quotaTracker,
		NotificationsSvc: notificationsSvc,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the availability stream holds its
		// response open.
		IdleTimeout: 60 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Port).Str("project", cfg.ProjectID).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("shutting down")
	_ = srv.Shutdown(ctxShutdown)
}
