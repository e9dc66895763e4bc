package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "inquiry-backend/cmd/api"
	authdomain "inquiry-backend/internal/auth/domain"
	authrepo "inquiry-backend/internal/auth/repository"
	"inquiry-backend/internal/auth/token"
	authusecase "inquiry-backend/internal/auth/usecase"
	catalogdomain "inquiry-backend/internal/catalog/domain"
	catalogrepo "inquiry-backend/internal/catalog/repository"
	catalogusecase "inquiry-backend/internal/catalog/usecase"
	"inquiry-backend/internal/notification"
	orderdomain "inquiry-backend/internal/order/domain"
	orderrepo "inquiry-backend/internal/order/repository"
	orderusecase "inquiry-backend/internal/order/usecase"
	"inquiry-backend/internal/payment/scheduler"
	paymentusecase "inquiry-backend/internal/payment/usecase"
	"inquiry-backend/pkg/config"
	"inquiry-backend/pkg/database"
	"inquiry-backend/pkg/epay"
	"inquiry-backend/pkg/fcm"
	"inquiry-backend/pkg/storage"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	// Load configuration
	cfg := config.Load()
	warnings, err := cfg.Validate()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	if !cfg.IsProduction() {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(db)

	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.FCMToken{},
		&catalogdomain.Service{},
		&orderdomain.Order{},
		&orderdomain.Attachment{},
	); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	// Repositories
	userRepo := authrepo.NewUserRepository(db)
	fcmTokenRepo := authrepo.NewFCMTokenRepository(db)
	serviceRepo := catalogrepo.NewServiceRepository(db)
	orderRepo := orderrepo.NewOrderRepository(db)

	// Infrastructure
	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object store")
	}

	rdb, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, rate limiting disabled")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var notifier paymentusecase.Notifier
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.WithError(err).Warn("failed to initialize FCM client, push notifications disabled")
		} else {
			notifier = notification.NewService(fcmTokenRepo, fcmClient)
		}
	} else {
		log.Info("FIREBASE_CREDENTIALS not set, push notifications disabled")
	}

	gateway := epay.NewClient(epay.Config{
		PID:       cfg.EpayPID,
		Key:       cfg.EpayKey,
		APIURL:    cfg.EpayAPIURL,
		NotifyURL: cfg.EpayNotifyURL,
		ReturnURL: cfg.EpayReturnURL,
		SiteName:  cfg.EpaySiteName,
	})

	// Use cases
	tokens := token.NewService(cfg.JWTSecret, token.DefaultTTL)
	authUc := authusecase.NewAuthUsecase(userRepo, fcmTokenRepo, tokens, cfg)
	catalogUc := catalogusecase.NewCatalogUsecase(serviceRepo)
	orderUc := orderusecase.NewOrderUsecase(orderRepo, catalogUc, store, cfg.MaxUploadBytes)
	paymentUc := paymentusecase.NewPaymentUsecase(orderRepo, gateway, cfg.EpayKey, notifier)

	if cfg.ServicesSeedFile != "" {
		n, err := catalogUc.SeedFromFile(ctx, cfg.ServicesSeedFile)
		if err != nil {
			log.WithError(err).Fatal("failed to seed service catalog")
		}
		log.WithField("services", n).Info("service catalog seeded")
	}

	if promoted, err := authUc.PromoteAdmins(ctx); err != nil {
		log.WithError(err).Error("failed to promote configured admins")
	} else if promoted > 0 {
		log.WithField("promoted", promoted).Info("promoted configured admins")
	}

	reconciler := scheduler.NewReconciler(paymentUc, cfg.ReconcileInterval)
	reconciler.Start()

	handler := api.NewHandler(api.Dependencies{
		Config:   cfg,
		Tokens:   tokens,
		Auth:     authUc,
		Catalog:  catalogUc,
		Orders:   orderUc,
		Payments: paymentUc,
		Redis:    rdb,
	})
	srv := handler.Server(":" + cfg.Port)

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	reconciler.Stop()
}
