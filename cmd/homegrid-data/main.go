package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"homegrid-data/internal/authz"
	"homegrid-data/internal/bridge"
	"homegrid-data/internal/config"
	"homegrid-data/internal/database"
	httpapi "homegrid-data/internal/http"
	"homegrid-data/internal/logger"
	"homegrid-data/internal/notify"
	"homegrid-data/internal/repository"
	"homegrid-data/internal/service"
	"homegrid-data/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "homegrid-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	sessions := store.NewSessionStore(
		store.NewRedisKV(redisClient),
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
	)

	usersRepo := repository.NewPostgresUsersRepository(db)
	buildingsRepo := repository.NewPostgresBuildingsRepository(db)
	devicesRepo := repository.NewPostgresDevicesRepository(db)
	membershipsRepo := repository.NewPostgresMembershipsRepository(db)
	invitationsRepo := repository.NewPostgresInvitationsRepository(db)
	energyRepo := repository.NewPostgresEnergyRepository(db)

	resolver := authz.NewResolver(membershipsRepo)
	notifier := notify.NewClient(
		cfg.Notifier.BaseURL,
		cfg.Notifier.APIKey,
		time.Duration(cfg.Notifier.TimeoutSeconds)*time.Second,
		log,
	)

	authService := service.NewAuthService(usersRepo, resolver, sessions, log)
	buildingService := service.NewBuildingService(buildingsRepo, membershipsRepo, resolver, log)
	deviceService := service.NewDeviceService(devicesRepo, buildingsRepo, resolver, log)
	userService := service.NewUserService(usersRepo, membershipsRepo, resolver, log)
	invitationService := service.NewInvitationService(
		invitationsRepo, membershipsRepo, buildingsRepo, usersRepo, resolver, notifier, log)
	energyService := service.NewEnergyService(energyRepo, devicesRepo, buildingsRepo, resolver, log)

	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, log))
	router.RegisterAdminRoutes(
		httpapi.NewBuildingHandler(authService, buildingService, deviceService, invitationService, log),
		httpapi.NewDeviceHandler(authService, deviceService, log),
		httpapi.NewUserHandler(authService, userService, log),
		httpapi.NewInvitationHandler(authService, invitationService, log),
	)
	router.RegisterEnergyRoutes(httpapi.NewEnergyHandler(authService, energyService, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var energyBridge *bridge.EnergyBridge
	if cfg.MQTT.Enabled {
		energyBridge = bridge.NewEnergyBridge(&cfg.MQTT, devicesRepo, energyRepo, log)
		if err := energyBridge.Start(ctx); err != nil {
			log.Fatal("energy bridge failed to start", zap.Error(err))
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if energyBridge != nil {
		energyBridge.Stop()
	}
}
