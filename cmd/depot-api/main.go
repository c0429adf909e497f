// README: Entry point; loads config, runs migrations, wires services, starts HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"depot/internal/config"
	httptransport "depot/internal/http"
	"depot/internal/infra"
	"depot/internal/logger"
	"depot/internal/modules/mission"
	"depot/internal/modules/parcel"
	"depot/internal/modules/tracking"
	"depot/internal/routing"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := infra.OpenSQL(cfg.DB.DSN)
	if err != nil {
		log.Error("open migration connection", "err", err)
		os.Exit(1)
	}
	if err := infra.Migrate(sqlDB); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}
	_ = sqlDB.Close()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	trackingStore := tracking.NewStore(dbPool, redisClient)
	trackingSvc := tracking.NewService(trackingStore)

	parcelStore := parcel.NewStore(dbPool)
	parcelSvc := parcel.NewService(dbPool, parcelStore, trackingStore)

	missionStore := mission.NewStore(dbPool)
	missionSvc := mission.NewService(dbPool, missionStore, parcelSvc, cfg.Codes.Length)

	var routeSvc *routing.RouteService
	if cfg.Routing.MapsAPIKey != "" {
		routeSvc, err = routing.NewRouteService(cfg.Routing.MapsAPIKey)
		if err != nil {
			log.Error("init routing", "err", err)
			os.Exit(1)
		}
	} else {
		log.Info("routing disabled: DEPOT_MAPS_API_KEY not set")
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Log:      log,
		Mission:  missionSvc,
		Parcel:   parcelSvc,
		Tracking: trackingSvc,
		Routing:  routeSvc,
		Verify:   cfg.Verify,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}
