package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SickoOrange/SimpleAndReason/config"
	httpapi "github.com/SickoOrange/SimpleAndReason/internal/api/http"
	"github.com/SickoOrange/SimpleAndReason/internal/bootstrap"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.SetLevel(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, "")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer app.Close()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:  "alarm-reasons",
		Version:      cfg.App.Version,
		DB:           app.DB,
		Redis:        httpapi.RedisPinger{Client: app.Redis},
		Metrics:      app.Metrics,
		AlarmReasons: app.Runs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
