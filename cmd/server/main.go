package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"gemini-gateway/internal/config"
	"gemini-gateway/internal/constants"
	"gemini-gateway/internal/gateway"
	"gemini-gateway/internal/logging"
	"gemini-gateway/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	core, err := gateway.New(cfg, log.WithField("component", "gateway"))
	if err != nil {
		log.WithError(err).Fatal("failed to build gateway core")
	}
	defer core.Close()

	engine := server.BuildEngine(server.Dependencies{
		Core: core,
		Log:  log.WithField("component", "server"),
	})

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}

	go func() {
		log.Infof("gemini-gateway listening on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server stopped unexpectedly")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown reported an error")
	}
	time.Sleep(constants.ServerGracefulWait)
	log.Info("server stopped")
}
