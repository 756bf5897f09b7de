package main

import (
	"log/slog"
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/app"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/config"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/logger"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/routes"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := application.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	handler := routes.SetupRoutes(application)
	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)

	err = http.ListenAndServe(":"+cfg.Port, handler)
	if err != nil {
		slog.Error("server failed", "error", err)
		panic(err)
	}
}
