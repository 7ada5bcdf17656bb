package main

import (
	"log/slog"
	"os"
	"strconv"

	"school-admin-api/internal/app"
	"school-admin-api/internal/logger"
)

func main() {
	pretty, _ := strconv.ParseBool(os.Getenv("PRETTY_LOGS"))
	logger.Setup(os.Stdout, pretty)

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
