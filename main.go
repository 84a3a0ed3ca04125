package main

import (
	"context"
	"embed"
	"log"
	"time"

	"gridsheet/adapters/api"
	"gridsheet/adapters/excel"
	"gridsheet/app"
	"gridsheet/internal"
	"gridsheet/internal/config"
	"gridsheet/ports"
	"gridsheet/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

//go:embed ui/templates ui/static
var embeddedFiles embed.FS

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))
	gin.SetMode(appConfig.Server.GinMode)

	client := api.NewClient(api.ClientConfig{
		BaseURL: appConfig.API.BaseURL,
		Timeout: appConfig.API.Timeout,
	}, logger)

	var engine ports.FormulaEngine
	if appConfig.Sheet.FormulasEnabled {
		engine = excel.NewFormulaEngine(logger)
	} else {
		logger.Info("Formulas disabled")
	}
	codec := excel.NewCodec(logger)

	sheetConfig := app.SpreadsheetConfig{
		SaveMode:  appConfig.API.SaveMode,
		SpareRows: appConfig.Sheet.SpareRows,
	}
	sessions := app.NewSessionRegistry(func() *app.SpreadsheetService {
		return app.NewSpreadsheetService(client, engine, codec, sheetConfig, logger)
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pruneSessions(ctx, sessions, appConfig.Server.SessionIdle)

	server, err := ui.NewServer(embeddedFiles, sessions, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	logger.Info("Data API at %s (save mode %s)", appConfig.API.BaseURL, appConfig.API.SaveMode)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

// pruneSessions drops idle browser sessions until ctx is cancelled
func pruneSessions(ctx context.Context, sessions *app.SessionRegistry, idle time.Duration) {
	interval := idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Prune(idle)
		}
	}
}
