package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storychat/core"
	"storychat/factories"
	"storychat/gateway"
)

func main() {
	var addr string
	var settingsPath string
	flag.StringVar(&addr, "addr", getEnv("STORYCHAT_ADDR", ":8080"), "HTTP listen address")
	flag.StringVar(&settingsPath, "settings", getEnv("SETTINGS_PATH", "./settings.json"), "path to the settings file")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := factories.NewSettingsStore(settingsPath)
	if err != nil {
		logger.With(map[string]any{"path": settingsPath, "error": err}).Fatal("failed to load settings")
	}

	stack := factories.StackConfig{Keys: factories.APIKeysFromEnv()}

	transport, err := factories.BuildChatTransport(stack, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build chat transport")
	}

	dispatcher, err := factories.BuildDispatcher(stack, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build speech dispatcher")
	}
	logger.With(map[string]any{"backends": dispatcher.Backends()}).Info("speech backends ready")

	// Probe the narrative backend once at startup so a bad key is visible
	// immediately instead of on the first turn.
	probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
	if !transport.ValidateAPIKey(probeCtx) {
		logger.Warn("OpenAI API key probe failed, narrative requests will likely fail")
	}
	probeCancel()

	server := gateway.NewServer(gateway.Config{Addr: addr}, settings, dispatcher, transport, logger)
	if err := server.Start(ctx); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to start gateway")
	}

	<-ctx.Done()
	logger.Info("Shutting down...")
	if err := server.Shutdown(); err != nil {
		logger.With(map[string]any{"error": err}).Warn("shutdown incomplete")
	}
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
