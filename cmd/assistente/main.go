package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/amqp"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/backend"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/config"
	apphttp "github.com/AlexandroGranja/Assistente-Financeiro/internal/http"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm/gemini"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm/openai"
	applog "github.com/AlexandroGranja/Assistente-Financeiro/internal/log"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/services"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentApp)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	store, err := backend.NewFactory(logger.Logger).CreateStore(backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// AMQP is optional: without a broker the assistant still works, it
	// just does not emit recorded-expense events.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	llmClient := newLLMClient(cfg)
	assistant := services.NewAssistantService(store, llmClient, amqpClient)
	defer assistant.Close()

	srv := apphttp.NewServer(":"+cfg.Port, assistant)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second // model calls can be slow
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting assistente server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"llm_provider", cfg.LLMProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// newLLMClient picks the provider from config. A missing API key is not
// fatal: the adapters fail per call and the advice flow falls back to its
// static tip.
func newLLMClient(cfg *config.Config) llm.Client {
	switch cfg.LLMProvider {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, "", cfg.LLMTimeout)
	default:
		return gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
	}
}
