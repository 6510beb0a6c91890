package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/zombar/collector"
	"github.com/zombar/collector/api"
	"github.com/zombar/collector/db"
	"github.com/zombar/collector/llm"
	"github.com/zombar/collector/storage"
	"github.com/zombar/collector/tracing"
)

const version = "1.0.0"

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local development convenience; missing .env is fine.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	logger.Info("collector service initializing", "version", version)

	// Initialize tracing
	tp, err := tracing.InitTracer("collector-api")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Default values
	defaultPort := getEnv("PORT", "8080")
	defaultProvider := getEnv("AI_PROVIDER", string(llm.ProviderGemini))
	defaultModel := getEnv("AI_MODEL", "")
	defaultBaseURL := getEnv("AI_BASE_URL", "")
	defaultTimeout := getEnv("AI_TIMEOUT_SECONDS", "60")
	defaultStoragePath := getEnv("STORAGE_BASE_PATH", "./storage")

	aiTimeout, err := strconv.Atoi(defaultTimeout)
	if err != nil || aiTimeout <= 0 {
		logger.Warn("invalid AI_TIMEOUT_SECONDS value, using default", "provided", defaultTimeout, "default", 60)
		aiTimeout = 60
	}

	// Command-line flags (override environment variables)
	port := flag.String("port", defaultPort, "Server port")
	provider := flag.String("ai-provider", defaultProvider, "LLM provider dialect (openai or gemini)")
	model := flag.String("ai-model", defaultModel, "Model name")
	baseURL := flag.String("ai-base-url", defaultBaseURL, "LLM endpoint base URL")
	storagePath := flag.String("storage-path", defaultStoragePath, "Base path for filesystem object storage")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	rollback := flag.Bool("rollback", false, "Roll back the most recent database migration and exit")
	flag.Parse()

	// PostgreSQL database configuration (required)
	dbHost := getEnv("DB_HOST", "")
	if dbHost == "" {
		logger.Error("DB_HOST environment variable is required")
		os.Exit(1)
	}

	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "collector")
	dbPassword := getEnv("DB_PASSWORD", "collector_dev_pass")
	dbName := getEnv("DB_NAME", "collector")

	dbConfig := db.Config{
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort, dbUser, dbPassword, dbName),
	}
	logger.Info("using PostgreSQL database", "host", dbHost, "port", dbPort, "database", dbName)

	if *rollback {
		conn, err := sql.Open("postgres", dbConfig.DSN)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		if err := db.Rollback(conn); err != nil {
			logger.Error("rollback failed", "error", err)
			os.Exit(1)
		}
		logger.Info("rolled back last migration")
		return
	}

	// API bearer token; without it every protected route returns 401.
	authToken := getEnv("AUTH_TOKEN", "")
	if authToken == "" {
		logger.Warn("AUTH_TOKEN is not set, all protected endpoints will reject requests")
	}

	// LLM configuration. GEMINI_API_KEY is honored for compatibility with
	// older deployments.
	apiKey := getEnv("AI_API_KEY", getEnv("GEMINI_API_KEY", ""))
	if apiKey == "" {
		logger.Warn("no AI API key configured, captures will use heuristic analysis")
	}

	llmConfig := llm.DefaultConfigFor(llm.Provider(*provider))
	llmConfig.APIKey = apiKey
	llmConfig.Timeout = time.Duration(aiTimeout) * time.Second
	if *model != "" {
		llmConfig.Model = *model
	}
	if *baseURL != "" {
		llmConfig.BaseURL = *baseURL
	}

	// Optional S3-compatible object storage; filesystem otherwise.
	var s3Config *storage.S3Config
	if bucket := getEnv("S3_BUCKET", ""); bucket != "" {
		s3Config = &storage.S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          bucket,
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnv("S3_USE_PATH_STYLE", "") == "true",
		}
		logger.Info("using S3 object storage", "bucket", bucket, "endpoint", s3Config.Endpoint)
	}

	// Create server configuration
	config := api.Config{
		Addr:      ":" + *port,
		AuthToken: authToken,
		Version:   version,
		DBConfig:  dbConfig,
		CollectorConfig: collector.Config{
			HTTPTimeout: 30 * time.Second,
			LLM:         llmConfig,
		},
		StorageConfig: storage.Config{BasePath: *storagePath},
		S3Config:      s3Config,
		CORSEnabled:   !*disableCORS,
	}

	// Create server
	server, err := api.NewServer(config)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Keep the database pool gauges fresh
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			server.UpdateDBMetrics()
		}
	}()
	logger.Info("database metrics initialized")

	// Start server in a goroutine
	go func() {
		logger.Info("collector service starting",
			"port", *port,
			"database_host", dbHost,
			"database_name", dbName,
			"storage_path", *storagePath,
			"ai_provider", *provider,
			"ai_configured", apiKey != "",
		)

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
