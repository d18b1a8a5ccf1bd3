package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/leadline-ai/leadline-web/internal/analysis"
	"github.com/leadline-ai/leadline-web/internal/anthropic"
	"github.com/leadline-ai/leadline-web/internal/api"
	"github.com/leadline-ai/leadline-web/internal/chat"
	"github.com/leadline-ai/leadline-web/internal/db"
	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/ratelimit"
)

var version string

// defaultSystemPrompt seeds new sessions when no SYSTEM_PROMPT is configured.
const defaultSystemPrompt = `You are a friendly and professional virtual receptionist for a small business. Answer customer questions helpfully and concisely, collect their contact details when they show interest, and offer to schedule a follow-up call when appropriate. Reply in the language the customer writes in.`

func main() {
	// Start pprof debug server if enabled (for memory/CPU profiling)
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Initialize OpenTelemetry (sends traces to the configured OTLP endpoint)
	// Configured via env vars: OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		// Non-fatal: continue without tracing if OTEL env vars not set
	} else {
		defer otelShutdown()
	}

	// Load configuration from environment
	config := loadConfig()

	// Initialize database connection
	// Note: Migrations are run separately via CLI before starting the server
	// See: migrate -database "$DATABASE_URL" -path internal/db/migrations up
	database, err := db.Connect(config.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	// Session store and completion wiring
	store := chat.NewStore(database, chat.Config{
		SystemPrompt: config.SystemPrompt,
		PersistMode:  config.PersistMode,
	})

	client := anthropic.NewClient(config.AnthropicAPIKey)
	completer := anthropic.NewChatCompleter(client, config.ChatModel)
	pipeline := analysis.NewPipeline(database, client, config.AnalysisModel)

	chatLimiter := ratelimit.NewInMemoryRateLimiter(config.ChatRateLimitRPS, config.ChatRateLimitBurst)
	defer chatLimiter.Stop()

	// Create API server
	server := api.NewServer(store, completer, pipeline, chatLimiter, config.AllowedOrigins, version)
	router := server.SetupRoutes()

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "leadline-backend")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", config.Port, "version", version,
			"chat_model", config.ChatModel, "analysis_model", config.AnalysisModel)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

type Config struct {
	Port               int
	DatabaseURL        string
	AnthropicAPIKey    string
	ChatModel          string
	AnalysisModel      string
	SystemPrompt       string
	PersistMode        chat.PersistMode
	AllowedOrigins     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
}

func loadConfig() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	// HTTP timeout configuration (defaults to 30s)
	readTimeout := 30 * time.Second
	if rt := os.Getenv("HTTP_READ_TIMEOUT"); rt != "" {
		if parsed, err := time.ParseDuration(rt); err == nil {
			readTimeout = parsed
		}
	}

	writeTimeout := 30 * time.Second
	if wt := os.Getenv("HTTP_WRITE_TIMEOUT"); wt != "" {
		if parsed, err := time.ParseDuration(wt); err == nil {
			writeTimeout = parsed
		}
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		logger.Fatal("missing required env var", "var", "ANTHROPIC_API_KEY")
	}

	chatModel := os.Getenv("CHAT_MODEL")
	if chatModel == "" {
		chatModel = "claude-haiku-4-5"
	}

	analysisModel := os.Getenv("ANALYSIS_MODEL")
	if analysisModel == "" {
		analysisModel = chatModel
	}

	// System prompt: inline env var wins, then a prompt file, then default
	systemPrompt := os.Getenv("SYSTEM_PROMPT")
	if systemPrompt == "" {
		if path := os.Getenv("SYSTEM_PROMPT_FILE"); path != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				logger.Fatal("failed to read system prompt file", "path", path, "error", err)
			}
			systemPrompt = strings.TrimSpace(string(content))
		}
	}
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	// Persistence mode: lazy (default) writes on first assistant reply,
	// immediate writes at session creation
	persistMode := chat.PersistLazy
	switch strings.ToLower(os.Getenv("PERSIST_MODE")) {
	case "", "lazy":
	case "immediate":
		persistMode = chat.PersistImmediate
	default:
		logger.Fatal("invalid env var", "var", "PERSIST_MODE", "hint", "must be lazy or immediate")
	}

	allowedOrigins := []string{"*"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	} else {
		logger.Warn("ALLOWED_ORIGINS not set, allowing all origins")
	}

	chatRPS := 5.0
	if v := os.Getenv("CHAT_RATE_LIMIT_RPS"); v != "" {
		fmt.Sscanf(v, "%f", &chatRPS)
	}
	chatBurst := 10
	if v := os.Getenv("CHAT_RATE_LIMIT_BURST"); v != "" {
		fmt.Sscanf(v, "%d", &chatBurst)
	}

	return Config{
		Port:               port,
		DatabaseURL:        databaseURL,
		AnthropicAPIKey:    apiKey,
		ChatModel:          chatModel,
		AnalysisModel:      analysisModel,
		SystemPrompt:       systemPrompt,
		PersistMode:        persistMode,
		AllowedOrigins:     allowedOrigins,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		ChatRateLimitRPS:   chatRPS,
		ChatRateLimitBurst: chatBurst,
	}
}

// startPprofServer starts a pprof debug server on localhost:6060.
// Only accessible locally; intended for port-forwarded remote debugging.
func startPprofServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}
