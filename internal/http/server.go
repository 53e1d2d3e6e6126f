package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/cache"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

// Assistant is what the handlers need from the service layer.
type Assistant interface {
	RegistrarGasto(ctx context.Context, phone, query string) (string, error)
	ConsultarGastos(ctx context.Context, phone, periodo string) (string, error)
	GerarConselho(ctx context.Context, phone string) string
	Relatorio(ctx context.Context, phone string) ([]core.CategoryTotal, decimal.Decimal, error)
	Expenses(ctx context.Context, phone string) ([]core.Expense, error)
	Ajuda() string
}

type Server struct {
	http.Server
	assistant   Assistant
	rateLimiter *rateLimiter

	// reportCache memoizes /relatorio per phone; invalidated on each
	// successful registration for that phone.
	reportCache *cache.LRUCache[string]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, assistant Assistant) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		assistant:   assistant,
		rateLimiter: newRateLimiter(),
		reportCache: cache.NewLRUCache[string](500, 5*time.Minute),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/registrar_gasto", s.withMiddleware(s.handleRegistrarGasto))
	mux.HandleFunc("/consultar_gastos", s.withMiddleware(s.handleConsultarGastos))
	mux.HandleFunc("/gerar_conselho", s.withMiddleware(s.handleGerarConselho))
	mux.HandleFunc("/ajuda", s.withMiddleware(s.handleAjuda))
	mux.HandleFunc("/relatorio", s.withMiddleware(s.handleRelatorio))
	mux.HandleFunc("/exportar_gastos", s.withMiddleware(s.handleExportarGastos))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit the write and model-call endpoints
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Muitas requisições. Tente novamente em instantes."})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
