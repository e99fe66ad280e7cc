package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentrecords/internal/auth"
	"studentrecords/internal/config"
	"studentrecords/internal/model"
	"studentrecords/internal/storage"
)

// maxPageSize bounds directory pages so a single request cannot pull
// the whole table.
const maxPageSize = 100

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studentrecords_http_requests_total",
	Help: "HTTP requests served, by method and status code.",
}, []string{"method", "status"})

type Server struct {
	cfg      config.Config
	store    storage.Store
	log      *slog.Logger
	validate *validator.Validate
}

func NewServer(cfg config.Config, store storage.Store, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		log:      log,
		validate: validator.New(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/signup", s.handleSignup)
	r.Post("/api/login", s.handleLogin)

	r.Route("/api/students", func(r chi.Router) {
		r.With(s.authMiddleware).Get("/me", s.handleGetMe)
		r.With(s.authMiddleware).Put("/me", s.handleUpdateMe)

		r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Get("/", s.handleListStudents)
		r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/", s.handleCreateStudent)
		r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Put("/{profileID}", s.handleUpdateStudent)
		r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Delete("/{profileID}", s.handleDeleteStudent)
	})

	return r
}

// authMiddleware verifies the bearer assertion and stashes the claims
// in the request context. Authorization failures never reach handlers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		token := bearerToken(header)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole runs after authMiddleware; role equality only, no
// hierarchy.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if claims.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden: insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func listParams(q url.Values) (page, limit int) {
	page, limit = 1, 10
	if raw := q.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	// Cap page so (page-1)*limit cannot overflow into a negative
	// offset.
	if page > math.MaxInt/maxPageSize {
		page = math.MaxInt / maxPageSize
	}
	return page, limit
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// validationMessage flattens validator errors into one readable string,
// e.g. "field Name is required".
func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "Invalid request"
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			messages = append(messages, fmt.Sprintf("field %s is required", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
	return strings.Join(messages, ", ")
}
