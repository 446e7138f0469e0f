package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appAudit "github.com/campus-market/meetup-hub/internal/application/audit"
	appAuth "github.com/campus-market/meetup-hub/internal/application/auth"
	appCatalog "github.com/campus-market/meetup-hub/internal/application/catalog"
	appChat "github.com/campus-market/meetup-hub/internal/application/chat"
	appMeetup "github.com/campus-market/meetup-hub/internal/application/meetup"
	appUser "github.com/campus-market/meetup-hub/internal/application/user"
	domainUser "github.com/campus-market/meetup-hub/internal/domain/user"
	"github.com/campus-market/meetup-hub/internal/domain/notification"
)

// Services groups the application services the handlers call.
type Services struct {
	Meetup      *appMeetup.Service
	Coordinator *appMeetup.Coordinator
	Monitor     *appMeetup.Monitor
	Chat        *appChat.Service
	Catalog     *appCatalog.Service
	Audit       *appAudit.Service
	Auth        *appAuth.Service
	User        *appUser.Service
}

// Options configures cross-cutting HTTP behavior.
type Options struct {
	SessionCookieName   string
	SessionCookieSecure bool
	CORSOrigins         []string
	RequestTimeout      time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	meetupSvc   *appMeetup.Service
	coordinator *appMeetup.Coordinator
	monitor     *appMeetup.Monitor
	chatSvc     *appChat.Service
	catalogSvc  *appCatalog.Service
	auditSvc    *appAudit.Service
	authSvc     *appAuth.Service
	userSvc     *appUser.Service
	sseHub      notification.SSEHub
	validate    *validator.Validate
	opts        Options
	logger      zerolog.Logger
}

func NewServer(svcs Services, sseHub notification.SSEHub, opts Options, logger zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		meetupSvc:   svcs.Meetup,
		coordinator: svcs.Coordinator,
		monitor:     svcs.Monitor,
		chatSvc:     svcs.Chat,
		catalogSvc:  svcs.Catalog,
		auditSvc:    svcs.Audit,
		authSvc:     svcs.Auth,
		userSvc:     svcs.User,
		sseHub:      sseHub,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		opts:        opts,
		logger:      logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// The stream outlives the request timeout, so it sits outside that group.
		r.With(s.requireAuth).Get("/stream", s.stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", s.register)
				r.Post("/login", s.login)
				r.Group(func(r chi.Router) {
					r.Use(s.requireAuth)
					r.Post("/logout", s.logout)
					r.Get("/me", s.me)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)

				r.Get("/products/{productId}/meetup-location", s.getMeetupLocation)

				r.Route("/meetups", func(r chi.Router) {
					r.Post("/", s.proposeMeetup)
					r.Post("/{transactionId}/notify", s.retryNotification)
				})

				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", s.listTransactions)
					r.Get("/{transactionId}", s.getTransaction)
					r.Get("/{transactionId}/history", s.getTransactionHistory)
					r.Post("/{transactionId}/confirm", s.confirmTransaction)
					r.Post("/{transactionId}/cancel", s.cancelTransaction)
					r.Post("/{transactionId}/withdraw", s.withdrawTransaction)
					r.Post("/{transactionId}/dispute", s.disputeTransaction)
					r.Post("/{transactionId}/complete", s.completeTransaction)
					r.Post("/{transactionId}/appeal", s.appealTransaction)
				})

				r.Route("/conversations", func(r chi.Router) {
					r.Get("/{conversationId}/messages", s.listMessages)
					r.Post("/{conversationId}/reopen", s.reopenConversation)
				})

				r.Route("/admin", func(r chi.Router) {
					r.Use(s.requireRole(string(domainUser.RoleModerator)))
					r.Post("/transactions/{transactionId}/resolve", s.resolveTransaction)
				})
			})
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "OK",
		"sse_clients": s.sseHub.GetClientCount(),
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeAndValidate decodes a JSON body and applies its validate tags.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := decodeBody(r, v); err != nil {
		return err
	}
	return s.validate.StructCtx(r.Context(), v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
