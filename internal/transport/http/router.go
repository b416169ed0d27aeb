package http

import (
	"context"
	"net/http"

	"github.com/go-api-realtime/internal/application/messaging"
	"github.com/go-api-realtime/internal/application/notification"
	"github.com/go-api-realtime/internal/application/session"
	"github.com/go-api-realtime/internal/config"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/metrics"
	"github.com/go-api-realtime/internal/transport/http/handler"
	appmiddleware "github.com/go-api-realtime/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type authenticator interface {
	Authenticate(ctx context.Context, tok string) (domain.Identity, error)
}

type liveness interface {
	Len() int
}

// Deps holds the application services and realtime endpoints the router serves.
type Deps struct {
	Messaging     messaging.Service
	Notifications notification.Service
	Sessions      session.Service
	Authenticator authenticator
	Registry      liveness
	WebSocket     http.Handler
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer // nil disables /metrics
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Authenticator)

	// 5 requests/second, burst of 10, per client IP.
	handshakeRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	// Message sends get a looser bucket: 20/s, burst 40.
	sendRL := appmiddleware.NewRateLimiter(rate.Limit(20), 40)

	healthH := handler.NewHealthHandler(deps.Registry)
	messageH := handler.NewMessageHandler(deps.Messaging)
	conversationH := handler.NewConversationHandler(deps.Messaging)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	sessionH := handler.NewSessionHandler(deps.Sessions)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.WebSocket != nil {
		// The websocket authenticates inside its own CONNECT handshake.
		r.With(handshakeRL.Limit).Get("/ws", deps.WebSocket.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.Current)
			r.Post("/sessions/logout", sessionH.Logout)

			r.With(sendRL.Limit).Post("/messages", messageH.Send)
			r.Get("/messages/unread", messageH.ListUnread)
			r.Get("/messages/unread/count", messageH.CountUnread)
			r.Get("/messages/{id}", messageH.Get)
			r.Put("/messages/{id}/delivered", messageH.MarkDelivered)
			r.Put("/messages/{id}/read", messageH.MarkRead)

			r.Get("/conversations", conversationH.Recent)
			r.Get("/conversations/{userId}", conversationH.History)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread/count", notifH.CountUnread)
			r.Put("/notifications/read-all", notifH.MarkAllRead)
			r.Get("/notifications/types/{type}", notifH.ListByType)
			r.Get("/notifications/{id}", notifH.Get)
			r.Put("/notifications/{id}/read", notifH.MarkRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/notifications", notifH.Create)
			})
		})
	})

	return r
}
