package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/internal/ws"
)

func SetupRoutes(d Deps) http.Handler {
	d = d.withDefaults()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(d))
	r.Get("/ws", ws.Handler(ws.Deps{
		Hub:            d.Hub,
		Tokens:         d.Tokens,
		IDs:            d.IDs,
		Clock:          d.Clock,
		Logger:         d.Logger,
		OriginPatterns: d.OriginPatterns,
	}))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", CreateSession(d))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", GetSession(d))
			r.Post("/players", JoinSession(d))
			r.Post("/actions", SessionAction(d))
			r.Get("/qr", SessionQR(d))
		})
	})

	r.Post("/users", CreateUser(d))
	r.Get("/users/{id}", GetUser(d))
	r.Get("/leaderboard", Leaderboard(d))
	return r
}

// requestLogger logs one line per request. Websocket upgrades are logged by
// the ws package instead since they last for the whole connection.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
