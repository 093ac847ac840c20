package routes

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/livescore/handlers"
	"github.com/Dosada05/livescore/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	AllowedOrigins []string
	WriteLimiter   *middleware.IPRateLimiter
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	matchHandler *handlers.MatchHandler,
	leagueHandler *handlers.LeagueHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// The socket is outside the CORS group; the upgrader checks origins itself.
	router.Get("/ws", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.Route("/api/matches", func(r chi.Router) {
			r.Get("/", matchHandler.ListMatches)
			r.Get("/{matchID}", matchHandler.GetMatch)

			r.Group(func(r chi.Router) {
				if opts.WriteLimiter != nil {
					r.Use(middleware.RateLimit(opts.WriteLimiter))
				}
				r.Post("/", matchHandler.CreateMatch)
				r.Post("/{matchID}/score", matchHandler.UpdateScore)
				r.Post("/{matchID}/events", matchHandler.AppendEvent)
				r.Post("/{matchID}/status", matchHandler.ChangeStatus)
				r.Post("/{matchID}/clock", matchHandler.UpdateClock)
			})
		})

		r.Route("/api/leagues", func(r chi.Router) {
			r.Get("/", leagueHandler.ListLeagues)
			r.Get("/{leagueID}/seasons", leagueHandler.ListSeasons)
			r.Get("/{leagueID}/seasons/{seasonID}/standings", leagueHandler.GetStandings)
			r.Get("/{leagueID}/seasons/{seasonID}/rounds", leagueHandler.GetRounds)

			r.Group(func(r chi.Router) {
				if opts.WriteLimiter != nil {
					r.Use(middleware.RateLimit(opts.WriteLimiter))
				}
				r.Post("/{leagueID}/seasons/{seasonID}/standings/refresh", leagueHandler.RefreshStandings)
			})
		})

		r.Route("/api/teams", func(r chi.Router) {
			r.Get("/", leagueHandler.ListTeams)
			r.Get("/{teamID}", leagueHandler.GetTeam)
		})
	})
}
