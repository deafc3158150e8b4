package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/clubman/internal/metrics"
	"github.com/hitoshi/clubman/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CookieDomain      string
	CookieSecure      bool

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer

	// ドメインサービス
	AuthService      AuthServiceInterface
	UserService      UserServiceInterface
	AthleteService   AthleteServiceInterface
	TeamService      TeamServiceInterface
	EventService     EventServiceInterface
	DashboardService DashboardServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics →（認証グループのみ）Auth → RateLimit(General) → CSRF
//
// 認証ルート（/auth/signup, /auth/signin）は認証グループの外に置き、
// IP単位の認証用レート制限のみを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.CookieSecure,
		CookieDomain: deps.CookieDomain,
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.UserFinder, deps.Metrics, AuthHandlerConfig{
		CookieDomain: deps.CookieDomain,
		CookieSecure: deps.CookieSecure,
	})
	userHandler := NewUserHandler(deps.UserService)
	athleteHandler := NewAthleteHandler(deps.AthleteService)
	teamHandler := NewTeamHandler(deps.TeamService)
	eventHandler := NewEventHandler(deps.EventService, deps.Metrics)
	dashboardHandler := NewDashboardHandler(deps.DashboardService)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		if err := deps.HealthChecker.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	// 認証ルートは総当たり対策としてIP単位のレート制限を適用する
	r.Route("/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/signup", authHandler.SignUp)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/signin", authHandler.SignIn)
		r.Post("/logout", authHandler.Logout)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))

		r.Get("/auth/me", authHandler.Me)

		// ユーザー管理（ADMIN/STAFF専用、認可はサービス層で判定）
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		// 選手管理
		r.Route("/api/athletes", func(r chi.Router) {
			r.Get("/", athleteHandler.List)
			r.Post("/", athleteHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", athleteHandler.Get)
				r.Put("/", athleteHandler.Update)
				r.Delete("/", athleteHandler.Delete)
			})
		})

		// チーム管理
		r.Route("/api/teams", func(r chi.Router) {
			r.Get("/", teamHandler.List)
			r.Post("/", teamHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", teamHandler.Get)
				r.Put("/", teamHandler.Update)
				r.Delete("/", teamHandler.Delete)
				r.Get("/roster", teamHandler.Roster)

				r.Post("/coaches", teamHandler.AddCoach)
				r.Delete("/coaches/{coachId}", teamHandler.RemoveCoach)
				r.Post("/athletes", teamHandler.AddAthlete)
				r.Delete("/athletes/{athleteId}", teamHandler.RemoveAthlete)
			})
		})

		// イベント管理
		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Post("/", eventHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.Get)
				r.Put("/", eventHandler.Update)
				r.Delete("/", eventHandler.Delete)

				r.Post("/invitations", eventHandler.Invite)
				r.Post("/rsvp", eventHandler.RSVP)
			})
		})

		// ダッシュボード
		r.Get("/api/dashboard/overview", dashboardHandler.Overview)
		r.Get("/api/player-profile", dashboardHandler.PlayerProfile)
	})

	return r
}
