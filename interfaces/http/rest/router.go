package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/infrastructure/config"
	"elbiefit/interfaces/http/rest/handlers"
	"elbiefit/interfaces/http/rest/middleware"
	"elbiefit/interfaces/http/rest/views"
	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/observability"
)

// Dependencies are the collaborators the handlers are built from
type Dependencies struct {
	Workouts  ports.WorkoutRepository
	Exercises ports.ExerciseRepository
	Profiles  ports.ProfileRepository
	DemoReset DemoService
	Verifier  middleware.TokenVerifier
	Provider  handlers.CodeExchanger
	Limiter   middleware.Hitter
	Metrics   *observability.Collector
	Clock     ports.Clock
}

// DemoService resets the demo account and recognises its user
type DemoService interface {
	handlers.DemoResetter
	IsDemoUser(userSub string) bool
}

// Router creates and configures the HTTP router
type Router struct {
	cfg    *config.Config
	deps   Dependencies
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Router {
	return &Router{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() (*chi.Mux, error) {
	pages, err := views.New(views.Options{
		DefaultTheme: rt.cfg.Theme.Default,
		IsDemoUser:   rt.deps.DemoReset.IsDemoUser,
		Clock:        rt.deps.Clock,
	}, rt.logger)
	if err != nil {
		return nil, err
	}
	errs := apperrors.NewErrorHandler(rt.logger, pages, rt.cfg.IsDevelopment())
	resp := handlers.NewResponder(pages, errs, rt.deps.Metrics, rt.logger)
	authn := middleware.NewAuthenticator(rt.deps.Verifier, errs, rt.logger)

	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	if rt.deps.Metrics != nil {
		router.Use(rt.deps.Metrics.Middleware(rt.cfg.ProjectName))
	}
	router.Use(errs.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if len(rt.cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger"},
			ExposedHeaders:   []string{"X-Request-ID", "HX-Trigger", "HX-Redirect"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.Theme(middleware.ThemeOptions{
		Default:          rt.cfg.Theme.Default,
		Themes:           rt.cfg.Theme.Themes,
		ExcludedPrefixes: rt.cfg.Theme.ExcludedPrefixes,
	}))
	router.Use(middleware.RateLimit(rt.deps.Limiter, middleware.RateLimitOptions{
		Enabled:          rt.cfg.RateLimit.Enabled && rt.deps.Limiter != nil,
		ReadPerMin:       rt.cfg.RateLimit.ReadPerMin,
		WritePerMin:      rt.cfg.RateLimit.WritePerMin,
		DemoReadPerMin:   rt.cfg.RateLimit.DemoReadPerMin,
		DemoWritePerMin:  rt.cfg.RateLimit.DemoWritePerMin,
		TTL:              rt.cfg.RateLimit.TTL,
		ExcludedPrefixes: rt.cfg.RateLimit.ExcludedPrefixes,
		DemoCookieName:   rt.cfg.Demo.SessionCookieName,
	}, errs, rt.deps.Metrics, rt.logger))

	home := handlers.NewHomeHandler(resp, handlers.AppInfo{
		AppName:     rt.cfg.ProjectName,
		Version:     rt.cfg.Version,
		BuildTime:   rt.cfg.BuildTime,
		Environment: rt.cfg.Environment,
	})
	router.NotFound(home.NotFound)
	router.Get("/", home.Home)
	router.Get("/healthz", home.Health)
	router.Get("/meta", home.Meta)
	if rt.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	authHandler := handlers.NewAuthHandler(resp, rt.deps.Provider, rt.deps.Verifier, rt.deps.Profiles, rt.cfg.Theme.Themes)
	router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.With(authn.RequireJSON).Get("/me", authHandler.Me)
	})

	// Everything below needs a signed-in user
	router.Group(func(r chi.Router) {
		r.Use(authn.Require)

		workouts := handlers.NewWorkoutHandler(resp, rt.deps.Workouts, rt.deps.Exercises, rt.deps.Profiles, rt.deps.Clock)
		sets := handlers.NewSetHandler(resp, rt.deps.Workouts, rt.deps.Exercises, rt.deps.Profiles)
		r.Route("/workout", func(r chi.Router) {
			r.Get("/all", workouts.All)
			r.Get("/new-form", workouts.NewForm)
			r.Post("/create", workouts.Create)

			r.Route("/{date}/{workoutID}", func(r chi.Router) {
				r.Get("/", workouts.Detail)
				r.Delete("/", workouts.Delete)
				r.Get("/edit-meta", workouts.EditMetaForm)
				r.Post("/meta", workouts.UpdateMeta)

				r.Get("/set/form", sets.Form)
				r.Post("/set/add", sets.Add)
				r.Get("/set/{setNumber}/edit", sets.EditForm)
				r.Post("/set/{setNumber}", sets.Edit)
				r.Delete("/set/{setNumber}", sets.Delete)
			})
		})

		exercises := handlers.NewExerciseHandler(resp, rt.deps.Exercises)
		r.Get("/exercise/all", exercises.All)

		profile := handlers.NewProfileHandler(resp, rt.deps.Profiles, rt.cfg.Theme.Themes)
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profile.Get)
			r.Post("/account", profile.UpdateAccount)
			r.Post("/preferences", profile.UpdatePreferences)
		})

		demo := handlers.NewDemoHandler(resp, rt.deps.DemoReset)
		r.Post("/demo/reset", demo.Reset)
	})

	return router, nil
}
