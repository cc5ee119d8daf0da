package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ugcstudio/internal/adapter/repo"
	"ugcstudio/internal/http/handlers"
	httpapi "ugcstudio/internal/http/httpapi"
	"ugcstudio/internal/infra"
	"ugcstudio/internal/infra/credentials"
	"ugcstudio/internal/infra/geoip"
	"ugcstudio/internal/providers/genai"
	"ugcstudio/internal/providers/image"
	"ugcstudio/internal/providers/planner"
	"ugcstudio/internal/session"
	"ugcstudio/internal/storage"
	"ugcstudio/internal/studio"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		journal session.Journal
		apiKey  = cfg.GeminiAPIKey
	)
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		runner := infra.NewSQLRunner(dbpool, logger, cfg.SlowQueryThreshold)
		if err := repo.EnsureSchema(ctx, runner); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare database schema")
		}
		journal = repo.NewRunRepository(runner)

		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		apiKey, err = credentials.NewStore(runner).ResolveGeminiAPIKey(lookupCtx, cfg.GeminiAPIKey)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("stored gemini key unavailable")
			apiKey = cfg.GeminiAPIKey
		}
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: infra.NewHTTPClient(cfg.ProviderTimeout),
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	var (
		plans   planner.Planner
		stories planner.StoryPlanner
	)
	if client.Synthetic() {
		logger.Warn().Msg("GEMINI_API_KEY not set; running offline with static plans and synthetic images")
		static := planner.NewStaticPlanner(cfg.BrandProfile)
		plans, stories = static, static
	} else {
		gemini, err := planner.NewGeminiPlanner(planner.GeminiOptions{
			Client:       client,
			Model:        cfg.PlannerModel,
			DefaultBrand: cfg.BrandProfile,
			Logger:       &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build planner")
		}
		plans, stories = gemini, gemini
	}

	st, err := studio.New(studio.Options{
		Planner:      plans,
		Images:       image.NewGeminiGenerator(client, cfg.ImageModel),
		DefaultBrand: cfg.BrandProfile,
		AspectRatio:  cfg.AssetAspectRatio,
		Concurrency:  cfg.MaterializeConcurrency,
		Interval:     cfg.ProviderInterval,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build studio")
	}

	var store session.ImageStore
	if cfg.StoragePath != "" {
		fs, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare storage")
		}
		store = fs
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	board, err := session.NewBoard(ctx, session.Options{
		Studio:  st,
		Journal: journal,
		Store:   store,
		TTL:     cfg.RunTTL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build board")
	}

	app := &handlers.App{
		Config:    *cfg,
		Board:     board,
		Stories:   stories,
		Logger:    logger,
		Synthetic: client.Synthetic(),
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
	})

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().Str("mode", modeName(client)).Str("addr", server.Addr()).Msg("API listening")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server stopped with error")
	}
	board.Close()
	logger.Info().Msg("server stopped")
}

func modeName(client *genai.Client) string {
	if client.Synthetic() {
		return "offline"
	}
	return "gemini"
}
