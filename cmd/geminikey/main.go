package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ugcstudio/internal/infra"
	"ugcstudio/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		keyFlag    string
		modelsFlag string
		revoke     bool
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.StringVar(&modelsFlag, "models", "", "comma separated models the key was validated for")
	flag.BoolVar(&revoke, "revoke", false, "remove the stored key instead of writing one")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = cfg.GeminiAPIKey
	}
	if key == "" && !revoke {
		fmt.Fprintln(os.Stderr, "GEMINI API key is required via -key or environment")
		os.Exit(1)
	}

	pool, err := infra.NewDBPool(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", cfg.LogLevel).With().Str("cmd", "geminikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger, cfg.SlowQueryThreshold))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if revoke {
		if err := store.Revoke(ctx, credentials.ProviderGemini); err != nil {
			fmt.Fprintf(os.Stderr, "failed to revoke gemini api key: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("GEMINI API key revoked")
		return
	}

	var models []string
	for _, m := range strings.Split(modelsFlag, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		models = []string{cfg.PlannerModel, cfg.ImageModel}
	}

	if err := store.SetGeminiAPIKey(ctx, key, models...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist gemini api key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("GEMINI API key stored successfully")
}
