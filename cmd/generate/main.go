package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/infra"
	"ugcstudio/internal/providers/genai"
	"ugcstudio/internal/providers/image"
	"ugcstudio/internal/providers/planner"
	"ugcstudio/internal/storage"
	"ugcstudio/internal/studio"
	"ugcstudio/pkg/zip"
)

func main() {
	_ = godotenv.Load()

	var (
		product      string
		instructions string
		style        string
		scenes       int
		lang         string
		brand        string
		aspect       string
		productImage string
		modelImage   string
		outDir       string
		archivePath  string
		concurrency  int
	)
	flag.StringVar(&product, "product", "", "product name (required)")
	flag.StringVar(&instructions, "instructions", "", "extra creative direction")
	flag.StringVar(&style, "style", "", "basic, testimonial, unboxing or talking_head")
	flag.IntVar(&scenes, "scenes", 0, "number of assets; 0 keeps the brand default")
	flag.StringVar(&lang, "lang", "", "caption language tag (defaults to DEFAULT_LOCALE)")
	flag.StringVar(&brand, "brand", "", "brand profile key")
	flag.StringVar(&aspect, "aspect", "", "asset aspect ratio (defaults to ASSET_ASPECT_RATIO)")
	flag.StringVar(&productImage, "product-image", "", "path to a product reference image")
	flag.StringVar(&modelImage, "model-image", "", "path to a model reference image")
	flag.StringVar(&outDir, "out", "out", "directory for generated assets")
	flag.StringVar(&archivePath, "zip", "", "also write a zip archive to this path")
	flag.IntVar(&concurrency, "concurrency", 0, "parallel image calls (defaults to MATERIALIZE_CONCURRENCY)")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fail("load config: %v", err)
	}
	logger := infra.NewLogger("cli", cfg.LogLevel).With().Str("cmd", "generate").Logger()

	req, err := buildRequest(product, instructions, style, scenes, lang, brand, productImage, modelImage)
	if err != nil {
		fail("%v", err)
	}
	if req.Language == "" {
		req.Language = cfg.DefaultLocale
	}

	assetAspect := cfg.AssetAspectRatio
	if aspect != "" {
		if assetAspect, err = domain.ParseAspectRatio(aspect); err != nil {
			fail("%v", err)
		}
	}
	if concurrency <= 0 {
		concurrency = cfg.MaterializeConcurrency
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: infra.NewHTTPClient(cfg.ProviderTimeout),
		Logger:     &logger,
	})
	if err != nil {
		fail("gemini client: %v", err)
	}

	var plans planner.Planner = planner.NewStaticPlanner(cfg.BrandProfile)
	if !client.Synthetic() {
		plans, err = planner.NewGeminiPlanner(planner.GeminiOptions{
			Client:       client,
			Model:        cfg.PlannerModel,
			DefaultBrand: cfg.BrandProfile,
			Logger:       &logger,
		})
		if err != nil {
			fail("planner: %v", err)
		}
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set; using static plan and synthetic images")
	}

	st, err := studio.New(studio.Options{
		Planner:      plans,
		Images:       image.NewGeminiGenerator(client, cfg.ImageModel),
		DefaultBrand: cfg.BrandProfile,
		AspectRatio:  assetAspect,
		Concurrency:  concurrency,
		Interval:     cfg.ProviderInterval,
		Logger:       &logger,
	})
	if err != nil {
		fail("studio: %v", err)
	}

	store, err := storage.NewFileStore(outDir)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := studio.NewRun(ctx, "cli", req)
	observer := studio.ObserverFunc(func(e studio.Event) {
		switch e.Kind {
		case studio.EventPlanReady:
			fmt.Printf("plan ready: %d assets\n", e.Total)
		case studio.EventAssetStarted:
			fmt.Printf("[%d/%d] %s ...\n", e.Index+1, e.Total, e.Label)
		case studio.EventAssetReady:
			img, ok := run.Image(e.Label)
			if !ok {
				return
			}
			key := storage.AssetKey(run.ID(), e.Index, e.Label, img.MIMEType)
			if _, err := store.Write(ctx, key, img.Data); err != nil {
				logger.Error().Err(err).Str("label", e.Label).Msg("write asset failed")
				return
			}
			fmt.Printf("[%d/%d] %s ready -> %s\n", e.Index+1, e.Total, e.Label, filepath.Join(outDir, key))
		case studio.EventAssetFailed:
			fmt.Printf("[%d/%d] %s failed: %s\n", e.Index+1, e.Total, e.Label, e.Message)
		}
	})

	report, err := st.Execute(ctx, run, observer)
	if err != nil {
		fail("generation failed: %v", err)
	}

	plan := run.Plan()
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		fail("encode plan: %v", err)
	}
	if _, err := store.Write(ctx, filepath.ToSlash(filepath.Join("runs", run.ID(), "plan.json")), planJSON); err != nil {
		fail("write plan: %v", err)
	}

	if archivePath != "" {
		if err := writeArchive(run, planJSON, archivePath); err != nil {
			fail("archive: %v", err)
		}
		fmt.Printf("archive written to %s\n", archivePath)
	}

	fmt.Printf("\ncaption:\n%s\n\n%d ready, %d failed\n", plan.Caption, len(report.Succeeded), len(report.Failed))
	if len(report.Succeeded) == 0 {
		os.Exit(2)
	}
}

func buildRequest(product, instructions, style string, scenes int, lang, brand, productImage, modelImage string) (domain.GenerationRequest, error) {
	parsedStyle, err := domain.ParseStyle(style)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	req := domain.GenerationRequest{
		ProductName:  product,
		Instructions: instructions,
		Style:        parsedStyle,
		SceneCount:   scenes,
		Language:     strings.TrimSpace(lang),
		Brand:        strings.TrimSpace(brand),
	}
	refs := []struct {
		role domain.ReferenceRole
		path string
	}{
		{domain.ReferenceProduct, productImage},
		{domain.ReferenceModel, modelImage},
	}
	for _, r := range refs {
		if r.path == "" {
			continue
		}
		ref, err := readReference(r.role, r.path)
		if err != nil {
			return domain.GenerationRequest{}, err
		}
		req.References = append(req.References, *ref)
	}
	if err := req.Validate(); err != nil {
		return domain.GenerationRequest{}, err
	}
	return req, nil
}

func readReference(role domain.ReferenceRole, path string) (*domain.ReferenceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s image: %w", role, err)
	}
	if len(data) == 0 {
		return nil, errors.New(string(role) + " image is empty")
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &domain.ReferenceImage{Role: role, MIMEType: mimeType, Data: data}, nil
}

func writeArchive(run *studio.Run, planJSON []byte, dest string) error {
	entries := []zip.Entry{{Filename: "plan.json", Data: planJSON}}
	for i, asset := range run.Plan().Assets {
		img, ok := run.Image(asset.Label)
		if !ok {
			continue
		}
		name := filepath.Base(storage.AssetKey(run.ID(), i, asset.Label, img.MIMEType))
		entries = append(entries, zip.Entry{Filename: name, Data: img.Data})
	}
	data, err := zip.Archive(entries, time.Now())
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
