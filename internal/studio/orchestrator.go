package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/infra"
	"ugcstudio/internal/providers/genai"
	"ugcstudio/internal/providers/image"
	"ugcstudio/internal/providers/planner"
)

// Options wires the studio to its providers.
type Options struct {
	Planner     planner.Planner
	Images      image.Generator
	// DefaultBrand resolves the effective brand and style of requests that
	// leave them empty.
	DefaultBrand string
	AspectRatio  domain.AspectRatio
	// Concurrency above one enables the bounded variant. Results are still
	// published in plan order.
	Concurrency int
	// Interval is the minimum spacing between image calls across all runs.
	Interval time.Duration
	Logger   *infra.Logger
}

// Studio plans runs and materializes their assets.
type Studio struct {
	planner      planner.Planner
	images       image.Generator
	defaultBrand string
	aspect       domain.AspectRatio
	concurrency  int
	limiter      *rate.Limiter
	logger       *infra.Logger
}

// Report lists labels by outcome in plan order.
type Report struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

func New(opts Options) (*Studio, error) {
	if opts.Planner == nil {
		return nil, errors.New("studio: planner is required")
	}
	if opts.Images == nil {
		return nil, errors.New("studio: image generator is required")
	}
	aspect := opts.AspectRatio
	if aspect == "" {
		aspect = domain.DefaultAssetAspectRatio
	}
	if _, err := domain.ParseAspectRatio(string(aspect)); err != nil {
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}
	s := &Studio{
		planner:      opts.Planner,
		images:       opts.Images,
		defaultBrand: opts.DefaultBrand,
		aspect:       aspect,
		concurrency:  concurrency,
		logger:       logger,
	}
	if opts.Interval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}
	return s, nil
}

// Plan validates the run's request and issues the single planning call. On
// failure the run is marked failed and materialization must not start.
func (s *Studio) Plan(ctx context.Context, run *Run, obs Observer) (*domain.ContentPlan, error) {
	obs = observerOrNop(obs)
	ctx, stop := bindRun(ctx, run)
	defer stop()

	req := run.Request()
	if err := req.Validate(); err != nil {
		run.fail(err)
		obs.Notify(s.event(run, EventPlanFailed, "", -1, 0, err.Error()))
		return nil, err
	}
	brand, style := planner.Effective(req, s.defaultBrand)
	if !run.setPlanning(brand, style) {
		return nil, domain.ErrRunSuperseded
	}
	obs.Notify(s.event(run, EventPlanning, "", -1, 0, ""))

	plan, err := s.planner.Plan(ctx, req)
	if !run.Active() {
		return nil, domain.ErrRunSuperseded
	}
	if err == nil {
		err = plan.Validate(0)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrPlanningFailed) && !errors.Is(err, domain.ErrInvalidRequest) {
			err = fmt.Errorf("%w: %w", domain.ErrPlanningFailed, err)
		}
		run.fail(err)
		s.logger.Warn().Err(err).Str("run_id", run.ID()).Msg("studio: planning failed")
		obs.Notify(s.event(run, EventPlanFailed, "", -1, 0, err.Error()))
		return nil, err
	}
	if !run.setPlan(plan) {
		return nil, domain.ErrRunSuperseded
	}

	s.logger.Info().
		Str("run_id", run.ID()).
		Int("assets", len(plan.Assets)).
		Msg("studio: plan ready")
	obs.Notify(s.event(run, EventPlanReady, "", -1, len(plan.Assets), plan.Summary))
	return run.Plan(), nil
}

// Materialize issues one image call per planned asset. A failed asset is
// recorded and skipped; it never aborts the run.
func (s *Studio) Materialize(ctx context.Context, run *Run, obs Observer) (Report, error) {
	obs = observerOrNop(obs)
	ctx, stop := bindRun(ctx, run)
	defer stop()

	plan, ok := run.beginMaterialize()
	if !ok {
		if !run.Active() {
			return Report{}, domain.ErrRunSuperseded
		}
		return Report{}, fmt.Errorf("%w: run %s has no plan", domain.ErrInvalidRequest, run.ID())
	}

	var (
		report Report
		err    error
	)
	if s.concurrency > 1 {
		report, err = s.materializeBounded(ctx, run, plan, obs)
	} else {
		report, err = s.materializeSequential(ctx, run, plan, obs)
	}
	if err != nil {
		s.logger.Info().Str("run_id", run.ID()).Msg("studio: stale run discarded")
		return report, err
	}

	if !run.complete() {
		return report, domain.ErrRunSuperseded
	}
	s.logger.Info().
		Str("run_id", run.ID()).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Msg("studio: run completed")
	obs.Notify(s.event(run, EventCompleted, "", -1, len(plan.Assets),
		fmt.Sprintf("%d of %d assets ready", len(report.Succeeded), len(plan.Assets))))
	return report, nil
}

// Execute plans and then materializes the run.
func (s *Studio) Execute(ctx context.Context, run *Run, obs Observer) (Report, error) {
	if _, err := s.Plan(ctx, run, obs); err != nil {
		return Report{}, err
	}
	return s.Materialize(ctx, run, obs)
}

type outcome struct {
	img *domain.Image
	err error
}

func (s *Studio) materializeSequential(ctx context.Context, run *Run, plan *domain.ContentPlan, obs Observer) (Report, error) {
	var report Report
	for i, asset := range plan.Assets {
		if !s.start(run, obs, i, len(plan.Assets), asset.Label) {
			return report, domain.ErrRunSuperseded
		}
		img, err := s.generate(ctx, run, asset)
		if err := s.settle(run, obs, i, len(plan.Assets), asset.Label, outcome{img: img, err: err}, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// materializeBounded runs up to s.concurrency image calls at once and
// publishes results through a reorder buffer so reveal order stays plan order.
func (s *Studio) materializeBounded(ctx context.Context, run *Run, plan *domain.ContentPlan, obs Observer) (Report, error) {
	n := len(plan.Assets)
	results := make([]outcome, n)
	ready := make([]chan struct{}, n)
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	spawned := make(chan struct{})
	go func() {
		defer close(spawned)
		for i, asset := range plan.Assets {
			i, asset := i, asset
			g.Go(func() error {
				defer close(ready[i])
				if err := ctx.Err(); err != nil {
					results[i] = outcome{err: err}
					return nil
				}
				img, err := s.generate(ctx, run, asset)
				results[i] = outcome{img: img, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()
	defer func() { <-spawned }()

	var report Report
	for i, asset := range plan.Assets {
		if !s.start(run, obs, i, n, asset.Label) {
			return report, domain.ErrRunSuperseded
		}
		<-ready[i]
		if err := s.settle(run, obs, i, n, asset.Label, results[i], &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Studio) generate(ctx context.Context, run *Run, asset domain.AssetSpec) (*domain.Image, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req := run.Request()
	return s.images.Generate(ctx, image.Request{
		Prompt:      asset.ImagePrompt,
		AspectRatio: s.aspect,
		Reference:   req.Reference(domain.ReferenceProduct),
		RunID:       run.ID(),
		Label:       asset.Label,
	})
}

func (s *Studio) start(run *Run, obs Observer, index, total int, label string) bool {
	if !run.setProgress(label) {
		return false
	}
	obs.Notify(s.event(run, EventAssetStarted, label, index, total, ""))
	return true
}

// settle publishes one outcome. Only a superseded run returns an error.
func (s *Studio) settle(run *Run, obs Observer, index, total int, label string, res outcome, report *Report) error {
	err := res.err
	if err == nil && (res.img == nil || res.img.Empty()) {
		err = genai.ErrNoImage
	}
	if err == nil {
		err = run.publish(label, *res.img)
		if errors.Is(err, domain.ErrRunSuperseded) {
			return err
		}
	}
	if err != nil {
		if !run.Active() {
			return domain.ErrRunSuperseded
		}
		reason := genai.Classify(err)
		if reason == "" {
			reason = genai.ReasonProvider
		}
		s.logger.Warn().
			Err(err).
			Str("run_id", run.ID()).
			Str("label", label).
			Int("index", index).
			Str("reason", reason).
			Msg("studio: asset generation failed")
		run.recordFailure(label, reason)
		report.Failed = append(report.Failed, label)
		obs.Notify(s.event(run, EventAssetFailed, label, index, total, fmt.Errorf("%w: %w", domain.ErrAssetFailed, err).Error()))
		return nil
	}

	report.Succeeded = append(report.Succeeded, label)
	s.logger.Debug().Str("run_id", run.ID()).Str("label", label).Int("index", index).Msg("studio: asset ready")
	obs.Notify(s.event(run, EventAssetReady, label, index, total, ""))
	return nil
}

func (s *Studio) event(run *Run, kind EventKind, label string, index, total int, msg string) Event {
	return Event{
		Kind:      kind,
		RunID:     run.ID(),
		Workspace: run.Workspace(),
		Label:     label,
		Index:     index,
		Total:     total,
		Message:   msg,
		At:        time.Now().UTC(),
	}
}

// bindRun derives a context that is also cancelled when the run is abandoned.
func bindRun(ctx context.Context, run *Run) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(run.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func observerOrNop(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
