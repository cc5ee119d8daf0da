package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/infra"
	"ugcstudio/internal/storage"
	"ugcstudio/internal/studio"
)

const persistTimeout = 30 * time.Second

// Journal records finished runs.
type Journal interface {
	RecordRun(ctx context.Context, rec domain.RunRecord) error
	ListRecent(ctx context.Context, workspace string, limit int) ([]domain.RunRecord, error)
	GetRun(ctx context.Context, id string) (domain.RunRecord, error)
}

// ImageStore persists materialized images.
type ImageStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// Options configures a Board. Journal and Store are optional.
type Options struct {
	Studio  *studio.Studio
	Hub     *Hub
	Journal Journal
	Store   ImageStore
	TTL     time.Duration
	Logger  *infra.Logger
}

// Board owns the active run of every workspace. Starting a run in a workspace
// abandons the previous one there; galleries are never merged.
type Board struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	studio  *studio.Studio
	hub     *Hub
	journal Journal
	store   ImageStore
	logger  *infra.Logger

	mu     sync.Mutex
	active map[string]*studio.Run
	runs   *cache.Cache
}

func NewBoard(ctx context.Context, opts Options) (*Board, error) {
	if opts.Studio == nil {
		return nil, errors.New("session: studio is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(opts.Logger, 0)
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Board{
		ctx:     ctx,
		cancel:  cancel,
		studio:  opts.Studio,
		hub:     hub,
		journal: opts.Journal,
		store:   opts.Store,
		logger:  logger,
		active:  map[string]*studio.Run{},
		runs:    cache.New(ttl, ttl),
	}, nil
}

func (b *Board) Hub() *Hub { return b.hub }

// Submit starts a run for workspace. Planning happens before Submit returns;
// materialization continues in the background. On planning failure the run
// is returned together with the error.
func (b *Board) Submit(ctx context.Context, workspace string, req domain.GenerationRequest) (*studio.Run, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, fmt.Errorf("session: board closed: %w", err)
	}
	run := studio.NewRun(b.ctx, workspace, req)

	b.mu.Lock()
	prev := b.active[workspace]
	b.active[workspace] = run
	b.mu.Unlock()
	if prev != nil && prev.Abandon() {
		b.logger.Info().
			Str("workspace", workspace).
			Str("run_id", prev.ID()).
			Str("superseded_by", run.ID()).
			Msg("session: run superseded")
	}
	b.runs.SetDefault(run.ID(), run)

	obs := b.observer(run)
	if _, err := b.studio.Plan(ctx, run, obs); err != nil {
		b.finish(run, nil)
		return run, err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		report, err := b.studio.Materialize(b.ctx, run, obs)
		if err != nil && !errors.Is(err, domain.ErrRunSuperseded) {
			b.logger.Error().Err(err).Str("run_id", run.ID()).Msg("session: materialization aborted")
		}
		b.finish(run, &report)
	}()
	return run, nil
}

// Get returns a run by ID while it is active or retained.
func (b *Board) Get(id string) (*studio.Run, error) {
	if v, ok := b.runs.Get(id); ok {
		return v.(*studio.Run), nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, run := range b.active {
		if run.ID() == id {
			return run, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
}

// Active returns the workspace's current run.
func (b *Board) Active(workspace string) (*studio.Run, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	run, ok := b.active[workspace]
	return run, ok
}

// History lists journaled runs. Without a journal it is always empty.
func (b *Board) History(ctx context.Context, workspace string, limit int) ([]domain.RunRecord, error) {
	if b.journal == nil {
		return []domain.RunRecord{}, nil
	}
	return b.journal.ListRecent(ctx, workspace, limit)
}

// StoredImage loads a persisted image of a journaled run. It serves runs that
// are no longer retained in memory.
func (b *Board) StoredImage(ctx context.Context, id, label string) (domain.Image, error) {
	if b.journal == nil || b.store == nil {
		return domain.Image{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	rec, err := b.journal.GetRun(ctx, id)
	if err != nil {
		return domain.Image{}, err
	}
	key, ok := rec.StorageKeys[label]
	if !ok {
		return domain.Image{}, fmt.Errorf("%w: %s/%s", storage.ErrNotFound, id, label)
	}
	data, err := b.store.Read(ctx, key)
	if err != nil {
		return domain.Image{}, err
	}
	return domain.Image{MIMEType: storage.MIMEForKey(key), Data: data}, nil
}

// Close stops background materialization and waits for pending persistence.
func (b *Board) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Board) isCurrent(run *studio.Run) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active[run.Workspace()] == run && run.Active()
}

func (b *Board) observer(run *studio.Run) studio.Observer {
	return studio.ObserverFunc(func(e studio.Event) {
		b.hub.Publish(RunTopic(run.ID()), e)
		if b.isCurrent(run) {
			b.hub.Publish(WorkspaceTopic(run.Workspace()), e)
		}
	})
}

// finish persists a terminal run. Images are stored only for runs that were
// not superseded.
func (b *Board) finish(run *studio.Run, report *studio.Report) {
	b.runs.SetDefault(run.ID(), run)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(b.ctx), persistTimeout)
	defer cancel()

	snap := run.Snapshot()
	keys := map[string]string{}
	if b.store != nil && snap.Status == studio.StatusCompleted {
		plan := run.Plan()
		for i, asset := range plan.Assets {
			img, ok := run.Image(asset.Label)
			if !ok {
				continue
			}
			key, err := b.store.Write(ctx, storage.AssetKey(run.ID(), i, asset.Label, img.MIMEType), img.Data)
			if err != nil {
				b.logger.Error().Err(err).Str("run_id", run.ID()).Str("label", asset.Label).Msg("session: persist image failed")
				continue
			}
			keys[asset.Label] = key
		}
	}

	if b.journal == nil {
		return
	}
	rec := domain.RunRecord{
		ID:          run.ID(),
		Workspace:   run.Workspace(),
		ProductName: snap.ProductName,
		Style:       snap.Style,
		Brand:       snap.Brand,
		Status:      string(snap.Status),
		Plan:        run.Plan(),
		Ready:       snap.Ready,
		StorageKeys: keys,
		StartedAt:   snap.CreatedAt,
		FinishedAt:  snap.FinishedAt,
	}
	if report != nil {
		rec.Failed = report.Failed
	}
	if err := b.journal.RecordRun(ctx, rec); err != nil {
		b.logger.Error().Err(err).Str("run_id", run.ID()).Msg("session: journal run failed")
	}
}
