package studio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ugcstudio/internal/domain"
)

// Status is the lifecycle stage of a run.
type Status string

const (
	StatusPlanning      Status = "planning"
	StatusMaterializing Status = "materializing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusSuperseded    Status = "superseded"
)

// AssetState is the per-card state shown to the user.
type AssetState string

const (
	AssetPending    AssetState = "pending"
	AssetGenerating AssetState = "generating"
	AssetReady      AssetState = "ready"
	AssetFailed     AssetState = "failed"
)

// Run carries the whole state of one generation run. It replaces ambient UI
// state: everything a run mutates lives here and nowhere else.
type Run struct {
	id        string
	workspace string
	request   domain.GenerationRequest
	createdAt time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu         sync.RWMutex
	brand      string
	style      domain.Style
	status     Status
	abandoned  bool
	plan       *domain.ContentPlan
	gallery    *domain.AssetGallery
	loading    bool
	progress   string
	failures   map[string]string
	errMsg     string
	finishedAt time.Time
}

// NewRun creates a run in the planning state. Its context is derived from
// parent and is cancelled by Abandon.
func NewRun(parent context.Context, workspace string, req domain.GenerationRequest) *Run {
	ctx, cancel := context.WithCancel(parent)
	return &Run{
		id:        uuid.NewString(),
		workspace: workspace,
		request:   req.Clone(),
		createdAt: time.Now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		brand:     req.Brand,
		style:     req.Style,
		status:    StatusPlanning,
		loading:   true,
		failures:  map[string]string{},
	}
}

func (r *Run) ID() string                        { return r.id }
func (r *Run) Workspace() string                 { return r.workspace }
func (r *Run) Context() context.Context          { return r.ctx }
func (r *Run) CreatedAt() time.Time              { return r.createdAt }
func (r *Run) Request() domain.GenerationRequest { return r.request.Clone() }

func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Active reports whether the run may still publish results.
func (r *Run) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.abandoned
}

// Abandon detaches the run from its workspace. In-flight provider calls are
// cancelled and no further gallery writes are accepted. It returns false if
// the run was already abandoned.
func (r *Run) Abandon() bool {
	r.mu.Lock()
	if r.abandoned {
		r.mu.Unlock()
		return false
	}
	r.abandoned = true
	if r.status == StatusPlanning || r.status == StatusMaterializing {
		r.status = StatusSuperseded
		r.loading = false
		r.progress = ""
		r.finishedAt = time.Now().UTC()
	}
	r.mu.Unlock()
	r.cancel()
	r.settle()
	return true
}

// Done is closed once the run reaches a terminal status.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// settle closes Done and releases the run context.
func (r *Run) settle() {
	r.doneOnce.Do(func() { close(r.done) })
	r.cancel()
}

// Plan returns a copy of the run's plan, or nil before planning succeeds.
func (r *Run) Plan() *domain.ContentPlan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.plan == nil {
		return nil
	}
	p := r.plan.Clone()
	return &p
}

// Image returns a materialized image by label.
func (r *Run) Image(label string) (domain.Image, bool) {
	r.mu.RLock()
	gallery := r.gallery
	r.mu.RUnlock()
	if gallery == nil {
		return domain.Image{}, false
	}
	return gallery.Get(label)
}

// Gallery returns the materialized entries in visibility order.
func (r *Run) Gallery() []domain.GalleryEntry {
	r.mu.RLock()
	gallery := r.gallery
	r.mu.RUnlock()
	if gallery == nil {
		return nil
	}
	return gallery.Snapshot()
}

// Failures returns the failure reason per label.
func (r *Run) Failures() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.failures))
	for k, v := range r.failures {
		out[k] = v
	}
	return out
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	switch r.Status() {
	case StatusCompleted, StatusFailed, StatusSuperseded:
		return true
	}
	return false
}

// setPlanning records the brand and style the plan is built with.
func (r *Run) setPlanning(brand string, style domain.Style) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	r.brand = brand
	r.style = style
	r.status = StatusPlanning
	r.loading = true
	r.progress = ""
	return true
}

func (r *Run) setPlan(plan *domain.ContentPlan) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	p := plan.Clone()
	r.plan = &p
	r.gallery = domain.NewAssetGallery(p)
	r.failures = map[string]string{}
	r.status = StatusMaterializing
	return true
}

// beginMaterialize discards any previous gallery so results never merge.
func (r *Run) beginMaterialize() (*domain.ContentPlan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned || r.plan == nil {
		return nil, false
	}
	r.gallery = domain.NewAssetGallery(*r.plan)
	r.failures = map[string]string{}
	r.status = StatusMaterializing
	r.loading = true
	p := r.plan.Clone()
	return &p, true
}

func (r *Run) setProgress(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	r.progress = label
	return true
}

// publish is the guarded gallery write: the identity check and the insert
// happen under the same lock.
func (r *Run) publish(label string, img domain.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return domain.ErrRunSuperseded
	}
	return r.gallery.Put(label, img)
}

func (r *Run) recordFailure(label, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	r.failures[label] = reason
	return true
}

func (r *Run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return
	}
	r.status = StatusFailed
	r.loading = false
	r.progress = ""
	r.errMsg = err.Error()
	r.finishedAt = time.Now().UTC()
	r.settle()
}

func (r *Run) complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	r.status = StatusCompleted
	r.loading = false
	r.progress = ""
	r.finishedAt = time.Now().UTC()
	r.settle()
	return true
}
