package studio

import (
	"time"

	"ugcstudio/internal/domain"
)

// AssetView is one card of the result grid.
type AssetView struct {
	Label       string     `json:"label"`
	ImagePrompt string     `json:"image_prompt"`
	VideoPrompt string     `json:"video_prompt"`
	State       AssetState `json:"state"`
	MIMEType    string     `json:"mime_type,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// Snapshot is an immutable view of a run.
type Snapshot struct {
	ID          string      `json:"id"`
	Workspace   string      `json:"workspace"`
	ProductName string      `json:"product_name"`
	Style       string      `json:"style,omitempty"`
	Brand       string      `json:"brand,omitempty"`
	Status      Status      `json:"status"`
	Loading     bool        `json:"loading"`
	Progress    string      `json:"progress,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Caption     string      `json:"caption,omitempty"`
	Assets      []AssetView `json:"assets"`
	Ready       []string    `json:"ready"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}

// Snapshot captures the run's current state.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		ID:          r.id,
		Workspace:   r.workspace,
		ProductName: r.request.ProductName,
		Style:       string(r.style),
		Brand:       r.brand,
		Status:      r.status,
		Loading:     r.loading,
		Progress:    r.progress,
		Assets:      []AssetView{},
		Ready:       []string{},
		Error:       r.errMsg,
		CreatedAt:   r.createdAt,
	}
	if !r.finishedAt.IsZero() {
		finished := r.finishedAt
		snap.FinishedAt = &finished
	}
	if r.plan == nil {
		return snap
	}

	snap.Summary = r.plan.Summary
	snap.Caption = r.plan.Caption
	if r.gallery != nil {
		snap.Ready = r.gallery.Labels()
	}
	for _, asset := range r.plan.Assets {
		view := AssetView{
			Label:       asset.Label,
			ImagePrompt: asset.ImagePrompt,
			VideoPrompt: asset.VideoPrompt,
			State:       AssetPending,
		}
		if img, ok := r.readyImage(asset.Label); ok {
			view.State = AssetReady
			view.MIMEType = img.MIMEType
		} else if reason, failed := r.failures[asset.Label]; failed {
			view.State = AssetFailed
			view.Reason = reason
		} else if r.loading && r.progress == asset.Label {
			view.State = AssetGenerating
		}
		snap.Assets = append(snap.Assets, view)
	}
	return snap
}

func (r *Run) readyImage(label string) (domain.Image, bool) {
	if r.gallery == nil {
		return domain.Image{}, false
	}
	return r.gallery.Get(label)
}
