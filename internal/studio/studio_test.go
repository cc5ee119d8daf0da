package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/providers/genai"
	"ugcstudio/internal/providers/image"
)

type fakePlanner struct {
	mu    sync.Mutex
	plan  *domain.ContentPlan
	err   error
	calls int
}

func (f *fakePlanner) Plan(_ context.Context, _ domain.GenerationRequest) (*domain.ContentPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := f.plan.Clone()
	return &p, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	fail     map[string]error
	delay    map[string]time.Duration
	block    chan struct{}
	calls    []string
	refs     []*domain.ReferenceImage
	aspects  []domain.AspectRatio
	inFlight int
	maxPar   int
	onCall   func(label string)
}

func (f *fakeGenerator) Generate(ctx context.Context, req image.Request) (*domain.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Label)
	f.refs = append(f.refs, req.Reference)
	f.aspects = append(f.aspects, req.AspectRatio)
	f.inFlight++
	if f.inFlight > f.maxPar {
		f.maxPar = f.inFlight
	}
	onCall := f.onCall
	delay := f.delay[req.Label]
	err := f.fail[req.Label]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if onCall != nil {
		onCall(req.Label)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.Image{MIMEType: "image/png", Data: []byte("img:" + req.Label)}, nil
}

func (f *fakeGenerator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = string(e.Kind)
		if e.Label != "" {
			out[i] += ":" + e.Label
		}
	}
	return out
}

var neoWatchLabels = []string{"Lifestyle", "Clean Shot", "Close-up", "Problem-Solution"}

func planWith(labels ...string) *domain.ContentPlan {
	plan := &domain.ContentPlan{Summary: "summary", Caption: "caption"}
	for _, label := range labels {
		plan.Assets = append(plan.Assets, domain.AssetSpec{
			Label:       label,
			ImagePrompt: "image of " + label,
			VideoPrompt: "video of " + label,
		})
	}
	return plan
}

func newTestStudio(t *testing.T, p *fakePlanner, g *fakeGenerator, concurrency int) *Studio {
	t.Helper()
	s, err := New(Options{Planner: p, Images: g, Concurrency: concurrency})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return s
}

func galleryLabels(run *Run) []string {
	entries := run.Gallery()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func neoWatchRequest() domain.GenerationRequest {
	return domain.GenerationRequest{ProductName: "Neo Watch", Style: domain.StyleBasic}
}

func TestNeoWatchScenario(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith(neoWatchLabels...)}
	g := &fakeGenerator{fail: map[string]error{"Close-up": errors.New("provider timeout")}}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", neoWatchRequest())

	report, err := s.Execute(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if got := strings.Join(g.Calls(), ","); got != strings.Join(neoWatchLabels, ",") {
		t.Fatalf("calls = %s", got)
	}
	if got := strings.Join(galleryLabels(run), ","); got != "Lifestyle,Clean Shot,Problem-Solution" {
		t.Fatalf("gallery = %s", got)
	}
	if _, ok := run.Image("Close-up"); ok {
		t.Fatalf("failed asset present in gallery")
	}
	if len(report.Succeeded) != 3 || len(report.Failed) != 1 || report.Failed[0] != "Close-up" {
		t.Fatalf("report = %+v", report)
	}

	snap := run.Snapshot()
	if snap.Status != StatusCompleted || snap.Loading {
		t.Fatalf("snapshot status = %s loading = %v", snap.Status, snap.Loading)
	}
	if snap.Assets[2].State != AssetFailed || snap.Assets[2].Reason != genai.ReasonTransport {
		t.Fatalf("close-up view = %+v", snap.Assets[2])
	}
	if snap.Assets[3].State != AssetReady || snap.Assets[3].VideoPrompt != "video of Problem-Solution" {
		t.Fatalf("problem-solution view = %+v", snap.Assets[3])
	}
}

func TestAllAssetsSucceed(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith(neoWatchLabels...)}
	g := &fakeGenerator{}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", neoWatchRequest())

	if _, err := s.Execute(context.Background(), run, nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	got := galleryLabels(run)
	if len(got) != len(neoWatchLabels) {
		t.Fatalf("gallery size = %d, want %d", len(got), len(neoWatchLabels))
	}
	for i, label := range neoWatchLabels {
		if got[i] != label {
			t.Fatalf("gallery[%d] = %q, want %q", i, got[i], label)
		}
		img, ok := run.Image(label)
		if !ok || string(img.Data) != "img:"+label {
			t.Fatalf("image for %q = %q", label, img.Data)
		}
	}
	if p.calls != 1 {
		t.Fatalf("planner calls = %d, want 1", p.calls)
	}
}

func TestSingleFailureAtEveryPosition(t *testing.T) {
	t.Parallel()
	labels := []string{"A", "B", "C", "D", "E"}
	for pos := range labels {
		pos := pos
		for _, concurrency := range []int{1, 3} {
			concurrency := concurrency
			t.Run(labels[pos]+"_"+string(rune('0'+concurrency)), func(t *testing.T) {
				t.Parallel()
				p := &fakePlanner{plan: planWith(labels...)}
				g := &fakeGenerator{fail: map[string]error{labels[pos]: &genai.APIError{StatusCode: 500}}}
				s := newTestStudio(t, p, g, concurrency)
				run := NewRun(context.Background(), "ws", neoWatchRequest())
				if _, err := s.Execute(context.Background(), run, nil); err != nil {
					t.Fatalf("Execute returned error: %v", err)
				}

				var want []string
				for i, l := range labels {
					if i != pos {
						want = append(want, l)
					}
				}
				if got := strings.Join(galleryLabels(run), ","); got != strings.Join(want, ",") {
					t.Fatalf("gallery = %s, want %s", got, strings.Join(want, ","))
				}
				if got := len(g.Calls()); got != len(labels) {
					t.Fatalf("image calls = %d, want %d", got, len(labels))
				}
			})
		}
	}
}

func TestGalleryHoldsOnlyPlanLabels(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A", "B", "C")}
	g := &fakeGenerator{fail: map[string]error{"B": genai.ErrNoImage}}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", neoWatchRequest())
	if _, err := s.Execute(context.Background(), run, nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	allowed := map[string]bool{"A": true, "B": true, "C": true}
	entries := run.Gallery()
	if len(entries) > 3 {
		t.Fatalf("gallery size = %d", len(entries))
	}
	for _, e := range entries {
		if !allowed[e.Label] {
			t.Fatalf("foreign label %q", e.Label)
		}
	}
}

func TestPlanningFailureIssuesNoImageCalls(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{err: errors.New("dial tcp: connection refused")}
	g := &fakeGenerator{}
	s := newTestStudio(t, p, g, 1)
	rec := &recorder{}
	run := NewRun(context.Background(), "ws", neoWatchRequest())

	_, err := s.Execute(context.Background(), run, rec)
	if !errors.Is(err, domain.ErrPlanningFailed) {
		t.Fatalf("err = %v, want ErrPlanningFailed", err)
	}
	if len(g.Calls()) != 0 {
		t.Fatalf("image calls = %v, want none", g.Calls())
	}
	if run.Status() != StatusFailed {
		t.Fatalf("status = %s, want failed", run.Status())
	}
	if got := strings.Join(rec.Kinds(), ","); got != "planning,plan_failed" {
		t.Fatalf("events = %s", got)
	}
	if _, err := s.Materialize(context.Background(), run, nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("Materialize after failed plan err = %v", err)
	}
}

func TestInvalidRequestSkipsPlanner(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A")}
	g := &fakeGenerator{}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", domain.GenerationRequest{ProductName: ""})
	if _, err := s.Execute(context.Background(), run, nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if p.calls != 0 || len(g.Calls()) != 0 {
		t.Fatalf("planner calls = %d image calls = %d", p.calls, len(g.Calls()))
	}
}

func TestAssetsBecomeVisibleIncrementally(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith(neoWatchLabels...)}
	g := &fakeGenerator{fail: map[string]error{"Clean Shot": errors.New("boom")}}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", neoWatchRequest())

	var seen []int
	g.onCall = func(label string) {
		seen = append(seen, len(run.Gallery()))
	}
	obs := ObserverFunc(func(e Event) {
		if e.Kind != EventAssetReady {
			return
		}
		if _, ok := run.Image(e.Label); !ok {
			t.Errorf("asset_ready for %q before gallery write", e.Label)
		}
	})
	if _, err := s.Execute(context.Background(), run, obs); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	want := []int{0, 1, 1, 2}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("gallery sizes at call time = %v, want %v", seen, want)
		}
	}
}

func TestSequentialNeverOverlaps(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith(neoWatchLabels...)}
	g := &fakeGenerator{delay: map[string]time.Duration{"Lifestyle": 5 * time.Millisecond, "Clean Shot": 5 * time.Millisecond}}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", neoWatchRequest())
	if _, err := s.Execute(context.Background(), run, nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if g.maxPar != 1 {
		t.Fatalf("max in-flight = %d, want 1", g.maxPar)
	}
}

func TestBoundedVariantPreservesPlanOrder(t *testing.T) {
	t.Parallel()
	labels := []string{"A", "B", "C", "D", "E", "F"}
	p := &fakePlanner{plan: planWith(labels...)}
	g := &fakeGenerator{
		delay: map[string]time.Duration{"A": 40 * time.Millisecond, "B": 20 * time.Millisecond, "D": 30 * time.Millisecond},
		fail:  map[string]error{"C": errors.New("boom")},
	}
	s := newTestStudio(t, p, g, 3)
	rec := &recorder{}
	run := NewRun(context.Background(), "ws", neoWatchRequest())

	report, err := s.Execute(context.Background(), run, rec)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if got := strings.Join(galleryLabels(run), ","); got != "A,B,D,E,F" {
		t.Fatalf("gallery = %s", got)
	}
	if got := strings.Join(report.Succeeded, ","); got != "A,B,D,E,F" {
		t.Fatalf("succeeded = %s", got)
	}
	if g.maxPar > 3 {
		t.Fatalf("max in-flight = %d, want <= 3", g.maxPar)
	}
	var settled []string
	for _, k := range rec.Kinds() {
		if strings.HasPrefix(k, "asset_ready:") || strings.HasPrefix(k, "asset_failed:") {
			settled = append(settled, k[strings.Index(k, ":")+1:])
		}
	}
	if got := strings.Join(settled, ","); got != strings.Join(labels, ",") {
		t.Fatalf("settle order = %s", got)
	}
}

func TestEventSequence(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A", "B")}
	g := &fakeGenerator{fail: map[string]error{"B": &genai.BlockedError{Reason: "SAFETY"}}}
	s := newTestStudio(t, p, g, 1)
	rec := &recorder{}
	run := NewRun(context.Background(), "ws", neoWatchRequest())
	if _, err := s.Execute(context.Background(), run, rec); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	want := "planning,plan_ready,asset_started:A,asset_ready:A,asset_started:B,asset_failed:B,completed"
	if got := strings.Join(rec.Kinds(), ","); got != want {
		t.Fatalf("events = %s, want %s", got, want)
	}
	last := rec.events[len(rec.events)-1]
	if !last.Terminal() || last.Message != "1 of 2 assets ready" {
		t.Fatalf("completed event = %+v", last)
	}
	if run.Failures()["B"] != genai.ReasonPolicy {
		t.Fatalf("failures = %v", run.Failures())
	}
}

func TestAbandonDiscardsStaleResults(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith(neoWatchLabels...)}
	g := &fakeGenerator{block: make(chan struct{})}
	s := newTestStudio(t, p, g, 1)
	run := NewRun(context.Background(), "ws", neoWatchRequest())
	if _, err := s.Plan(context.Background(), run, nil); err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	started := make(chan struct{}, 1)
	g.onCall = func(string) {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Materialize(context.Background(), run, nil)
		done <- err
	}()
	<-started
	if !run.Abandon() {
		t.Fatalf("Abandon returned false")
	}
	if run.Abandon() {
		t.Fatalf("second Abandon returned true")
	}

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrRunSuperseded) {
			t.Fatalf("err = %v, want ErrRunSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Materialize did not stop after Abandon")
	}
	if n := len(run.Gallery()); n != 0 {
		t.Fatalf("gallery size = %d, want 0", n)
	}
	if run.Status() != StatusSuperseded {
		t.Fatalf("status = %s, want superseded", run.Status())
	}
	if len(g.Calls()) != 1 {
		t.Fatalf("image calls = %v", g.Calls())
	}
}

func TestAbandonedBoundedRunStopsIssuingCalls(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A", "B", "C", "D", "E", "F")}
	g := &fakeGenerator{block: make(chan struct{})}
	s := newTestStudio(t, p, g, 2)
	run := NewRun(context.Background(), "ws", neoWatchRequest())
	if _, err := s.Plan(context.Background(), run, nil); err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	started := make(chan string, 6)
	g.onCall = func(label string) { started <- label }
	done := make(chan error, 1)
	go func() {
		_, err := s.Materialize(context.Background(), run, nil)
		done <- err
	}()
	<-started
	<-started
	run.Abandon()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrRunSuperseded) {
			t.Fatalf("err = %v, want ErrRunSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Materialize did not stop after Abandon")
	}
	if calls := g.Calls(); len(calls) != 2 {
		t.Fatalf("image calls after abandon = %v, want only the two in flight", calls)
	}
}

func TestSnapshotReportsEffectiveStyle(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A")}
	s, err := New(Options{Planner: p, Images: &fakeGenerator{}, DefaultBrand: "anoalabs"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	tests := []struct {
		req       domain.GenerationRequest
		wantBrand string
		wantStyle string
	}{
		{domain.GenerationRequest{ProductName: "Neo Watch"}, "anoalabs", "testimonial"},
		{domain.GenerationRequest{ProductName: "Neo Watch", Brand: "PIKHACU"}, "pikhacu", "basic"},
		{domain.GenerationRequest{ProductName: "Neo Watch", Style: domain.StyleUnboxing}, "anoalabs", "unboxing"},
	}
	for _, tc := range tests {
		run := NewRun(context.Background(), "ws", tc.req)
		if _, err := s.Execute(context.Background(), run, nil); err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
		snap := run.Snapshot()
		if snap.Brand != tc.wantBrand || snap.Style != tc.wantStyle {
			t.Fatalf("request %+v: brand=%q style=%q, want %s/%s", tc.req, snap.Brand, snap.Style, tc.wantBrand, tc.wantStyle)
		}
	}
}

func TestProductReferenceAndAspectForwarded(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A")}
	g := &fakeGenerator{}
	s, err := New(Options{Planner: p, Images: g, AspectRatio: domain.AspectSquare})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	req := neoWatchRequest()
	req.References = []domain.ReferenceImage{
		{Role: domain.ReferenceModel, MIMEType: "image/png", Data: []byte("model")},
		{Role: domain.ReferenceProduct, MIMEType: "image/png", Data: []byte("product")},
	}
	run := NewRun(context.Background(), "ws", req)
	if _, err := s.Execute(context.Background(), run, nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if g.refs[0] == nil || string(g.refs[0].Data) != "product" {
		t.Fatalf("reference = %+v", g.refs[0])
	}
	if g.aspects[0] != domain.AspectSquare {
		t.Fatalf("aspect = %s", g.aspects[0])
	}
}

func TestIntervalPacesCalls(t *testing.T) {
	t.Parallel()
	p := &fakePlanner{plan: planWith("A", "B", "C")}
	g := &fakeGenerator{}
	s, err := New(Options{Planner: p, Images: g, Interval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	run := NewRun(context.Background(), "ws", neoWatchRequest())
	start := time.Now()
	if _, err := s.Execute(context.Background(), run, nil); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("elapsed = %s, want at least two intervals", elapsed)
	}
}

func TestNewRejectsBadAspect(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{Planner: &fakePlanner{}, Images: &fakeGenerator{}, AspectRatio: "2:1"}); err == nil {
		t.Fatalf("expected error for unsupported aspect ratio")
	}
}
