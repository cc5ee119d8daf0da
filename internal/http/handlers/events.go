package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"

	"ugcstudio/internal/session"
)

const (
	keepAliveInterval = 15 * time.Second
	// terminal events are published just after the run settles
	terminalGrace = 250 * time.Millisecond
)

// RunEvents streams run progress as server-sent events: a snapshot first,
// then every event until the run settles, then a closing snapshot.
func (a *App) RunEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := a.lookupRun(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	// Subscribe before the snapshot so nothing falls between the two.
	sub := a.Board.Hub().Subscribe(session.RunTopic(run.ID()))
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	seq := 0
	send := func(name string, data any) bool {
		seq++
		if err := sse.Encode(w, sse.Event{Event: name, Id: strconv.Itoa(seq), Data: data}); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send("snapshot", run.Snapshot()) || run.Finished() {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-sub.C:
			if !open {
				return
			}
			if !send(string(e.Kind), e) {
				return
			}
			if e.Terminal() {
				send("snapshot", run.Snapshot())
				return
			}
		case <-run.Done():
			drain(sub, send, terminalGrace)
			send("snapshot", run.Snapshot())
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// drain forwards buffered events until a terminal one arrives, the channel
// closes, or grace passes without one.
func drain(sub *session.Subscription, send func(string, any) bool, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	for {
		select {
		case e, open := <-sub.C:
			if !open || !send(string(e.Kind), e) || e.Terminal() {
				return
			}
		case <-timer.C:
			return
		}
	}
}
