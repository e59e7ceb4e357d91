package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/refurbd/renovation-planner/internal/auth"
	"github.com/refurbd/renovation-planner/internal/events"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/pkg/metrics"
	"go.uber.org/zap"
)

// StreamJobEvents answers GET /api/v1/admin/jobs/events with a live
// SSE feed. The first frame is always a queue snapshot of the caller's
// most recent jobs; after that, events flow as published, with a
// keepalive comment whenever the queue sits idle so intermediaries
// don't tear the connection down.
func (h *ServiceHandler) StreamJobEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	user := auth.MustHaveUser(r.Context())
	log := zap.S().Named("events_handler")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	hub := h.publisher.Hub()
	sub := hub.Subscribe()
	defer func() {
		hub.Unsubscribe(sub)
		metrics.UpdateSSESubscriberCountMetric(hub.SubscriberCount())
	}()
	metrics.UpdateSSESubscriberCountMetric(hub.SubscriberCount())

	// Snapshot goes out before any queued event is drained, so a
	// subscriber always sees the full state first.
	list, err := h.jobs.ListJobs(r.Context(), service.JobFilter{UserID: user.ID, Limit: service.DefaultPageSize})
	if err != nil {
		log.Errorf("failed to build queue snapshot: %v", err)
		http.Error(w, "failed to build snapshot", http.StatusInternalServerError)
		return
	}
	snapshot := events.Event{Type: events.EventQueueSnapshot, Jobs: list.Items}
	fmt.Fprint(w, snapshot.Format())
	flusher.Flush()

	keepalive := time.NewTicker(events.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event := <-sub.Events:
			fmt.Fprint(w, event.Format())
			flusher.Flush()
			keepalive.Reset(events.KeepaliveInterval)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-sub.Done:
			log.Info("subscriber dropped by hub")
			return
		case <-r.Context().Done():
			log.Info("client disconnected from event stream")
			return
		}
	}
}
