package events_test

import (
	"fmt"
	"time"

	"github.com/refurbd/renovation-planner/internal/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("broadcast hub", func() {
	drain := func(sub *events.Subscriber, n int) []events.Event {
		received := make([]events.Event, 0, n)
		for i := 0; i < n; i++ {
			select {
			case ev := <-sub.Events:
				received = append(received, ev)
			case <-time.After(time.Second):
				Fail(fmt.Sprintf("timed out waiting for event %d", i))
			}
		}
		return received
	}

	It("fans every event out to every subscriber in order", func() {
		hub := events.NewHub()
		defer hub.Close()

		first := hub.Subscribe()
		second := hub.Subscribe()
		Expect(hub.SubscriberCount()).To(Equal(2))

		for i := int64(1); i <= 5; i++ {
			hub.Publish(events.Event{Type: events.EventProgress, JobID: i})
		}

		for _, sub := range []*events.Subscriber{first, second} {
			received := drain(sub, 5)
			for i, ev := range received {
				Expect(ev.JobID).To(Equal(int64(i + 1)))
			}
		}
	})

	It("drops a subscriber whose queue stays full", func() {
		hub := events.NewHub(
			events.WithQueueSize(1),
			events.WithPutTimeout(10*time.Millisecond),
		)
		defer hub.Close()

		stuck := hub.Subscribe()
		healthy := hub.Subscribe()

		hub.Publish(events.Event{Type: events.EventProgress, JobID: 1})
		first := drain(healthy, 1)
		Expect(first[0].JobID).To(Equal(int64(1)))

		// stuck never read, so its queue is full and the next publish
		// times out on it
		hub.Publish(events.Event{Type: events.EventProgress, JobID: 2})

		Expect(stuck.Done).To(BeClosed())
		Expect(hub.SubscriberCount()).To(Equal(1))

		second := drain(healthy, 1)
		Expect(second[0].JobID).To(Equal(int64(2)))
	})

	It("delivers nothing to a subscriber added after the event", func() {
		hub := events.NewHub()
		defer hub.Close()

		hub.Publish(events.Event{Type: events.EventJobRemoved, JobID: 9})
		sub := hub.Subscribe()
		Consistently(sub.Events).ShouldNot(Receive())
	})

	It("unsubscribes idempotently and signals done", func() {
		hub := events.NewHub()
		defer hub.Close()

		sub := hub.Subscribe()
		hub.Unsubscribe(sub)
		hub.Unsubscribe(sub)

		Expect(sub.Done).To(BeClosed())
		Expect(hub.SubscriberCount()).To(BeZero())
	})

	It("closes every subscriber on shutdown", func() {
		hub := events.NewHub()
		first := hub.Subscribe()
		second := hub.Subscribe()

		hub.Close()

		Expect(first.Done).To(BeClosed())
		Expect(second.Done).To(BeClosed())
		Expect(hub.SubscriberCount()).To(BeZero())
	})
})

var _ = Describe("event wire format", func() {
	It("renders one SSE frame with only the set fields", func() {
		percent := 40.0
		ev := events.Event{
			Type:            events.EventProgress,
			JobID:           7,
			Status:          "running",
			ProgressPercent: &percent,
		}

		frame := ev.Format()
		Expect(frame).To(HavePrefix("data: {"))
		Expect(frame).To(HaveSuffix("}\n\n"))
		Expect(frame).To(ContainSubstring(`"type":"progress"`))
		Expect(frame).To(ContainSubstring(`"job_id":7`))
		Expect(frame).To(ContainSubstring(`"progress_percent":40`))
		Expect(frame).ToNot(ContainSubstring("eta_seconds"))
		Expect(frame).ToNot(ContainSubstring("jobs"))
	})
})
