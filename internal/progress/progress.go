// Package progress is the in-process pub/sub bus for job updates. Delivery
// is best effort: a subscriber whose buffer is full misses the event rather
// than blocking the publisher.
package progress

import (
	"sync"

	"github.com/google/uuid"
)

// EventType labels one bus message.
type EventType string

const (
	EventCrawlUpdate  EventType = "crawl_update"
	EventUploadUpdate EventType = "upload_update"
	EventCompleted    EventType = "completed"
	EventFailed       EventType = "failed"
	EventHeartbeat    EventType = "heartbeat"
)

// Event is one job update published on the bus.
type Event struct {
	Type  EventType      `json:"type"`
	JobID uuid.UUID      `json:"job_id"`
	Data  map[string]any `json:"data,omitempty"`
}

const subscriberBuffer = 32

type subscriber struct {
	ch   chan Event
	jobs map[uuid.UUID]struct{}
}

// Bus fans job events out to subscribers keyed by job id.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

// Subscription is one client's view of the bus. Events arrive on C for the
// jobs the subscription follows.
type Subscription struct {
	bus *Bus
	sub *subscriber

	// C carries events for followed jobs. It is closed by Close.
	C <-chan Event
}

// Subscribe registers a new subscription following no jobs yet.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		jobs: make(map[uuid.UUID]struct{}),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return &Subscription{bus: b, sub: sub, C: sub.ch}
}

// Follow starts delivering events for one job.
func (s *Subscription) Follow(jobID uuid.UUID) {
	s.bus.mu.Lock()
	s.sub.jobs[jobID] = struct{}{}
	s.bus.mu.Unlock()
}

// Unfollow stops delivering events for one job.
func (s *Subscription) Unfollow(jobID uuid.UUID) {
	s.bus.mu.Lock()
	delete(s.sub.jobs, jobID)
	s.bus.mu.Unlock()
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	if _, ok := s.bus.subs[s.sub]; ok {
		delete(s.bus.subs, s.sub)
		close(s.sub.ch)
	}
	s.bus.mu.Unlock()
}

// Publish delivers the event to every subscription following its job.
// Full buffers drop the event.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if _, ok := sub.jobs[ev.JobID]; !ok {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
