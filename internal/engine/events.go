package engine

import (
	"sync"

	"github.com/seantiz/tasker/internal/model"
)

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 16

// EventBroker fans out task events to per-task subscribers.
// It is safe for concurrent use.
//
// Closed topics are kept as markers so that subscribers arriving after a
// task completed or was deleted get a closed channel instead of waiting
// forever.
type EventBroker struct {
	mu     sync.Mutex
	topics map[string]*eventTopic
}

type eventTopic struct {
	subs   map[int]chan model.TaskEvent
	nextID int
	closed bool
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{
		topics: make(map[string]*eventTopic),
	}
}

// Subscribe returns a channel that receives events for the given task and an
// unsubscribe function. If the topic was already closed, the returned channel
// is closed.
func (b *EventBroker) Subscribe(taskID string) (<-chan model.TaskEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[taskID]
	if !ok {
		t = &eventTopic{subs: make(map[int]chan model.TaskEvent)}
		b.topics[taskID] = t
	}

	ch := make(chan model.TaskEvent, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an event to all subscribers of the event's task.
func (b *EventBroker) Publish(ev model.TaskEvent) {
	if ev.Task == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[ev.Task.ID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; never block the publisher.
		}
	}
}

// Close ends the topic for a task. All subscriber channels are closed and
// future Subscribe calls return a closed channel.
func (b *EventBroker) Close(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[taskID]
	if !ok {
		b.topics[taskID] = &eventTopic{subs: make(map[int]chan model.TaskEvent), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
