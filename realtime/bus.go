package realtime

import "sync"

// Handler receives a published event.
type Handler func(event any)

// Bus carries document events to local subscribers.
type Bus interface {
	// PublishLocal delivers event to the handlers subscribed to topic.
	PublishLocal(topic string, event any)

	// SubscribeLocal registers handler for topic and returns a function removing it.
	SubscribeLocal(topic string, handler Handler) func()
}

type subscription struct {
	handler Handler
}

// LocalBus is an in-process Bus. Handlers are always called through the scheduler,
// never from inside PublishLocal.
type LocalBus struct {
	mu        sync.Mutex
	scheduler Scheduler
	topics    map[string][]*subscription
}

// NewLocalBus returns a bus delivering events through s.
func NewLocalBus(s Scheduler) *LocalBus {
	return &LocalBus{scheduler: s, topics: make(map[string][]*subscription)}
}

func (b *LocalBus) PublishLocal(topic string, event any) {
	b.mu.Lock()
	subs := append([]*subscription(nil), b.topics[topic]...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub := sub
		b.scheduler.ScheduleDeferred(func() {
			sub.handler(event)
		})
	}
}

func (b *LocalBus) SubscribeLocal(topic string, handler Handler) func() {
	sub := &subscription{handler: handler}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.topics[topic]
		for i, s := range subs {
			if s == sub {
				b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
	}
}
