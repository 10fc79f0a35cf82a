package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher and Subscriber for
// testing. Published events are fanned out to active subscriptions.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*TipEvent
	publishError    error
	subscribeError  error
	subscribers     map[int]mockSubscription
	nextID          int
	closed          bool
}

type mockSubscription struct {
	jarID string
	ch    chan *TipEvent
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*TipEvent, 0),
		subscribers:     make(map[int]mockSubscription),
	}
}

// PublishTip records the event, delivers it to matching subscribers and
// returns any configured error.
func (m *MockPublisher) PublishTip(ctx context.Context, event *TipEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	for _, sub := range m.subscribers {
		if sub.jarID != "" && sub.jarID != event.TipJarID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscription that lasts until ctx is done.
func (m *MockPublisher) Subscribe(ctx context.Context, jarID string) (<-chan *TipEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscribeError != nil {
		return nil, m.subscribeError
	}

	id := m.nextID
	m.nextID++
	ch := make(chan *TipEvent, 10)
	m.subscribers[id] = mockSubscription{jarID: jarID, ch: ch}

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}()
	return ch, nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns all published events (for testing).
func (m *MockPublisher) GetPublishedEvents() []*TipEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*TipEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventCount returns the number of published events.
func (m *MockPublisher) GetPublishedEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.publishedEvents)
}

// SubscriberCount returns the number of active subscriptions.
func (m *MockPublisher) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// SetPublishError configures the mock to return an error on PublishTip.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// SetSubscribeError configures the mock to return an error on Subscribe.
func (m *MockPublisher) SetSubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
