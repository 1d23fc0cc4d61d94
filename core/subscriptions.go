package live

import "sync"

// Subscription is returned by every On* registration.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel stops further deliveries. It is safe to call more than once and
// from inside the callback itself.
func (s *Subscription) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

type subscriber[T any] struct {
	id      uint64
	handler func(T)
}

// subscribers delivers values to handlers in registration order.
type subscribers[T any] struct {
	name string

	mu       sync.Mutex
	nextID   uint64
	handlers []subscriber[T]
}

func (l *subscribers[T]) add(handler func(T)) *Subscription {
	if handler == nil {
		return &Subscription{}
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.handlers = append(l.handlers, subscriber[T]{id: id, handler: handler})
	l.mu.Unlock()

	return &Subscription{cancel: func() { l.remove(id) }}
}

func (l *subscribers[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.handlers {
		if s.id == id {
			l.handlers = append(l.handlers[:i:i], l.handlers[i+1:]...)
			return
		}
	}
}

func (l *subscribers[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handlers)
}

func (l *subscribers[T]) emit(value T) {
	l.mu.Lock()
	handlers := make([]subscriber[T], len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, s := range handlers {
		_ = panicSafe(l.name+" subscriber", func() { s.handler(value) })
	}
}
