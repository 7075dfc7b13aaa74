package store

import "sync"

// mailbox delivers events to one subscriber on its own goroutine with an
// unbounded queue. Room notifications must never be dropped and handlers
// are allowed to call back into the store, so delivery cannot happen under
// the store lock or on a bounded channel.
type mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newMailbox[T any](fn func(T)) *mailbox[T] {
	m := &mailbox[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go m.run(fn)
	return m
}

func (m *mailbox[T]) publish(v T) {
	m.mu.Lock()
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) run(fn func(T)) {
	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		for {
			m.mu.Lock()
			if len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			v := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()

			select {
			case <-m.done:
				return
			default:
			}
			fn(v)
		}
	}
}

func (m *mailbox[T]) stop() {
	m.once.Do(func() { close(m.done) })
}
