package upload

import "sync"

// EventKind classifies progress stream entries.
type EventKind int

const (
	EventSelected EventKind = iota
	EventStatus
	EventProgress
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventSelected:
		return "selected"
	case EventStatus:
		return "status"
	case EventProgress:
		return "progress"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// Event is a snapshot of one file at the moment something happened to it.
type Event struct {
	Kind EventKind `json:"kind"`
	File FileInfo  `json:"file"`
}

// broker fans events out to subscribers. Sends never block: a subscriber
// whose buffer is full misses the event.
type broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func newBroker() *broker {
	return &broker{subs: map[int]chan Event{}}
}

func (b *broker) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
