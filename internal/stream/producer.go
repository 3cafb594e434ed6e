package stream

import "sync"

// defaultBufferSize bounds the producer's channel; a slow consumer drops
// events rather than ever blocking the engine's own loop.
const defaultBufferSize = 256

// Producer is a bounded Update Stream. Emit is mutex-guarded, so several
// engines may share one Producer; one or more consumers read Events(). A full buffer drops the
// oldest queued event to make room for the new one, so a stalled consumer
// loses history rather than stalling the run.
type Producer struct {
	mu     sync.Mutex
	events chan Event
	closed bool
}

// NewProducer creates a Producer with the given buffer size (<=0 uses the
// default).
func NewProducer(bufferSize int) *Producer {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Producer{events: make(chan Event, bufferSize)}
}

// Emit enqueues e, dropping the oldest buffered event if the channel is
// full. Never blocks. A no-op after Close.
func (p *Producer) Emit(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for {
		select {
		case p.events <- e:
			return
		default:
			select {
			case <-p.events:
			default:
			}
		}
	}
}

// Events returns the receive side of the stream for consumers to range
// over.
func (p *Producer) Events() <-chan Event {
	return p.events
}

// Close stops further Emit calls and closes the channel so a ranging
// consumer terminates.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.events)
}
