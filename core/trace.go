package core

import (
	"sync"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/ripple/state"
)

type TraceEvent struct {
	Event RouterEvent
	Desc  string
	Args  []any
}

// RouterTrace fans router events out to any number of observers.
type RouterTrace struct {
	broadcast.Broadcaster
	mu     sync.Mutex
	closed bool
}

func (n *RouterTrace) Init(s *state.State) error {
	n.Broadcaster = broadcast.NewBroadcaster(state.TraceBufferSize)
	return nil
}

func (n *RouterTrace) Cleanup(s *state.State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.Broadcaster.Close()
}

func (n *RouterTrace) Publish(ev TraceEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.Submit(ev)
}

// Subscribe returns a channel of trace events and a function to stop the subscription.
// Events are dropped when the subscriber falls more than buf events behind, so a slow reader
// never stalls the router.
func (n *RouterTrace) Subscribe(buf int) (<-chan TraceEvent, func()) {
	in := make(chan interface{}, state.TraceBufferSize)
	out := make(chan TraceEvent, buf)
	done := make(chan struct{})

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(out)
		return out, func() {}
	}
	n.Register(in)
	n.mu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case v := <-in:
				ev, ok := v.(TraceEvent)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return out, func() {
		once.Do(func() {
			n.mu.Lock()
			if !n.closed {
				n.Unregister(in)
			}
			n.mu.Unlock()
			close(done)
		})
	}
}
