package server

import "sync"

// Change describes one state change of the served view.
type Change struct {
	Version uint64 `json:"version"`
	Kind    string `json:"kind"`
}

// notifier fans changes out to event-stream listeners. A slow listener only
// ever holds the latest change.
type notifier struct {
	mu        sync.RWMutex
	listeners map[chan Change]struct{}
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[chan Change]struct{})}
}

// subscribe returns a channel that receives changes. The caller must
// unsubscribe when done.
func (n *notifier) subscribe() chan Change {
	ch := make(chan Change, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

func (n *notifier) unsubscribe(ch chan Change) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// broadcast delivers c to every listener without blocking, replacing any
// change a listener has not read yet.
func (n *notifier) broadcast(c Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

func (n *notifier) len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
