package web

import "sync"

// Notifier fans out timetable-changed signals to connected SSE clients.
// Subscribers receive an empty struct and re-render from the cached view.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe registers a listener. Callers must Unsubscribe when done.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings every listener without blocking. A listener with a
// pending ping will catch up on its next receive.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
