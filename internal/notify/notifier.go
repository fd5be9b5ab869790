package notify

import (
	"context"
	"sync"
)

// Notifier is the change fan-out: a monotonic version counter plus the
// websocket hub. Every committed write bumps the version; websocket clients
// get a push, long-poll clients wake on the bump and re-fetch.
type Notifier struct {
	hub *Hub

	mu      sync.Mutex
	version uint64
	changed chan struct{}
}

// NewNotifier wraps a running hub.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub, changed: make(chan struct{})}
}

// routing maps event types to the channels that care about them. Unlisted
// events go everywhere.
var routing = map[string][]string{
	"order_placed": {ChannelStaff, ChannelKitchen},
	"staff_call":   {ChannelStaff},
	"menu_changed": {ChannelStaff, ChannelGuest},
}

// Changed records a committed change and wakes all listeners. Safe to call
// from any goroutine; never blocks on slow clients.
func (n *Notifier) Changed(event string, payload any) {
	n.mu.Lock()
	n.version++
	version := n.version
	close(n.changed)
	n.changed = make(chan struct{})
	n.mu.Unlock()

	if n.hub != nil {
		n.hub.Broadcast(Event{Type: event, Version: version, Payload: payload}, routing[event]...)
	}
}

// Version returns the current change counter.
func (n *Notifier) Version() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

// Wait blocks until the version exceeds since or the context ends, and
// returns the version current at wake-up.
func (n *Notifier) Wait(ctx context.Context, since uint64) uint64 {
	for {
		n.mu.Lock()
		version := n.version
		changed := n.changed
		n.mu.Unlock()

		if version > since {
			return version
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return version
		}
	}
}
