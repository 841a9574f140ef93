package network

import (
	"context"

	"github.com/time-coin/time-core/message"
)

// Sender delivers one envelope to a peer; the concrete transport (TCP,
// QUIC, ...) is out of scope (spec.md Non-goals), so node wiring
// supplies whatever Sender fits its transport.
type Sender interface {
	Send(ctx context.Context, peer string, e *message.Envelope) error
}

// Broadcaster fans an envelope out to a peer set, admitting each send
// through a shared Throttler so a burst of gossip (e.g. a freshly
// produced block plus its VFP) cannot saturate the outbound link.
type Broadcaster struct {
	sender    Sender
	throttler Throttler
}

func NewBroadcaster(sender Sender, throttler Throttler) *Broadcaster {
	return &Broadcaster{sender: sender, throttler: throttler}
}

// Broadcast sends e to every peer, respecting the throttler's admission
// order; it returns the first send error encountered but keeps trying
// the remaining peers.
func (b *Broadcaster) Broadcast(ctx context.Context, peers []string, e *message.Envelope) error {
	var firstErr error
	for _, peer := range peers {
		if err := b.throttler.Acquire(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := b.sender.Send(ctx, peer, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
