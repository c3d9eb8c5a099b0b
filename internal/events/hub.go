package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kiwari-pos/orderdesk/internal/ws"
)

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// HubPublisher pushes events to connected staff devices.
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	p.hub.Broadcast(ws.Event{Type: ev.Type, Payload: payload})
	return nil
}
