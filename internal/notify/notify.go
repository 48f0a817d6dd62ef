// Package notify carries best-effort lifecycle events out of the core.
// Publish failures are logged by callers, never propagated: the
// persisted state change is the source of truth.
package notify

import (
	"context"
	"fmt"
)

const (
	EventOrderCreated = "order-created"
	EventOrderUpdated = "order-updated"

	// AdminChannel receives every order lifecycle event.
	AdminChannel = "admin_orders"
)

// UserChannel is the per-user realtime channel.
func UserChannel(userID string) string {
	return fmt.Sprintf("user_%s", userID)
}

type Sink interface {
	Publish(ctx context.Context, channel, event string, payload map[string]any) error
}

// Nop is used when no broker is configured (local development, tests
// that do not assert on events).
type Nop struct{}

func (Nop) Publish(context.Context, string, string, map[string]any) error { return nil }
