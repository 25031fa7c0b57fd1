package push

import "context"

type Notification struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Provider delivers a push notification to a device token. Fire-and-forget:
// the error is for logging only.
type Provider interface {
	Send(ctx context.Context, notification *Notification) error
}
