package sms

import "context"

// Provider sends a text message to an E.164 phone number. Calls are
// fire-and-forget from the caller's perspective: the returned error is for
// logging only and must never fail the operation that triggered the send.
type Provider interface {
	Send(ctx context.Context, to, body string) error
}
