package services

import (
	"encoding/json"
)

type EffectKind string

const (
	EffectRealtime EffectKind = "realtime"
	EffectSMS      EffectKind = "sms"
	EffectPush     EffectKind = "push"
)

// Effect is a side channel action emitted by a state transition. Transitions
// build the effect list while holding no locks; the dispatcher executes it
// after the transition has committed, so a notification failure can never roll
// back or delay a status change.
type Effect struct {
	Kind EffectKind

	// realtime
	Room  string
	Event string
	Data  map[string]interface{}

	// sms
	Phone string
	Text  string

	// push
	Token string
	Title string
	Body  string
}

func RealtimeEffect(room, event string, data map[string]interface{}) Effect {
	return Effect{Kind: EffectRealtime, Room: room, Event: event, Data: data}
}

func SMSEffect(phone, text string) Effect {
	return Effect{Kind: EffectSMS, Phone: phone, Text: text}
}

func PushEffect(token, title, body string, data map[string]interface{}) Effect {
	return Effect{Kind: EffectPush, Token: token, Title: title, Body: body, Data: data}
}

// eventPayload flattens a model into the generic map shape realtime events
// carry. Callers must sanitize the model first (ViewFor) when it can hold
// confidential fields.
func eventPayload(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
