package services

import (
	"context"

	"godispatch/internal/utils"
	"godispatch/pkg/logger"
	"godispatch/pkg/push"
	"godispatch/pkg/realtime"
	"godispatch/pkg/sms"
)

// NotificationService executes effect lists emitted by state transitions.
// Every delivery is fire-and-forget: failures are logged and never surface to
// the operation that emitted the effect.
type NotificationService struct {
	publisher  realtime.Publisher
	smsSender  sms.Provider
	pushSender push.Provider
	logger     *logger.Logger
}

func NewNotificationService(publisher realtime.Publisher, smsSender sms.Provider, pushSender push.Provider, log *logger.Logger) *NotificationService {
	return &NotificationService{
		publisher:  publisher,
		smsSender:  smsSender,
		pushSender: pushSender,
		logger:     log,
	}
}

// Dispatch fans the effects out on background goroutines and returns
// immediately.
func (s *NotificationService) Dispatch(effects []Effect) {
	for _, effect := range effects {
		go s.run(effect)
	}
}

func (s *NotificationService) run(effect Effect) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.EffectTimeout)
	defer cancel()

	var err error
	switch effect.Kind {
	case EffectRealtime:
		if s.publisher != nil {
			err = s.publisher.Publish(ctx, effect.Room, effect.Event, effect.Data)
		}
	case EffectSMS:
		if s.smsSender != nil && effect.Phone != "" {
			err = s.smsSender.Send(ctx, effect.Phone, effect.Text)
		}
	case EffectPush:
		if s.pushSender != nil && effect.Token != "" {
			err = s.pushSender.Send(ctx, &push.Notification{
				Token: effect.Token,
				Title: effect.Title,
				Body:  effect.Body,
				Data:  stringify(effect.Data),
			})
		}
	}

	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"kind":  string(effect.Kind),
			"event": effect.Event,
			"room":  effect.Room,
		}).WithError(err).Warn("notification delivery failed")
	}
}

// FCM data payloads are string-to-string.
func stringify(data map[string]interface{}) map[string]string {
	if len(data) == 0 {
		return nil
	}

	out := make(map[string]string, len(data))
	for key, value := range data {
		if str, ok := value.(string); ok {
			out[key] = str
		}
	}
	return out
}
