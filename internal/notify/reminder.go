// Package notify delivers study reminders over SES email and SNS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/storage"
)

// ReminderSettings configures the daily study reminder for a user.
type ReminderSettings struct {
	Enabled  bool   `json:"enabled"`
	TimeHHMM string `json:"timeHHMM"` // "07:30"
	Timezone string `json:"timezone"` // e.g. "Asia/Kolkata"
	Email    string `json:"email,omitempty"`
}

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendReminderEmail(ctx context.Context, from, to, subject, body string) error
}

// Publisher is satisfied by the SNS client wrapper.
type Publisher interface {
	PublishReminder(ctx context.Context, topicARN, subject, message string) error
}

// Notifier sends reminders through whichever channels are configured.
type Notifier struct {
	email     EmailSender
	publisher Publisher
	fromEmail string
	topicARN  string
	log       logger.Logger
}

func NewNotifier(email EmailSender, publisher Publisher, fromEmail, topicARN string, log logger.Logger) *Notifier {
	return &Notifier{
		email:     email,
		publisher: publisher,
		fromEmail: fromEmail,
		topicARN:  topicARN,
		log:       log.WithFields(map[string]interface{}{"component": "reminder-notifier"}),
	}
}

// SendReminder delivers a study reminder per the user's settings.
// Disabled settings are a no-op. Each channel failure is reported but
// does not block the other channel.
func (n *Notifier) SendReminder(ctx context.Context, settings ReminderSettings) error {
	if !settings.Enabled {
		return nil
	}

	subject := "Time to study"
	body := fmt.Sprintf("Your daily study reminder (%s %s). Keep the streak going!",
		settings.TimeHHMM, settings.Timezone)

	var firstErr error

	if n.email != nil && settings.Email != "" {
		if err := n.email.SendReminderEmail(ctx, n.fromEmail, settings.Email, subject, body); err != nil {
			firstErr = errors.NewNotificationFailedError("ses", err)
			n.log.WithError(err).Warn("reminder email failed", nil)
		}
	}

	if n.publisher != nil && n.topicARN != "" {
		if err := n.publisher.PublishReminder(ctx, n.topicARN, subject, body); err != nil {
			if firstErr == nil {
				firstErr = errors.NewNotificationFailedError("sns", err)
			}
			n.log.WithError(err).Warn("reminder publish failed", nil)
		}
	}

	return firstErr
}

// SaveSettings persists reminder settings in the local KV slot.
func SaveSettings(ctx context.Context, kv storage.KV, uid string, settings ReminderSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal reminder settings: %w", err)
	}
	return kv.Set(ctx, storage.ReminderKey(uid), string(data))
}

// LoadSettings reads reminder settings; missing or corrupt settings
// return the disabled default.
func LoadSettings(ctx context.Context, kv storage.KV, uid string) ReminderSettings {
	raw, err := kv.Get(ctx, storage.ReminderKey(uid))
	if err != nil {
		return ReminderSettings{}
	}
	var settings ReminderSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return ReminderSettings{}
	}
	return settings
}
