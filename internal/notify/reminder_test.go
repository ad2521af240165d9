package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	trackererrors "github.com/pradumanrathod/studytracker/internal/common/errors"
	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/storage"
)

// ==========================
// Test Helper Functions
// ==========================

type sentEmail struct {
	from, to, subject, body string
}

type fakeEmailSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) SendReminderEmail(_ context.Context, from, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{from: from, to: to, subject: subject, body: body})
	return nil
}

type publishedMessage struct {
	topicARN, subject, message string
}

type fakePublisher struct {
	published []publishedMessage
	err       error
}

func (f *fakePublisher) PublishReminder(_ context.Context, topicARN, subject, message string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{topicARN: topicARN, subject: subject, message: message})
	return nil
}

type mapKV struct {
	data    map[string]string
	failSet bool
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]string)}
}

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	val, ok := m.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return val, nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	if m.failSet {
		return errors.New("write refused")
	}
	m.data[key] = value
	return nil
}

func (m *mapKV) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func enabledSettings() ReminderSettings {
	return ReminderSettings{
		Enabled:  true,
		TimeHHMM: "07:30",
		Timezone: "Asia/Kolkata",
		Email:    "student@example.com",
	}
}

// ==========================
// Delivery Tests
// ==========================

func TestNotifier_SendsOverBothChannels(t *testing.T) {
	email := &fakeEmailSender{}
	pub := &fakePublisher{}
	n := NewNotifier(email, pub, "reminders@studytracker.app", "arn:aws:sns:us-east-1:1:reminders", createTestLogger(t))

	err := n.SendReminder(context.Background(), enabledSettings())
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "reminders@studytracker.app", email.sent[0].from)
	assert.Equal(t, "student@example.com", email.sent[0].to)
	assert.Contains(t, email.sent[0].body, "07:30")

	require.Len(t, pub.published, 1)
	assert.Equal(t, "arn:aws:sns:us-east-1:1:reminders", pub.published[0].topicARN)
	assert.Contains(t, pub.published[0].message, "07:30")
	assert.Equal(t, email.sent[0].subject, pub.published[0].subject)
}

func TestNotifier_DisabledSettingsAreNoOp(t *testing.T) {
	email := &fakeEmailSender{}
	pub := &fakePublisher{}
	n := NewNotifier(email, pub, "reminders@studytracker.app", "arn:topic", createTestLogger(t))

	settings := enabledSettings()
	settings.Enabled = false

	require.NoError(t, n.SendReminder(context.Background(), settings))
	assert.Empty(t, email.sent)
	assert.Empty(t, pub.published)
}

func TestNotifier_EmailFailureStillPublishes(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("ses throttled")}
	pub := &fakePublisher{}
	n := NewNotifier(email, pub, "reminders@studytracker.app", "arn:topic", createTestLogger(t))

	err := n.SendReminder(context.Background(), enabledSettings())
	require.Error(t, err)
	assert.True(t, trackererrors.IsCode(err, trackererrors.ErrCodeNotificationFailed))

	// The SNS channel still delivered.
	assert.Len(t, pub.published, 1)
}

func TestNotifier_SkipsUnconfiguredChannels(t *testing.T) {
	// No email address set: only SNS fires.
	pub := &fakePublisher{}
	n := NewNotifier(&fakeEmailSender{}, pub, "reminders@studytracker.app", "arn:topic", createTestLogger(t))

	settings := enabledSettings()
	settings.Email = ""

	require.NoError(t, n.SendReminder(context.Background(), settings))
	assert.Len(t, pub.published, 1)

	// No topic configured: only email fires.
	email := &fakeEmailSender{}
	n = NewNotifier(email, &fakePublisher{}, "reminders@studytracker.app", "", createTestLogger(t))
	require.NoError(t, n.SendReminder(context.Background(), enabledSettings()))
	assert.Len(t, email.sent, 1)
}

// ==========================
// Settings Persistence Tests
// ==========================

func TestSaveLoadSettingsRoundTrip(t *testing.T) {
	kv := newMapKV()
	ctx := context.Background()

	settings := enabledSettings()
	require.NoError(t, SaveSettings(ctx, kv, "user-1", settings))

	got := LoadSettings(ctx, kv, "user-1")
	assert.Equal(t, settings, got)
}

func TestLoadSettings_MissingOrCorruptReturnsDisabled(t *testing.T) {
	kv := newMapKV()
	ctx := context.Background()

	assert.Equal(t, ReminderSettings{}, LoadSettings(ctx, kv, "user-1"))

	require.NoError(t, kv.Set(ctx, storage.ReminderKey("user-1"), "{{{"))
	assert.Equal(t, ReminderSettings{}, LoadSettings(ctx, kv, "user-1"))
}

func TestSaveSettings_PropagatesWriteFailure(t *testing.T) {
	kv := newMapKV()
	kv.failSet = true
	err := SaveSettings(context.Background(), kv, "user-1", enabledSettings())
	assert.Error(t, err)
}
