// Package storage provides the durable local key-value slot used by the
// session store. Implementations must tolerate missing keys.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// KV is the durable local storage contract.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GuestUID is the sentinel user id for unauthenticated local use.
const GuestUID = "guest"

// SessionsKey returns the sessions slot for a user.
func SessionsKey(uid string) string {
	if uid == "" {
		uid = GuestUID
	}
	return fmt.Sprintf("studytracker:sessions:%s", uid)
}

// StatsKey returns the stats slot for a user.
func StatsKey(uid string) string {
	if uid == "" {
		uid = GuestUID
	}
	return fmt.Sprintf("studytracker:stats:%s", uid)
}

// ReminderKey returns the reminder-settings slot for a user.
func ReminderKey(uid string) string {
	if uid == "" {
		uid = GuestUID
	}
	return fmt.Sprintf("studytracker:reminders:%s", uid)
}
