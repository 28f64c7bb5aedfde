package domain

import (
	"fmt"
	"time"
)

// NotificationKind classifies an operator notification
type NotificationKind string

const (
	NotificationNew     NotificationKind = "new"
	NotificationNone    NotificationKind = "none"
	NotificationFailure NotificationKind = "failure"
)

// DefaultNotificationTTL is how long a notification stays visible
const DefaultNotificationTTL = 3 * time.Second

// Notification is a transient operator-facing message produced by a cycle.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Count     int              `json:"count"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// NotificationFor builds the message for a computed delta.
func NotificationFor(delta Delta, now time.Time, ttl time.Duration) Notification {
	n := Notification{
		Kind:      NotificationNone,
		Message:   "No new detections",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if delta.IsNew {
		n.Kind = NotificationNew
		n.Count = len(delta.NewItems)
		n.Message = fmt.Sprintf("%d new detection(s) found!", n.Count)
	}
	return n
}

// FailureNotification is reported when a cycle ends on an unexpected error.
func FailureNotification(now time.Time, ttl time.Duration) Notification {
	return Notification{
		Kind:      NotificationFailure,
		Message:   "Failed to fetch data",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Active reports whether the notification should still be shown at t.
func (n Notification) Active(t time.Time) bool {
	return !n.CreatedAt.IsZero() && t.Before(n.ExpiresAt)
}
