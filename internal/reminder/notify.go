// Package reminder computes and maintains expiry reminders for subscriptions.
package reminder

import (
	"fmt"
	"sync"

	"github.com/digitalbackpack/subtrack/internal/logging"
)

// NotificationPayload is carried by a registered wake-up and rendered when it
// fires. DaysUntilExpiry is computed at registration time, never recomputed
// at fire time.
type NotificationPayload struct {
	SubscriptionID  int64  `json:"subscription_id"`
	ProjectName     string `json:"project_name"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}

// RenderNotification derives the user-visible title and body from a payload.
func RenderNotification(p NotificationPayload) (title, body string) {
	switch {
	case p.DaysUntilExpiry <= 0:
		title = fmt.Sprintf("%s due today", p.ProjectName)
		body = fmt.Sprintf("%s expires today. Renew it now to avoid interruption.", p.ProjectName)
	case p.DaysUntilExpiry == 1:
		title = fmt.Sprintf("%s due tomorrow", p.ProjectName)
		body = fmt.Sprintf("%s expires tomorrow. Don't forget to renew.", p.ProjectName)
	default:
		title = fmt.Sprintf("%s due in %d days", p.ProjectName, p.DaysUntilExpiry)
		body = fmt.Sprintf("%s expires in %d days.", p.ProjectName, p.DaysUntilExpiry)
	}
	return title, body
}

// Notification is one rendered user-visible notification.
type Notification struct {
	SubscriptionID int64
	Title          string
	Body           string
}

// Notifier delivers rendered notifications. Re-notifying the same
// subscription id replaces any prior unread notification for it; it never
// stacks duplicates.
type Notifier interface {
	Notify(n Notification) error
}

// LogNotifier writes notifications to the structured log and keeps the
// latest one per subscription id, mirroring an OS notification tray where a
// new post for the same key replaces the old one.
type LogNotifier struct {
	mu     sync.Mutex
	latest map[int64]Notification
}

// NewLogNotifier creates an empty LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{latest: make(map[int64]Notification)}
}

// Notify records and logs the notification, replacing any prior one for the
// same subscription id.
func (n *LogNotifier) Notify(notification Notification) error {
	n.mu.Lock()
	n.latest[notification.SubscriptionID] = notification
	n.mu.Unlock()

	logging.Info("reminder notification", map[string]interface{}{
		"subscription_id": notification.SubscriptionID,
		"title":           notification.Title,
		"body":            notification.Body,
	})
	return nil
}

// Latest returns the most recent notification for the given subscription id.
func (n *LogNotifier) Latest(subscriptionID int64) (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	notification, ok := n.latest[subscriptionID]
	return notification, ok
}

// NewDispatcher adapts a Notifier into the fire callback invoked by the
// alarm service. Rendering uses only the stored payload.
func NewDispatcher(notifier Notifier) FireFunc {
	return func(p NotificationPayload) {
		title, body := RenderNotification(p)
		if err := notifier.Notify(Notification{
			SubscriptionID: p.SubscriptionID,
			Title:          title,
			Body:           body,
		}); err != nil {
			logging.Error("failed to deliver reminder notification", err,
				map[string]interface{}{"subscription_id": p.SubscriptionID})
		}
	}
}
