package reminder

import (
	"fmt"
	"time"

	apperrors "github.com/digitalbackpack/subtrack/internal/errors"
	"github.com/digitalbackpack/subtrack/internal/logging"
	"github.com/digitalbackpack/subtrack/internal/models"
)

// Config holds scheduler configuration.
type Config struct {
	// ExactAlarms reports whether the platform grants precise wake-ups.
	// When false, or when an exact registration is refused, reminders are
	// registered best-effort instead of failing the caller's save path.
	ExactAlarms bool
}

// Scheduler maintains at most one pending wake-up per subscription id,
// derived from the subscription's expiry date and reminder offset. It is
// decoupled from persistence: callers hand it records, it talks only to the
// alarm service.
type Scheduler struct {
	alarms AlarmService
	cfg    Config
	now    func() time.Time
}

// NewScheduler creates a Scheduler over the given alarm service.
func NewScheduler(alarms AlarmService, cfg Config) *Scheduler {
	return &Scheduler{
		alarms: alarms,
		cfg:    cfg,
		now:    time.Now,
	}
}

// ScheduleReminder registers the wake-up for one subscription. It is a no-op
// when reminders are disabled or the computed fire time is not in the future
// (a fire time equal to now counts as already past). Any prior registration
// for the same id is cancelled first, so the explicit two-step holds even on
// alarm back-ends that do not dedupe by key.
func (s *Scheduler) ScheduleReminder(sub *models.Subscription) error {
	nowMillis := s.now().UnixMilli()
	if !sub.ReminderEligible(nowMillis) {
		return nil
	}

	if err := s.alarms.Cancel(sub.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrSchedule, "cancel prior reminder", err)
	}

	payload := NotificationPayload{
		SubscriptionID:  sub.ID,
		ProjectName:     sub.ProjectName,
		DaysUntilExpiry: sub.DaysUntilExpiry(nowMillis),
	}
	fireAt := sub.ReminderFireTime()

	err := s.alarms.RegisterOneShot(sub.ID, fireAt, s.cfg.ExactAlarms, payload)
	if err != nil && s.cfg.ExactAlarms {
		// Exact timing refused; degrade to best-effort rather than failing
		// the save path.
		logging.Warn("exact reminder registration refused, falling back to inexact",
			map[string]interface{}{"subscription_id": sub.ID})
		err = s.alarms.RegisterOneShot(sub.ID, fireAt, false, payload)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSchedule, "register reminder", err)
	}

	logging.Debug("reminder registered", map[string]interface{}{
		"subscription_id": sub.ID,
		"fire_at":         fireAt,
	})
	return nil
}

// CancelReminder removes any pending wake-up for the given id. Cancelling an
// absent reminder is not an error.
func (s *Scheduler) CancelReminder(id int64) error {
	if err := s.alarms.Cancel(id); err != nil {
		return apperrors.Wrap(apperrors.ErrSchedule, "cancel reminder", err)
	}
	return nil
}

// UpdateReminder re-derives the wake-up for a subscription after a data
// edit: always cancel then schedule, even when the net fire time is
// unchanged, so no stale registration can survive.
func (s *Scheduler) UpdateReminder(sub *models.Subscription) error {
	if err := s.CancelReminder(sub.ID); err != nil {
		return err
	}
	return s.ScheduleReminder(sub)
}

// RescheduleAll applies ScheduleReminder to every given record. Enablement
// and expiry filtering happen inside ScheduleReminder, and each schedule
// pre-cancels its own key, so repeated calls with unchanged data converge on
// the same registration set. Per-record failures do not stop the sweep; they
// are reported together as one retryable error.
func (s *Scheduler) RescheduleAll(subs []*models.Subscription) error {
	var failed int
	var lastErr error
	for _, sub := range subs {
		if err := s.ScheduleReminder(sub); err != nil {
			failed++
			lastErr = err
			logging.Error("failed to reschedule reminder", err,
				map[string]interface{}{"subscription_id": sub.ID})
		}
	}
	if failed > 0 {
		return apperrors.Wrap(apperrors.ErrSchedule,
			fmt.Sprintf("%d of %d reminders failed to register", failed, len(subs)), lastErr)
	}
	return nil
}
