// Package services composes the repository and reminder scheduler so every
// data mutation keeps the reminder set in sync.
package services

import (
	"github.com/digitalbackpack/subtrack/internal/db"
	"github.com/digitalbackpack/subtrack/internal/logging"
	"github.com/digitalbackpack/subtrack/internal/models"
	"github.com/digitalbackpack/subtrack/internal/reminder"
)

// SubscriptionService is the application-facing entry point for subscription
// operations. Persistence outcomes are authoritative; scheduling is kept in
// step on a best-effort basis and never fails a save (the periodic
// reconciliation job heals any reminder that slipped through).
type SubscriptionService struct {
	repo      *db.Repository
	reminders *reminder.Scheduler
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(repo *db.Repository, reminders *reminder.Scheduler) *SubscriptionService {
	return &SubscriptionService{repo: repo, reminders: reminders}
}

// Create persists a new subscription and registers its reminder.
func (s *SubscriptionService) Create(sub *models.Subscription) error {
	if err := s.repo.Insert(sub); err != nil {
		return err
	}
	s.syncReminder(sub)
	return nil
}

// Update persists an edit and re-derives the reminder.
func (s *SubscriptionService) Update(sub *models.Subscription) error {
	if err := s.repo.Update(sub); err != nil {
		return err
	}
	s.syncReminder(sub)
	return nil
}

// Delete removes a subscription and cancels its reminder. Both halves are
// no-ops for a missing id.
func (s *SubscriptionService) Delete(id int64) error {
	if err := s.repo.DeleteByID(id); err != nil {
		return err
	}
	if err := s.reminders.CancelReminder(id); err != nil {
		logging.Warn("failed to cancel reminder after delete",
			map[string]interface{}{"subscription_id": id, "error": err.Error()})
	}
	return nil
}

// syncReminder re-asserts the reminder for one record after a successful
// save. Scheduling failures are logged, not returned: the save already
// happened and must not appear to fail.
func (s *SubscriptionService) syncReminder(sub *models.Subscription) {
	if err := s.reminders.UpdateReminder(sub); err != nil {
		logging.Warn("failed to sync reminder after save",
			map[string]interface{}{"subscription_id": sub.ID, "error": err.Error()})
	}
}

// Get returns one subscription, or (nil, nil) when absent.
func (s *SubscriptionService) Get(id int64) (*models.Subscription, error) {
	return s.repo.GetByID(id)
}

// List returns every subscription ordered by expiry date.
func (s *SubscriptionService) List() ([]*models.Subscription, error) {
	return s.repo.GetAll()
}

// ListByCategory returns subscriptions in the given category.
func (s *SubscriptionService) ListByCategory(category string) ([]*models.Subscription, error) {
	return s.repo.GetByCategory(category)
}

// ListUpcoming returns reminder-enabled subscriptions expiring within
// daysAhead days.
func (s *SubscriptionService) ListUpcoming(daysAhead int) ([]*models.Subscription, error) {
	return s.repo.GetUpcoming(daysAhead)
}

// ListExpired returns subscriptions whose expiry has passed.
func (s *SubscriptionService) ListExpired() ([]*models.Subscription, error) {
	return s.repo.GetExpired()
}

// Search returns subscriptions matching the query against project name or
// notes.
func (s *SubscriptionService) Search(query string) ([]*models.Subscription, error) {
	return s.repo.Search(query)
}

// Count returns the total number of subscriptions.
func (s *SubscriptionService) Count() (int, error) {
	return s.repo.Count()
}
