package reminder

import (
	"sort"
	"sync"
	"time"
)

// FireFunc is invoked by the alarm service when a registered wake-up comes due.
type FireFunc func(payload NotificationPayload)

// AlarmService is the scheduling boundary: one-shot wake-ups keyed by
// subscription id. Registering an existing key replaces the prior
// registration; cancelling an absent key is a no-op. exact=false allows the
// service to defer the wake-up to a coarser boundary, modeling best-effort
// delivery under OS batching or doze constraints.
type AlarmService interface {
	RegisterOneShot(key int64, fireAtMillis int64, exact bool, payload NotificationPayload) error
	Cancel(key int64) error
}

// Registration describes one pending wake-up.
type Registration struct {
	Key     int64
	FireAt  int64 // epoch milliseconds
	Exact   bool
	Payload NotificationPayload
}

type timerEntry struct {
	reg   Registration
	timer *time.Timer
}

// TimerAlarmService is an in-process AlarmService backed by time.AfterFunc.
// Registrations are lost when the process exits; the periodic reconciliation
// job re-derives them on the next run, which is the same contract an evicted
// OS alarm has.
type TimerAlarmService struct {
	mu      sync.Mutex
	pending map[int64]*timerEntry
	fire    FireFunc

	// inexactWindow quantizes inexact wake-ups: the delay is rounded up to
	// the next multiple of this window. Zero disables quantization.
	inexactWindow time.Duration

	now func() time.Time
}

// NewTimerAlarmService creates a TimerAlarmService delivering due payloads
// to fire. fire may be nil, in which case due registrations simply expire.
func NewTimerAlarmService(fire FireFunc, inexactWindow time.Duration) *TimerAlarmService {
	return &TimerAlarmService{
		pending:       make(map[int64]*timerEntry),
		fire:          fire,
		inexactWindow: inexactWindow,
		now:           time.Now,
	}
}

// RegisterOneShot registers a wake-up for key, replacing any prior one.
func (s *TimerAlarmService) RegisterOneShot(key int64, fireAtMillis int64, exact bool, payload NotificationPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.pending[key]; ok {
		prior.timer.Stop()
		delete(s.pending, key)
	}

	delay := time.Duration(fireAtMillis-s.now().UnixMilli()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	if !exact && s.inexactWindow > 0 {
		// Round up to the next window boundary
		delay = ((delay / s.inexactWindow) + 1) * s.inexactWindow
	}

	entry := &timerEntry{
		reg: Registration{Key: key, FireAt: fireAtMillis, Exact: exact, Payload: payload},
	}
	entry.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// A replacement or cancel may have raced the timer; only deliver if
		// this entry is still the registered one.
		current, ok := s.pending[key]
		if !ok || current != entry {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		fire := s.fire
		s.mu.Unlock()

		if fire != nil {
			fire(entry.reg.Payload)
		}
	})

	s.pending[key] = entry
	return nil
}

// Cancel removes the pending wake-up for key, if any.
func (s *TimerAlarmService) Cancel(key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.pending[key]; ok {
		entry.timer.Stop()
		delete(s.pending, key)
	}
	return nil
}

// PendingKeys returns the keys with a pending wake-up, sorted ascending.
func (s *TimerAlarmService) PendingKeys() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]int64, 0, len(s.pending))
	for key := range s.pending {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// PendingRegistration returns the registration for key, if one is pending.
func (s *TimerAlarmService) PendingRegistration(key int64) (Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[key]
	if !ok {
		return Registration{}, false
	}
	return entry.reg, true
}

// Shutdown stops every pending timer. Used on process exit.
func (s *TimerAlarmService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, key)
	}
}
