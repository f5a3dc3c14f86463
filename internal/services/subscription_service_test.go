package services

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/digitalbackpack/subtrack/internal/crypto"
	"github.com/digitalbackpack/subtrack/internal/db"
	"github.com/digitalbackpack/subtrack/internal/models"
	"github.com/digitalbackpack/subtrack/internal/reminder"
	"github.com/digitalbackpack/subtrack/migrations"
)

func setupTestService(t *testing.T) (*SubscriptionService, *reminder.TimerAlarmService) {
	t.Helper()

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	migrator := db.NewMigrator(database, migrations.FS(), migrations.Dir)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("failed to initialize migrations: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })

	cipher := crypto.NewCipher(crypto.NewKeyManager(crypto.NewMemorySecretStore()))
	repo := db.NewRepository(store, cipher)

	alarms := reminder.NewTimerAlarmService(nil, 0)
	t.Cleanup(alarms.Shutdown)
	scheduler := reminder.NewScheduler(alarms, reminder.Config{ExactAlarms: true})

	return NewSubscriptionService(repo, scheduler), alarms
}

func serviceSubscription(name string, daysAhead int) *models.Subscription {
	return &models.Subscription{
		ProjectName:        name,
		Username:           "user",
		Password:           "pass",
		ExpiryDate:         time.Now().UnixMilli() + int64(daysAhead)*models.MillisPerDay,
		Currency:           "USD",
		RenewalPeriodDays:  30,
		ReminderDaysBefore: 1,
		ReminderEnabled:    true,
		Category:           models.CategoryOther,
	}
}

func TestCreateRegistersReminder(t *testing.T) {
	svc, alarms := setupTestService(t)

	sub := serviceSubscription("netflix", 30)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sub.ID == 0 {
		t.Fatal("Create did not assign an id")
	}

	reg, ok := alarms.PendingRegistration(sub.ID)
	if !ok {
		t.Fatal("no reminder registered after Create")
	}
	if reg.FireAt != sub.ReminderFireTime() {
		t.Errorf("FireAt = %d, want %d", reg.FireAt, sub.ReminderFireTime())
	}
}

func TestCreateDisabledReminderRegistersNothing(t *testing.T) {
	svc, alarms := setupTestService(t)

	sub := serviceSubscription("netflix", 30)
	sub.ReminderEnabled = false
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if keys := alarms.PendingKeys(); len(keys) != 0 {
		t.Errorf("PendingKeys = %v, want empty", keys)
	}
}

func TestUpdateMovesReminder(t *testing.T) {
	svc, alarms := setupTestService(t)

	sub := serviceSubscription("netflix", 30)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sub.ExpiryDate += 10 * models.MillisPerDay
	if err := svc.Update(sub); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	keys := alarms.PendingKeys()
	if len(keys) != 1 {
		t.Fatalf("PendingKeys = %v, want exactly one", keys)
	}
	reg, _ := alarms.PendingRegistration(sub.ID)
	if reg.FireAt != sub.ReminderFireTime() {
		t.Errorf("FireAt = %d, want re-derived %d", reg.FireAt, sub.ReminderFireTime())
	}
}

func TestUpdateToDisabledCancelsReminder(t *testing.T) {
	svc, alarms := setupTestService(t)

	sub := serviceSubscription("netflix", 30)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sub.ReminderEnabled = false
	if err := svc.Update(sub); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if keys := alarms.PendingKeys(); len(keys) != 0 {
		t.Errorf("PendingKeys = %v, want empty after disabling", keys)
	}
}

func TestDeleteCancelsReminder(t *testing.T) {
	svc, alarms := setupTestService(t)

	sub := serviceSubscription("netflix", 30)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(sub.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got, err := svc.Get(sub.ID); err != nil || got != nil {
		t.Errorf("Get after Delete = (%+v, %v), want (nil, nil)", got, err)
	}
	if keys := alarms.PendingKeys(); len(keys) != 0 {
		t.Errorf("PendingKeys = %v, want empty after delete", keys)
	}
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	svc, _ := setupTestService(t)

	if err := svc.Delete(999); err != nil {
		t.Errorf("Delete of missing id failed: %v", err)
	}
}

func TestServiceRoundTripDecryptsCredentials(t *testing.T) {
	svc, _ := setupTestService(t)

	sub := serviceSubscription("netflix", 30)
	sub.Username = "alice@example.com"
	sub.Password = "hunter2"
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := svc.Get(sub.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Username != "alice@example.com" || got.Password != "hunter2" {
		t.Errorf("credentials = %q / %q, want plaintext round trip", got.Username, got.Password)
	}
}

func TestServiceListAndCount(t *testing.T) {
	svc, _ := setupTestService(t)

	for i, name := range []string{"a", "b", "c"} {
		if err := svc.Create(serviceSubscription(name, 10+i)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	subs, err := svc.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(subs) != 3 {
		t.Errorf("List returned %d, want 3", len(subs))
	}

	count, err := svc.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}
