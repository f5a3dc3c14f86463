package db

import (
	"testing"
	"time"

	"github.com/digitalbackpack/subtrack/internal/crypto"
	apperrors "github.com/digitalbackpack/subtrack/internal/errors"
	"github.com/digitalbackpack/subtrack/internal/models"
)

func setupTestRepository(t *testing.T) (*Repository, *Store, *crypto.KeyManager) {
	t.Helper()

	store := setupTestStore(t)
	keys := crypto.NewKeyManager(crypto.NewMemorySecretStore())
	repo := NewRepository(store, crypto.NewCipher(keys))
	return repo, store, keys
}

func TestRepositoryEncryptsAtRest(t *testing.T) {
	repo, store, _ := setupTestRepository(t)

	sub := testSubscription("netflix", 30)
	sub.Username = "alice@example.com"
	sub.Password = "hunter2"
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// The raw row must not contain the plaintext credentials.
	raw, err := store.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("raw GetByID failed: %v", err)
	}
	if raw.Username == "alice@example.com" {
		t.Error("username stored in plaintext")
	}
	if raw.Password == "hunter2" {
		t.Error("password stored in plaintext")
	}
	if raw.Username == "" || raw.Password == "" {
		t.Error("sensitive columns are empty, want ciphertext")
	}
	// Non-sensitive columns stay readable.
	if raw.ProjectName != "netflix" {
		t.Errorf("project_name = %q, want plaintext %q", raw.ProjectName, "netflix")
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	sub := testSubscription("netflix", 30)
	sub.Username = "alice@example.com"
	sub.Password = "hunter2"
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Username != "alice@example.com" || got.Password != "hunter2" {
		t.Errorf("credentials did not round trip: %q / %q", got.Username, got.Password)
	}
	if got.CredentialsUnreadable {
		t.Error("CredentialsUnreadable set on a healthy read")
	}
}

func TestRepositoryEmptyCredentials(t *testing.T) {
	repo, store, _ := setupTestRepository(t)

	sub := testSubscription("anonymous", 30)
	sub.Username = ""
	sub.Password = ""
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	raw, err := store.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("raw GetByID failed: %v", err)
	}
	if raw.Username != "" || raw.Password != "" {
		t.Errorf("empty credentials stored as %q / %q, want empty", raw.Username, raw.Password)
	}

	got, err := repo.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Username != "" || got.Password != "" || got.CredentialsUnreadable {
		t.Errorf("empty credentials read back as %q / %q (unreadable=%v)",
			got.Username, got.Password, got.CredentialsUnreadable)
	}
}

func TestRepositoryDegradedReadAfterKeyLoss(t *testing.T) {
	repo, store, keys := setupTestRepository(t)

	sub := testSubscription("netflix", 30)
	sub.Username = "alice@example.com"
	sub.Password = "hunter2"
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	raw, err := store.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("raw GetByID failed: %v", err)
	}

	// Destroy the key; the next read uses a freshly generated one.
	if err := keys.ClearKeys(); err != nil {
		t.Fatalf("ClearKeys failed: %v", err)
	}

	got, err := repo.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.CredentialsUnreadable {
		t.Error("CredentialsUnreadable not set after key loss")
	}
	// The stored values survive untouched: fail open, never fail the read.
	if got.Username != raw.Username || got.Password != raw.Password {
		t.Error("degraded read did not keep the stored values")
	}
	// Non-sensitive fields remain intact.
	if got.ProjectName != "netflix" || got.ExpiryDate != sub.ExpiryDate {
		t.Errorf("non-sensitive fields corrupted: %+v", got)
	}
}

func TestRepositoryInsertValidation(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	noName := testSubscription("", 30)
	if err := repo.Insert(noName); !apperrors.Is(err, apperrors.ErrInvalid) {
		t.Errorf("empty name: got %v, want code %s", err, apperrors.ErrInvalid)
	}

	negative := testSubscription("svc", 30)
	negative.ReminderDaysBefore = -1
	if err := repo.Insert(negative); !apperrors.Is(err, apperrors.ErrInvalid) {
		t.Errorf("negative reminder days: got %v, want code %s", err, apperrors.ErrInvalid)
	}
}

func TestRepositoryInsertStampsTimestamps(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	before := time.Now().UnixMilli()
	sub := testSubscription("netflix", 30)
	sub.CreatedAt = 0
	sub.UpdatedAt = 0
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	after := time.Now().UnixMilli()

	if sub.CreatedAt < before || sub.CreatedAt > after {
		t.Errorf("CreatedAt = %d, want within [%d, %d]", sub.CreatedAt, before, after)
	}
	if sub.UpdatedAt != sub.CreatedAt {
		t.Errorf("UpdatedAt = %d, want equal to CreatedAt %d", sub.UpdatedAt, sub.CreatedAt)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	sub := testSubscription("netflix", 30)
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	created := sub.CreatedAt

	sub.Password = "new-password"
	sub.Price = 19.99
	if err := repo.Update(sub); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Password != "new-password" || got.Price != 19.99 {
		t.Errorf("Update not persisted: %+v", got)
	}
	if got.CreatedAt != created {
		t.Errorf("Update changed CreatedAt: %d -> %d", created, got.CreatedAt)
	}
	if got.UpdatedAt < created {
		t.Errorf("UpdatedAt = %d, want >= CreatedAt %d", got.UpdatedAt, created)
	}
}

func TestRepositoryUpdateMissing(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	sub := testSubscription("ghost", 30)
	sub.ID = 999
	if err := repo.Update(sub); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Update of missing id: got %v, want code %s", err, apperrors.ErrNotFound)
	}
}

func TestRepositoryGetByIDMissing(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	got, err := repo.GetByID(999)
	if err != nil || got != nil {
		t.Errorf("GetByID of missing id = (%+v, %v), want (nil, nil)", got, err)
	}
}

func TestRepositoryDeleteByID(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	sub := testSubscription("netflix", 30)
	if err := repo.Insert(sub); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.DeleteByID(sub.ID); err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	if err := repo.DeleteByID(sub.ID); err != nil {
		t.Errorf("DeleteByID of missing id failed: %v", err)
	}
}

func TestRepositoryGetUpcoming(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	soon := testSubscription("soon", 3)
	far := testSubscription("far", 60)
	for _, s := range []*models.Subscription{soon, far} {
		if err := repo.Insert(s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	subs, err := repo.GetUpcoming(7)
	if err != nil {
		t.Fatalf("GetUpcoming failed: %v", err)
	}
	if len(subs) != 1 || subs[0].ProjectName != "soon" {
		t.Errorf("GetUpcoming(7) returned %d rows, want only %q", len(subs), "soon")
	}
}

func TestRepositoryListDecryptsAll(t *testing.T) {
	repo, _, _ := setupTestRepository(t)

	for i, name := range []string{"a", "b", "c"} {
		sub := testSubscription(name, 10+i)
		sub.Username = "user-" + name
		if err := repo.Insert(sub); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	subs, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("GetAll returned %d rows, want 3", len(subs))
	}
	for _, sub := range subs {
		if sub.Username != "user-"+sub.ProjectName {
			t.Errorf("row %q: username %q not decrypted", sub.ProjectName, sub.Username)
		}
	}
}
