package db

import (
	"database/sql"
	"time"

	"github.com/digitalbackpack/subtrack/internal/crypto"
	apperrors "github.com/digitalbackpack/subtrack/internal/errors"
	"github.com/digitalbackpack/subtrack/internal/logging"
	"github.com/digitalbackpack/subtrack/internal/models"
)

// Repository is the plaintext CRUD boundary for subscriptions. Every write
// encrypts the username and password before they reach the store; every read
// decrypts them before the record leaves this package. No other field is
// touched cryptographically.
type Repository struct {
	store  *Store
	cipher *crypto.Cipher
}

// NewRepository creates a Repository over the given store and cipher.
func NewRepository(store *Store, cipher *crypto.Cipher) *Repository {
	return &Repository{store: store, cipher: cipher}
}

// encryptSensitive replaces the sensitive fields of a copy of sub with
// ciphertext. When encryption fails the plaintext is kept so the write is
// not lost; that fallback is security-relevant and logged loudly.
func (r *Repository) encryptSensitive(sub *models.Subscription) models.Subscription {
	encrypted := *sub

	username, err := r.cipher.EncryptString(sub.Username)
	if err == nil {
		encrypted.Username = username
	} else {
		logging.Warn("storing username unencrypted after encryption failure",
			map[string]interface{}{"subscription_id": sub.ID, "code": string(apperrors.ErrCrypto)})
	}

	password, err := r.cipher.EncryptString(sub.Password)
	if err == nil {
		encrypted.Password = password
	} else {
		logging.Warn("storing password unencrypted after encryption failure",
			map[string]interface{}{"subscription_id": sub.ID, "code": string(apperrors.ErrCrypto)})
	}

	return encrypted
}

// decryptSensitive reverses encryptSensitive in place. A field that cannot
// be decrypted (key cleared, blob corrupted) keeps its stored value and the
// record is marked CredentialsUnreadable: a degraded read, not a failure.
func (r *Repository) decryptSensitive(sub *models.Subscription) {
	username, err := r.cipher.DecryptString(sub.Username)
	if err == nil {
		sub.Username = username
	} else {
		sub.CredentialsUnreadable = true
	}

	password, err := r.cipher.DecryptString(sub.Password)
	if err == nil {
		sub.Password = password
	} else {
		sub.CredentialsUnreadable = true
	}

	if sub.CredentialsUnreadable {
		logging.Warn("returning subscription with undecryptable credentials",
			map[string]interface{}{"subscription_id": sub.ID})
	}
}

func (r *Repository) decryptAll(subs []*models.Subscription) []*models.Subscription {
	for _, sub := range subs {
		r.decryptSensitive(sub)
	}
	return subs
}

// Insert persists a new subscription from plaintext input, assigning its id
// and both timestamps.
func (r *Repository) Insert(sub *models.Subscription) error {
	if sub.ProjectName == "" {
		return apperrors.New(apperrors.ErrInvalid, "project name must not be empty")
	}
	if sub.ReminderDaysBefore < 0 {
		return apperrors.New(apperrors.ErrInvalid, "reminder days before must not be negative")
	}

	now := time.Now().UnixMilli()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	encrypted := r.encryptSensitive(sub)
	if err := r.store.Insert(&encrypted); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "insert subscription", err)
	}

	sub.ID = encrypted.ID
	return nil
}

// Update re-encrypts the plaintext input and stamps updated_at.
func (r *Repository) Update(sub *models.Subscription) error {
	if sub.ProjectName == "" {
		return apperrors.New(apperrors.ErrInvalid, "project name must not be empty")
	}

	sub.Touch()

	encrypted := r.encryptSensitive(sub)
	err := r.store.Update(&encrypted)
	if err == sql.ErrNoRows {
		return apperrors.New(apperrors.ErrNotFound, "subscription not found")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "update subscription", err)
	}
	return nil
}

// DeleteByID removes a subscription. Deleting a missing id is a no-op.
func (r *Repository) DeleteByID(id int64) error {
	if err := r.store.DeleteByID(id); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "delete subscription", err)
	}
	return nil
}

// GetByID returns the subscription with decrypted credentials, or (nil, nil)
// when the id does not exist.
func (r *Repository) GetByID(id int64) (*models.Subscription, error) {
	sub, err := r.store.GetByID(id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "get subscription", err)
	}
	if sub == nil {
		return nil, nil
	}
	r.decryptSensitive(sub)
	return sub, nil
}

// GetAll returns every subscription ordered by expiry date.
func (r *Repository) GetAll() ([]*models.Subscription, error) {
	subs, err := r.store.GetAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list subscriptions", err)
	}
	return r.decryptAll(subs), nil
}

// GetUpcoming returns reminder-enabled subscriptions expiring within the
// next daysAhead days.
func (r *Repository) GetUpcoming(daysAhead int) ([]*models.Subscription, error) {
	now := time.Now().UnixMilli()
	end := now + int64(daysAhead)*models.MillisPerDay

	subs, err := r.store.GetInWindow(now, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list upcoming subscriptions", err)
	}
	return r.decryptAll(subs), nil
}

// GetByCategory returns subscriptions in the given category.
func (r *Repository) GetByCategory(category string) ([]*models.Subscription, error) {
	subs, err := r.store.GetByCategory(category)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list subscriptions by category", err)
	}
	return r.decryptAll(subs), nil
}

// Search returns subscriptions whose project name or notes match the query.
func (r *Repository) Search(query string) ([]*models.Subscription, error) {
	subs, err := r.store.Search(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "search subscriptions", err)
	}
	return r.decryptAll(subs), nil
}

// GetExpired returns subscriptions whose expiry date has passed.
func (r *Repository) GetExpired() ([]*models.Subscription, error) {
	subs, err := r.store.GetExpired(time.Now().UnixMilli())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "list expired subscriptions", err)
	}
	return r.decryptAll(subs), nil
}

// Count returns the total number of subscriptions.
func (r *Repository) Count() (int, error) {
	count, err := r.store.Count()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "count subscriptions", err)
	}
	return count, nil
}
