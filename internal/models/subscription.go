// Package models provides data model definitions for the subscription tracker.
package models

import "time"

// MillisPerDay is the number of milliseconds in one whole day.
const MillisPerDay = 24 * 60 * 60 * 1000

// Subscription represents one tracked subscription.
// Username and Password are plaintext in memory; the repository stores them
// encrypted. Expiry and the created/updated stamps are epoch milliseconds.
type Subscription struct {
	ID                 int64   `db:"id" json:"id"`
	ProjectName        string  `db:"project_name" json:"project_name"`
	WebsiteURL         string  `db:"website_url" json:"website_url,omitempty"`
	Username           string  `db:"username" json:"username"`
	Password           string  `db:"password" json:"-"` // Never expose
	ExpiryDate         int64   `db:"expiry_date" json:"expiry_date"`
	Price              float64 `db:"price" json:"price"`
	Currency           string  `db:"currency" json:"currency"`
	RenewalPeriodDays  int     `db:"renewal_period_days" json:"renewal_period_days"`
	ReminderDaysBefore int     `db:"reminder_days_before" json:"reminder_days_before"`
	Notes              string  `db:"notes" json:"notes,omitempty"`
	ReminderEnabled    bool    `db:"reminder_enabled" json:"reminder_enabled"`
	Category           string  `db:"category" json:"category"`
	CreatedAt          int64   `db:"created_at" json:"created_at"`
	UpdatedAt          int64   `db:"updated_at" json:"updated_at"`

	// CredentialsUnreadable is set by the repository when a sensitive field
	// could not be decrypted and the stored ciphertext was returned as-is.
	// It is never persisted.
	CredentialsUnreadable bool `db:"-" json:"credentials_unreadable,omitempty"`
}

// TableName returns the table name for Subscription.
func (Subscription) TableName() string {
	return "subscriptions"
}

// ReminderFireTime returns the absolute epoch-millisecond timestamp at which
// the reminder for this subscription should fire.
func (s *Subscription) ReminderFireTime() int64 {
	return s.ExpiryDate - int64(s.ReminderDaysBefore)*MillisPerDay
}

// ReminderEligible reports whether a reminder should be registered at the
// given instant. The boundary is exclusive: a fire time equal to now is
// already past.
func (s *Subscription) ReminderEligible(nowMillis int64) bool {
	return s.ReminderEnabled && s.ReminderFireTime() > nowMillis
}

// DaysUntilExpiry returns the whole-day count between now and the expiry
// date, truncated toward zero.
func (s *Subscription) DaysUntilExpiry(nowMillis int64) int {
	return int((s.ExpiryDate - nowMillis) / MillisPerDay)
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (s *Subscription) CreatedAtTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (s *Subscription) UpdatedAtTime() time.Time {
	return time.UnixMilli(s.UpdatedAt)
}

// Touch updates the UpdatedAt timestamp.
func (s *Subscription) Touch() {
	s.UpdatedAt = time.Now().UnixMilli()
}

// Subscription categories.
const (
	CategoryStreaming    = "streaming"
	CategorySoftware     = "software"
	CategoryCloudStorage = "cloud_storage"
	CategoryVPN          = "vpn"
	CategoryMusic        = "music"
	CategoryEducation    = "education"
	CategoryGaming       = "gaming"
	CategoryNews         = "news"
	CategoryOther        = "other"
)

// AllCategories returns the known subscription categories.
func AllCategories() []string {
	return []string{
		CategoryStreaming, CategorySoftware, CategoryCloudStorage, CategoryVPN,
		CategoryMusic, CategoryEducation, CategoryGaming, CategoryNews, CategoryOther,
	}
}
