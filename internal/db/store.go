package db

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/digitalbackpack/subtrack/internal/models"
)

// subscriptionColumns is the canonical column list scanned by every read.
const subscriptionColumns = `id, project_name, website_url, username, password, expiry_date,
	price, currency, renewal_period_days, reminder_days_before, notes,
	reminder_enabled, category, created_at, updated_at`

// Store provides raw-row CRUD for subscriptions. Rows pass through unchanged:
// sensitive columns hold whatever the caller supplies, which above this layer
// is always ciphertext. The Repository is the only intended caller.
type Store struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewStore creates a new Store instance.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// prepareStmt gets or creates a prepared statement from cache.
func (s *Store) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	// If another goroutine already prepared this, use the existing one
	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (s *Store) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// scanSubscription scans one row into a Subscription.
func scanSubscription(row interface {
	Scan(dest ...interface{}) error
}) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(
		&sub.ID, &sub.ProjectName, &sub.WebsiteURL, &sub.Username, &sub.Password,
		&sub.ExpiryDate, &sub.Price, &sub.Currency, &sub.RenewalPeriodDays,
		&sub.ReminderDaysBefore, &sub.Notes, &sub.ReminderEnabled, &sub.Category,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// collectSubscriptions drains rows into a slice.
func collectSubscriptions(rows *sql.Rows) ([]*models.Subscription, error) {
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// Insert persists a new row and assigns its id.
func (s *Store) Insert(sub *models.Subscription) error {
	query := `
	INSERT INTO subscriptions (project_name, website_url, username, password, expiry_date,
		price, currency, renewal_period_days, reminder_days_before, notes,
		reminder_enabled, category, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, sub.ProjectName, sub.WebsiteURL, sub.Username,
		sub.Password, sub.ExpiryDate, sub.Price, sub.Currency, sub.RenewalPeriodDays,
		sub.ReminderDaysBefore, sub.Notes, sub.ReminderEnabled, sub.Category,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sub.ID = id
	return nil
}

// GetByID retrieves one row, or (nil, nil) when the id does not exist.
func (s *Store) GetByID(id int64) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	sub, err := scanSubscription(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// GetAll returns every row ordered by expiry date, soonest first.
func (s *Store) GetAll() ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY expiry_date ASC`

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}

// GetInWindow returns reminder-enabled rows whose expiry falls inside
// [startMillis, endMillis], ordered by expiry date.
func (s *Store) GetInWindow(startMillis, endMillis int64) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
	FROM subscriptions
	WHERE expiry_date >= ? AND expiry_date <= ? AND reminder_enabled = 1
	ORDER BY expiry_date ASC`

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(startMillis, endMillis)
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}

// GetByCategory returns rows in the given category ordered by expiry date.
func (s *Store) GetByCategory(category string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE category = ? ORDER BY expiry_date ASC`

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(category)
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}

// Search returns rows whose project name or notes contain the given
// substring. These columns are deliberately stored in plaintext so that
// substring search works without a separate index.
func (s *Store) Search(substring string) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
	FROM subscriptions
	WHERE project_name LIKE '%' || ? || '%' OR notes LIKE '%' || ? || '%'
	ORDER BY expiry_date ASC`

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(substring, substring)
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}

// GetExpired returns rows whose expiry is before nowMillis, most recently
// expired first.
func (s *Store) GetExpired(nowMillis int64) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE expiry_date < ? ORDER BY expiry_date DESC`

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(nowMillis)
	if err != nil {
		return nil, err
	}
	return collectSubscriptions(rows)
}

// Update overwrites an existing row. Missing ids report sql.ErrNoRows.
func (s *Store) Update(sub *models.Subscription) error {
	query := `
	UPDATE subscriptions
	SET project_name = ?, website_url = ?, username = ?, password = ?, expiry_date = ?,
		price = ?, currency = ?, renewal_period_days = ?, reminder_days_before = ?,
		notes = ?, reminder_enabled = ?, category = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := s.db.Exec(query, sub.ProjectName, sub.WebsiteURL, sub.Username,
		sub.Password, sub.ExpiryDate, sub.Price, sub.Currency, sub.RenewalPeriodDays,
		sub.ReminderDaysBefore, sub.Notes, sub.ReminderEnabled, sub.Category,
		sub.UpdatedAt, sub.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByID removes a row. Deleting a missing id is a no-op.
func (s *Store) DeleteByID(id int64) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

// Count returns the total number of rows.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subscriptions`).Scan(&count)
	return count, err
}
