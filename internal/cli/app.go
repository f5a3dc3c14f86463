// Package cli implements the subtrack command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/digitalbackpack/subtrack/internal/config"
	"github.com/digitalbackpack/subtrack/internal/crypto"
	"github.com/digitalbackpack/subtrack/internal/db"
	"github.com/digitalbackpack/subtrack/internal/logging"
	"github.com/digitalbackpack/subtrack/internal/reminder"
	"github.com/digitalbackpack/subtrack/internal/services"
	"github.com/digitalbackpack/subtrack/migrations"
)

// App wires the application components together for a command invocation.
type App struct {
	Config    *config.Config
	DB        *db.DB
	Store     *db.Store
	Repo      *db.Repository
	Keys      *crypto.KeyManager
	Alarms    *reminder.TimerAlarmService
	Scheduler *reminder.Scheduler
	Notifier  *reminder.LogNotifier
	Service   *services.SubscriptionService
}

// openApp builds the component graph: database (migrated), secret-store
// backed key manager, encrypting repository, alarm service with the
// notification dispatcher, scheduler, and the subscription service on top.
func openApp(cfg *config.Config) (*App, error) {
	logging.Init(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	migrator := db.NewMigrator(database.DB, migrations.FS(), migrations.Dir)
	if err := migrator.Initialize(); err != nil {
		database.Close()
		return nil, fmt.Errorf("initialize migrations: %w", err)
	}
	if err := migrator.Up(); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	keys := crypto.NewKeyManager(crypto.NewFileSecretStore(cfg.DataDir))
	cipher := crypto.NewCipher(keys)

	store := db.NewStore(database.DB)
	repo := db.NewRepository(store, cipher)

	notifier := reminder.NewLogNotifier()
	alarms := reminder.NewTimerAlarmService(reminder.NewDispatcher(notifier), cfg.InexactWindow.Std())
	scheduler := reminder.NewScheduler(alarms, reminder.Config{ExactAlarms: cfg.ExactAlarms})

	return &App{
		Config:    cfg,
		DB:        database,
		Store:     store,
		Repo:      repo,
		Keys:      keys,
		Alarms:    alarms,
		Scheduler: scheduler,
		Notifier:  notifier,
		Service:   services.NewSubscriptionService(repo, scheduler),
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	a.Alarms.Shutdown()
	if err := a.Store.Close(); err != nil {
		logging.Warn("failed to close statement cache", map[string]interface{}{"error": err.Error()})
	}
	if err := a.DB.Close(); err != nil {
		logging.Warn("failed to close database", map[string]interface{}{"error": err.Error()})
	}
}
