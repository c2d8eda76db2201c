package cli

import (
	"context"
	"fmt"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/config"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/logging"
	"github.com/rcliao/cardfolio/internal/notify"
	"github.com/rcliao/cardfolio/internal/persist"
	"github.com/rcliao/cardfolio/internal/remote"
	"github.com/rcliao/cardfolio/internal/store"
)

// app is one document session wired from config.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	db       *store.SQLiteStore
	repo     store.Repository
	hub      *notify.Hub
	notifier notify.Notifier
	doc      *editor.MemDocument
	adapter  *card.Adapter
	ctl      *persist.Controller
}

// openStore opens the SQLite database named by the flags and config.
func openStore() (*store.SQLiteStore, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, fmt.Errorf("config: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.DBPath)
	return s, cfg, err
}

// openApp builds the document session and restores the last saved
// snapshot into it.
func openApp(ctx context.Context) (*app, error) {
	db, cfg, err := openStore()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, hub: notify.NewHub()}

	b := logging.New().Level(cfg.LogLevel).Console(true)
	if cfg.LogFile != "" {
		b = b.FromPath(cfg.LogFile)
	}
	if a.log, err = b.Make(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open log: %w", err)
	}
	log := a.log.Logger

	if a.repo, err = openRepository(ctx, cfg, db); err != nil {
		a.Close()
		return nil, err
	}

	var saver remote.Saver
	switch {
	case cfg.Remote.Disabled:
	case cfg.Remote.URL != "":
		saver = remote.NewClient(cfg.Remote.URL, cfg.Remote.Timeout)
	default:
		saver = remote.Local{Repo: a.repo}
	}

	a.notifier = notify.Multi{notify.LogNotifier{Log: logging.Component(log, "notify")}, a.hub}
	a.adapter = card.NewAdapter(logging.Component(log, "card"))
	a.doc = editor.NewMemDocument(nil, editor.WithPrepare(a.adapter.Stamp))
	a.ctl = persist.New(a.doc, db, saver, a.notifier, logging.Component(log, "persist"), persist.Options{
		StorageKey:       cfg.StorageKey,
		AutosaveInterval: cfg.AutosaveInterval,
		Adapter:          a.adapter,
	})
	a.ctl.Load(ctx)
	return a, nil
}

func openRepository(ctx context.Context, cfg config.Config, db *store.SQLiteStore) (store.Repository, error) {
	switch cfg.Remote.Backend {
	case config.BackendSQLite:
		return db, nil
	case config.BackendS3:
		r, err := store.NewS3Repository(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 repository: %w", err)
		}
		return r, nil
	default:
		return store.NewMemoryRepository(), nil
	}
}

// Close releases everything the app opened.
func (a *app) Close() {
	if a.ctl != nil {
		a.ctl.Close()
	}
	a.hub.Close()
	if a.repo != nil && a.repo != store.Repository(a.db) {
		a.repo.Close()
	}
	a.db.Close()
	if a.log != nil {
		a.log.Close()
	}
}
