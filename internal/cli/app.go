package cli

import (
	"database/sql"
	"fmt"
	"log/slog"

	"flowgate/internal/cache"
	"flowgate/internal/config"
	"flowgate/internal/ledger"
	"flowgate/internal/llm"
	"flowgate/internal/privacy"
	"flowgate/internal/processor"
	"flowgate/internal/queue"
	"flowgate/internal/storage"
)

// app bundles the wired pipeline for command handlers.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	db        *sql.DB
	scanner   *privacy.Scanner
	terms     *privacy.TermStore
	cache     *cache.Store
	ledger    *ledger.Ledger
	queue     *queue.Queue
	processor *processor.Processor
}

// newApp loads config, opens the database, and wires every component.
// Callers must close() when done.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.Log)

	db, err := storage.Open(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	scanner := privacy.NewScanner()
	terms := privacy.NewTermStore(db)
	cacheStore := cache.New(db, cfg.Cache.TTL, cfg.Cache.MaxEntries, log)
	auditLedger := ledger.New(db, log)
	jobQueue := queue.New(db, cfg.Queue.MaxRetries, log)
	gen := llm.NewGemini(cfg.LLM.APIKey, cfg.LLM.Timeout)

	proc := processor.New(scanner, terms, cacheStore, auditLedger, gen, processor.Options{
		PrivacyEnabled:    cfg.Privacy.Enabled,
		ModelFast:         cfg.LLM.ModelFast,
		ModelSmart:        cfg.LLM.ModelSmart,
		DeepThreshold:     cfg.LLM.DeepThreshold,
		LongTextThreshold: cfg.LLM.LongTextThreshold,
		UserSystemPrompt:  cfg.LLM.UserSystemPrompt,
	}, log)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		scanner:   scanner,
		terms:     terms,
		cache:     cacheStore,
		ledger:    auditLedger,
		queue:     jobQueue,
		processor: proc,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database failed", "error", err)
	}
}
