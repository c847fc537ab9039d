package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/DukeRupert/folio/internal"
	"github.com/DukeRupert/folio/internal/billing"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/idempotency"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/DukeRupert/folio/internal/repository"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// app holds what every command needs: config, a database handle and the
// account services built on it.
type app struct {
	cfg      *internal.Config
	logger   *slog.Logger
	db       *sql.DB
	repo     *repository.Queries
	accounts service.AccountStore
	plans    service.PlanService
	usage    service.UsageLedger
	renderer report.Renderer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger := internal.NewLogger(os.Stderr, cfg.Env, level)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	repo := repository.New(db)

	var ledger service.PaymentLedger = service.NewPaymentLogLedger(repo)
	if cfg.PaymentLedger == "stripe" {
		ledger = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}

	accounts := service.NewAccountStore(repo)
	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		repo:     repo,
		accounts: accounts,
		plans:    service.NewPlanService(accounts, ledger, logger),
		usage:    service.NewUsageLedger(service.NewUsageStore(db, repo), idempotency.NewMemoryStore(idempotency.DefaultTTL), logger),
		renderer: report.NewPDFRenderer(),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func parseAccountID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

// loadDocument reads and validates a JSON document from path, or from stdin
// when path is "-".
func loadDocument(path string) (*report.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		r = f
	}

	var doc report.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid document: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return &doc, nil
}

// printError writes err the way a user should read it. Typed errors show
// their message and refusal kind; anything else is printed as is.
func printError(w io.Writer, err error) {
	var e *domain.Error
	if !errors.As(err, &e) || e.Code == domain.EINTERNAL {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	if e.Kind != "" {
		fmt.Fprintf(w, "Error: %s (%s)\n", e.Message, e.Kind)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", domain.ErrorMessage(err))
}
