package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/homeledger/internal/backup"
	"github.com/dukerupert/homeledger/internal/bill"
	"github.com/dukerupert/homeledger/internal/budget"
	"github.com/dukerupert/homeledger/internal/handler"
	"github.com/dukerupert/homeledger/internal/inventory"
	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/middleware"
	"github.com/dukerupert/homeledger/internal/shopping"
	"github.com/dukerupert/homeledger/internal/store"
	ws "github.com/dukerupert/homeledger/internal/websocket"
)

type Options struct {
	// Location sets day and month boundaries; defaults to UTC.
	Location        *time.Location
	RateLimit       int
	RateLimitWindow time.Duration
	// AdminActors may manage backups; see auth.IsAdmin.
	AdminActors []string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	shoppingH     *handler.ShoppingHandler
	inventoryH    *handler.InventoryHandler
	ledgerH       *handler.LedgerHandler
	budgetH       *handler.BudgetHandler
	billH         *handler.BillHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	opts          Options
	logger        *slog.Logger
}

// New wires the engines over docs and registers the websocket hub as a
// change listener.
func New(db *sql.DB, docs *store.DocumentStore, backupCfg backup.Config, opts Options, logger *slog.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 120
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}

	hub := ws.NewHub(logger)
	docs.OnChange(hub.Listener())

	l := ledger.New(docs)
	resolver := inventory.NewResolver(docs, logger)
	orchestrator := shopping.NewOrchestrator(docs, resolver, logger)
	budgetSvc := budget.NewService(l, opts.Location, logger)
	billEngine := bill.NewEngine(docs, opts.Location, logger)

	backupStore := store.NewBackupStore(db)
	backupMgr := backup.NewManager(backupCfg, db, backupStore, logger, func(s backup.Status) {
		logger.Debug("backup status", "component", "backup", "state", s.State, "in_progress", s.InProgress)
	})

	return &Server{
		db:            db,
		hub:           hub,
		shoppingH:     handler.NewShoppingHandler(shopping.NewRepository(docs), orchestrator, logger.With("component", "shopping_handler")),
		inventoryH:    handler.NewInventoryHandler(inventory.NewRepository(docs), logger.With("component", "inventory_handler")),
		ledgerH:       handler.NewLedgerHandler(l, opts.Location, logger.With("component", "ledger_handler")),
		budgetH:       handler.NewBudgetHandler(budget.NewRepository(docs), budgetSvc, opts.Location, logger.With("component", "budget_handler")),
		billH:         handler.NewBillHandler(bill.NewRepository(docs), billEngine, opts.Location, logger.With("component", "bill_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		opts:          opts,
		logger:        logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// API routes require an actor and are rate limited per actor
	apiMux := http.NewServeMux()
	s.registerGroupRoutes(apiMux)
	s.registerAdminRoutes(apiMux)

	limit := middleware.RateLimit(s.rateLimiter, middleware.ByActor, s.opts.RateLimit, s.opts.RateLimitWindow)
	outerMux.Handle("/api/", middleware.RequireActor(limit(apiMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
		"backup":  s.backupManager.Status().State,
	})
}

// group checks the actor's access to the {group} segment. It must wrap each
// handler, since path values are only set once a pattern has matched.
func group(h http.HandlerFunc) http.Handler {
	return middleware.RequireGroup(h)
}

func (s *Server) registerGroupRoutes(mux *http.ServeMux) {
	const g = "/api/groups/{group}"

	// Shopping list
	mux.Handle("GET "+g+"/shopping", group(s.shoppingH.List))
	mux.Handle("POST "+g+"/shopping", group(s.shoppingH.Create))
	mux.Handle("GET "+g+"/shopping/suggest-category", group(s.shoppingH.SuggestCategory))
	mux.Handle("PUT "+g+"/shopping/{id}", group(s.shoppingH.Update))
	mux.Handle("POST "+g+"/shopping/{id}/toggle", group(s.shoppingH.Toggle))
	mux.Handle("DELETE "+g+"/shopping/{id}", group(s.shoppingH.Delete))

	// Inventory
	mux.Handle("GET "+g+"/inventory", group(s.inventoryH.List))
	mux.Handle("POST "+g+"/inventory", group(s.inventoryH.Create))
	mux.Handle("GET "+g+"/inventory/{id}", group(s.inventoryH.Get))
	mux.Handle("PUT "+g+"/inventory/{id}/quantity", group(s.inventoryH.SetQuantity))
	mux.Handle("DELETE "+g+"/inventory/{id}", group(s.inventoryH.Delete))

	// Ledger
	mux.Handle("GET "+g+"/transactions", group(s.ledgerH.List))
	mux.Handle("POST "+g+"/transactions", group(s.ledgerH.Record))
	mux.Handle("GET "+g+"/transactions/{id}", group(s.ledgerH.Get))
	mux.Handle("PUT "+g+"/transactions/{id}", group(s.ledgerH.Update))
	mux.Handle("DELETE "+g+"/transactions/{id}", group(s.ledgerH.Delete))

	// Budgets and reports
	mux.Handle("GET "+g+"/budgets", group(s.budgetH.List))
	mux.Handle("POST "+g+"/budgets", group(s.budgetH.Create))
	mux.Handle("GET "+g+"/budgets/{id}", group(s.budgetH.Get))
	mux.Handle("PUT "+g+"/budgets/{id}", group(s.budgetH.Update))
	mux.Handle("DELETE "+g+"/budgets/{id}", group(s.budgetH.Delete))
	mux.Handle("GET "+g+"/budgets/{id}/watch", group(s.budgetH.Watch))
	mux.Handle("GET "+g+"/reports/summary", group(s.budgetH.Summary))
	mux.Handle("GET "+g+"/reports/summary/watch", group(s.budgetH.WatchSummary))
	mux.Handle("GET "+g+"/reports/breakdown", group(s.budgetH.Breakdown))
	mux.Handle("GET "+g+"/reports/compare", group(s.budgetH.Compare))

	// Bills
	mux.Handle("GET "+g+"/bills", group(s.billH.List))
	mux.Handle("POST "+g+"/bills", group(s.billH.Create))
	mux.Handle("GET "+g+"/bills/{id}", group(s.billH.Get))
	mux.Handle("DELETE "+g+"/bills/{id}", group(s.billH.Delete))
	mux.Handle("POST "+g+"/bills/{id}/pay", group(s.billH.Pay))
	mux.Handle("GET "+g+"/bills/{id}/occurrences", group(s.billH.Occurrences))

	// Realtime change feed
	mux.Handle("GET "+g+"/ws", group(ws.HandleWebSocket(s.hub)))
}

func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	// Backups hold every group's data.
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(s.opts.AdminActors)(h)
	}
	mux.Handle("GET /api/backups", admin(s.backupH.List))
	mux.Handle("GET /api/backups/status", admin(s.backupH.Status))
	mux.Handle("POST /api/backups", admin(s.backupH.Run))
	mux.Handle("GET /api/backups/{id}/download", admin(s.backupH.Download))
}
