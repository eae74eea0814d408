package commands

import (
	"fmt"

	"github.com/rwerner/sourcing-radar/internal/agents"
	"github.com/rwerner/sourcing-radar/internal/catalog"
	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/convert"
	"github.com/rwerner/sourcing-radar/internal/external/kleinanzeigen"
	"github.com/rwerner/sourcing-radar/internal/external/marketdata"
	"github.com/rwerner/sourcing-radar/internal/ingest"
	"github.com/rwerner/sourcing-radar/internal/leaselock"
	"github.com/rwerner/sourcing-radar/internal/match"
	"github.com/rwerner/sourcing-radar/internal/pipeline"
	"github.com/rwerner/sourcing-radar/internal/prune"
	"github.com/rwerner/sourcing-radar/internal/runs"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/internal/store"
	"github.com/rwerner/sourcing-radar/internal/valuation"
	"github.com/rwerner/sourcing-radar/pkg/config"
	"github.com/rwerner/sourcing-radar/pkg/database"
	"github.com/rwerner/sourcing-radar/pkg/httputil"
	"github.com/rwerner/sourcing-radar/pkg/logger"
	"github.com/rwerner/sourcing-radar/pkg/redis"
)

// deps holds the shared dependency graph every command builds on. Wiring
// lives here so the api, worker and one-off commands assemble the same
// stack.
type deps struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	redis  *redis.Client
	lock   *leaselock.Lock

	candidates *store.CandidateStore
	matches    *store.MatchStore
	purchases  *store.PurchaseStore
	settings   *settings.Repository
	settingSvc *settings.Service
	runs       *runs.Repository
	agents     *agents.Repository
	catalog    *catalog.Provider

	marketplace *kleinanzeigen.Client
	marketData  *marketdata.Client

	ingestor  *ingest.Ingestor
	matcher   *match.Matcher
	valuer    *valuation.Service
	converter *convert.Service
	pruner    *prune.Pruner
}

// initDeps loads config and connects everything. Callers own Close.
func initDeps() (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to redis (optional; disabled client degrades to no-ops)
	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Create HTTP clients. The marketplace client shares a rate limit
	// across workers through redis.
	marketplaceHTTP := httputil.New(log, cfg.Marketplace.FetchTimeout).
		WithRateLimiter(redis.NewRateLimiter(redisClient, "marketplace"), redis.MarketplaceRateLimit)
	marketDataHTTP := httputil.New(log, cfg.Marketplace.FetchTimeout)

	// 6. Create stores and repositories
	candidates := store.NewCandidateStore(db.Pool)
	matches := store.NewMatchStore(db.Pool)
	purchases := store.NewPurchaseStore(db.Pool)
	settingsRepo := settings.NewRepository(db.Pool)
	settingSvc := settings.NewService(settingsRepo, log)
	runRepo := runs.NewRepository(db.Pool)
	agentRepo := agents.NewRepository(db.Pool)
	catalogProvider := catalog.NewProvider(db.Pool, redis.NewCache(redisClient, "radar"), log)

	// 7. Create pipeline stages
	ingestor := ingest.NewIngestor(candidates, settingSvc, log)
	matcher := match.NewMatcher(catalogProvider, matches, settingSvc, log)
	valuer := valuation.NewService(candidates, matches, settingSvc, log)

	return &deps{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  redisClient,
		lock:   leaselock.New(db.Pool),

		candidates: candidates,
		matches:    matches,
		purchases:  purchases,
		settings:   settingsRepo,
		settingSvc: settingSvc,
		runs:       runRepo,
		agents:     agentRepo,
		catalog:    catalogProvider,

		marketplace: kleinanzeigen.NewClient(cfg, marketplaceHTTP, log),
		marketData:  marketdata.NewClient(cfg, marketDataHTTP, log),

		ingestor:  ingestor,
		matcher:   matcher,
		valuer:    valuer,
		converter: convert.NewService(db.Pool, candidates, matches, purchases, settingSvc, log),
		pruner:    prune.NewPruner(candidates, settingSvc, log),
	}, nil
}

// runner builds a pipeline runner over the shared deps. publish may be nil
// for processes without an event hub.
func (d *deps) runner(publish pipeline.EventFunc) *pipeline.Runner {
	clients := map[string]contracts.MarketplaceClient{
		d.marketplace.Platform(): d.marketplace,
	}
	return pipeline.NewRunner(clients, d.ingestor, d.matcher, d.valuer,
		d.candidates, d.runs, d.settingSvc, d.log, publish)
}

// Close releases connections in reverse dependency order.
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
