package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/httpapi"
	"BulletinBriefs/internal/infrastructure/fetcher"
	"BulletinBriefs/internal/infrastructure/llm"
	"BulletinBriefs/internal/infrastructure/queue"
	"BulletinBriefs/internal/infrastructure/scheduler"
	"BulletinBriefs/internal/infrastructure/searchconsole"
	"BulletinBriefs/internal/infrastructure/storage"
	"BulletinBriefs/internal/infrastructure/telegram"
	"BulletinBriefs/internal/logging"
	"BulletinBriefs/internal/ports"
	"BulletinBriefs/internal/scanner"
	"BulletinBriefs/internal/usecase"
)

// ErrNoDatabase is returned by operations that need the content store when
// no DSN is configured.
var ErrNoDatabase = errors.New("database dsn not configured")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db    *sqlx.DB
	redis *redis.Client

	scanner   *usecase.HealthScanner
	verifier  *usecase.VerificationPass
	issues    *usecase.IssueLogger
	worker    *usecase.VerificationWorker
	scheduler *usecase.Scheduler
	drafts    *usecase.DraftService
}

// New builds every adapter from cfg and injects them into the use cases.
// Adapters whose credentials are missing are left out.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	var chat *llm.ChatGPTClient
	if cfg.ChatGPT.APIKey != "" {
		chat = llm.NewChatGPTClient(cfg.ChatGPT)
	} else {
		baseLogger.Warn("chatgpt api key missing; AI content fixes and drafting disabled")
	}
	if chat != nil {
		a.drafts = usecase.NewDraftService(chat)
	} else {
		a.drafts = usecase.NewDraftService(nil)
	}

	if cfg.Database.DSN == "" {
		return a, nil
	}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db

	verificationQueue, err := a.buildQueue(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	articles := storage.NewArticleRepository(db)
	verifications := storage.NewVerificationRepository(db)
	a.issues = usecase.NewIssueLogger(storage.NewIssueRepository(db), cfg.Scan.IssueRetention,
		baseLogger.With("component", "issuelog"))

	pageFetcher := fetcher.NewPageFetcher(nil, cfg.Site.UserAgent, cfg.Site.FetchTimeout)

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram); tg.Configured() {
		notifier = tg
	}

	var (
		indexer   ports.Indexer
		inspector ports.IndexInspector
	)
	if cfg.SearchConsole.AccessToken != "" {
		sc := searchconsole.NewClient(cfg.SearchConsole, nil)
		indexer, inspector = sc, sc
	} else {
		baseLogger.Warn("search console token missing; re-indexing and index inspection disabled")
	}

	var generator ports.ContentGenerator
	if chat != nil {
		generator = chat
	}

	fixer := usecase.NewAutoFixer(usecase.AutoFixerDeps{
		Articles:      articles,
		Verifications: verifications,
		Generator:     generator,
		Logger:        baseLogger.With("component", "autofix"),
	})

	a.scanner = usecase.NewHealthScanner(usecase.ScannerDeps{
		Articles:          articles,
		Issues:            a.issues,
		Fixer:             fixer,
		Fetcher:           pageFetcher,
		Indexer:           indexer,
		Queue:             verificationQueue,
		Notifier:          notifier,
		Rules:             scanner.DefaultRegistry(cfg.Scan.StaleAfter),
		Site:              cfg.Site,
		Scan:              cfg.Scan,
		VerificationDelay: cfg.Verification.Delay,
		Logger:            baseLogger.With("component", "healthscan"),
	})

	a.verifier = usecase.NewVerificationPass(usecase.VerificationDeps{
		Articles:      articles,
		Verifications: verifications,
		Fetcher:       pageFetcher,
		Inspector:     inspector,
		Queue:         verificationQueue,
		Notifier:      notifier,
		Site:          cfg.Site,
		Verification:  cfg.Verification,
		Logger:        baseLogger.With("component", "verification"),
	})

	a.worker = usecase.NewVerificationWorker(verificationQueue, a.verifier, cfg.Verification.PollInterval,
		baseLogger.With("component", "verification.worker"))

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewTickerScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location())
		a.scheduler = usecase.NewScheduler(driver, a.scanner, baseLogger.With("component", "scheduler"))
	}

	return a, nil
}

func (a *Application) buildQueue(ctx context.Context) (ports.VerificationQueue, error) {
	if a.cfg.Redis.Addr == "" {
		a.logger.Warn("redis address missing; verification jobs are kept in memory")
		return queue.NewMemoryQueue(), nil
	}
	client, err := queue.NewRedisClient(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return queue.NewRedisQueue(client, a.cfg.Verification.QueueKey), nil
}

// Scan performs one health scan.
func (a *Application) Scan(ctx context.Context) (usecase.ScanReport, error) {
	if a.scanner == nil {
		return usecase.ScanReport{}, ErrNoDatabase
	}
	return a.scanner.Scan(ctx)
}

// Verify runs one verification pass immediately.
func (a *Application) Verify(ctx context.Context) (usecase.VerificationReport, error) {
	if a.verifier == nil {
		return usecase.VerificationReport{}, ErrNoDatabase
	}
	return a.verifier.Run(ctx)
}

// Draft asks the AI generator for a news draft.
func (a *Application) Draft(ctx context.Context, brief domain.DraftBrief) (domain.NewsDraft, error) {
	return a.drafts.Draft(ctx, brief)
}

// Migrate applies the log-table schema.
func (a *Application) Migrate(ctx context.Context) error {
	if a.db == nil {
		return ErrNoDatabase
	}
	return storage.Migrate(ctx, a.db)
}

// Serve runs the admin API, the periodic scan scheduler and the
// verification worker until ctx is cancelled or one of them fails.
func (a *Application) Serve(ctx context.Context) error {
	deps := httpapi.Deps{
		Drafter:   a.drafts,
		JWTSecret: a.cfg.API.JWTSecret,
		Logger:    a.logger.With("component", "httpapi"),
	}
	if a.scanner != nil {
		deps.Scanner = a.scanner
		deps.Verifier = a.verifier
		deps.Issues = a.issues
	}
	server := httpapi.NewServer(a.cfg.API.Addr, httpapi.NewRouter(deps), a.logger)

	g, ctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return a.scheduler.Stop(stopCtx)
		})
	}

	g.Go(func() error { return server.Run(ctx) })

	if a.worker != nil {
		g.Go(func() error { return a.worker.Run(ctx) })
	}

	return g.Wait()
}

// Close releases database and Redis connections.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
