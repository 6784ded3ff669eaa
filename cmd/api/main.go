package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanosuguru/go-show-reservation/internal/api"
	"github.com/sanosuguru/go-show-reservation/internal/api/handler"
	"github.com/sanosuguru/go-show-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/config"
	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
	"github.com/sanosuguru/go-show-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-show-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-show-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-show-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/tracing"
	"github.com/sanosuguru/go-show-reservation/internal/seed"
	"github.com/sanosuguru/go-show-reservation/internal/worker"
)

// stores は選択したドライバーのリポジトリ一式
type stores struct {
	txm      transaction.Manager
	shows    show.Repository
	bookings booking.Repository
	users    user.Repository
	theatres theatre.Repository
	seed     seed.Store
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバー異常終了", zap.Error(err))
	}
	logger.Info("サーバーが正常にシャットダウンしました")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("トレース送信の停止に失敗", zap.Error(err))
		}
	}()

	m := metrics.Init()
	checks := map[string]handler.HealthCheckFunc{}

	st, closeStore, err := openStores(cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis（任意）: 空席数キャッシュと分散ロック
	var (
		redisClient *goredis.Client
		lockManager *redisinfra.LockManager
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redisinfra.NewClient(&cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		lockManager = redisinfra.NewLockManager(redisClient, m)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		logger.Info("Redisに接続しました")
	}

	ledgerOpts := []application.LedgerOption{
		application.WithMetrics(m),
		application.WithRetryPolicy(application.RetryPolicy{
			MaxRetries:      cfg.Ledger.MaxRetries,
			InitialInterval: cfg.Ledger.InitialInterval,
			MaxInterval:     cfg.Ledger.MaxInterval,
		}),
	}

	// RabbitMQ（任意）: 予約イベント配信
	if cfg.Messaging.URL != "" {
		publisher, err := rabbitmq.Dial(cfg.Messaging.URL, cfg.Messaging.Exchange)
		if err != nil {
			return err
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("RabbitMQ切断に失敗", zap.Error(err))
			}
		}()
		ledgerOpts = append(ledgerOpts, application.WithEventPublisher(publisher))
		logger.Info("RabbitMQに接続しました", zap.String("exchange", cfg.Messaging.Exchange))
	}

	showService := application.NewShowService(st.txm, st.shows, st.theatres)
	if redisClient != nil {
		cache := redisinfra.NewAvailabilityCache(redisClient)
		ledgerOpts = append(ledgerOpts, application.WithAvailabilityCache(cache))
		showService.UseCache(cache, cfg.Redis.CacheTTL, m)
	}
	ledgerService := application.NewLedgerService(st.txm, st.shows, st.bookings, st.users, ledgerOpts...)
	theatreService := application.NewTheatreService(st.theatres)
	userService := application.NewUserService(st.users)

	if cfg.Seed.Path != "" {
		if err := importSeed(ctx, cfg.Seed.Path, st.seed, lockManager); err != nil {
			return err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	middleware.SetupMiddleware(e, m)

	handler.RegisterRoutes(e, handler.Handlers{
		Health:  handler.NewHealthHandler(checks),
		Booking: handler.NewBookingHandler(ledgerService),
		Show:    handler.NewShowHandler(showService, ledgerService),
		Theatre: handler.NewTheatreHandler(theatreService),
		User:    handler.NewUserHandler(userService),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "サーバー起動エラー")
		}
		return nil
	})

	if cfg.Audit.Interval > 0 {
		var locker worker.Locker
		if lockManager != nil {
			locker = lockManager
		}
		auditor := worker.NewInventoryAuditor(ledgerService, locker, m, cfg.Audit.Interval)
		g.Go(func() error {
			auditor.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(sctx); err != nil {
			return errors.Wrap(err, "サーバーシャットダウンエラー")
		}
		return nil
	})

	return g.Wait()
}

// openStores は STORE_DRIVER に応じてリポジトリを組み立てる
func openStores(cfg *config.Config, checks map[string]handler.HealthCheckFunc) (*stores, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		logger.Info("インメモリストアを使用します")
		return &stores{
			txm:      memory.NewTxManager(store),
			shows:    memory.NewShowRepository(store),
			bookings: memory.NewBookingRepository(store),
			users:    memory.NewUserRepository(store),
			theatres: memory.NewTheatreRepository(store),
			seed:     memory.NewSeedStore(store),
		}, func() {}, nil

	case config.StoreDriverPostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checks["database"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		logger.Info("データベースに接続しました", zap.String("host", cfg.Database.Host))
		return postgresStores(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, errors.Newf("未対応のストアドライバー: %s", cfg.Store.Driver)
	}
}

func postgresStores(db *sqlx.DB) *stores {
	return &stores{
		txm:      postgres.NewTxManager(db),
		shows:    postgres.NewShowRepository(db),
		bookings: postgres.NewBookingRepository(db),
		users:    postgres.NewUserRepository(db),
		theatres: postgres.NewTheatreRepository(db),
		seed:     postgres.NewSeedStore(db),
	}
}

// importSeed は初期データを投入する。Redis があれば分散ロック下で実行する
func importSeed(ctx context.Context, path string, store seed.Store, lockManager *redisinfra.LockManager) error {
	var locker seed.Locker
	if lockManager != nil {
		locker = lockManager
	}
	summary, err := seed.NewImporter(store, locker).ImportFile(ctx, path)
	if err != nil {
		return errors.Wrap(err, "初期データ投入に失敗")
	}
	if summary.Skipped {
		logger.Info("既存データがあるため初期データ投入をスキップしました")
		return nil
	}
	logger.Info("初期データを投入しました",
		zap.Int("users", summary.Users),
		zap.Int("theatres", summary.Theatres),
		zap.Int("shows", summary.Shows),
		zap.Int("bookings", summary.Bookings),
	)
	return nil
}
