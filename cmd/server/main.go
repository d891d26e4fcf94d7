package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	tele "gopkg.in/telebot.v3"

	"signalfuse/internal/bot"
	"signalfuse/internal/cache"
	"signalfuse/internal/config"
	"signalfuse/internal/db"
	"signalfuse/internal/disclosure"
	"signalfuse/internal/domain"
	"signalfuse/internal/handler"
	"signalfuse/internal/job"
	"signalfuse/internal/learning"
	"signalfuse/internal/metrics"
	"signalfuse/internal/notify"
	"signalfuse/internal/position"
	"signalfuse/internal/provider"
	"signalfuse/internal/repository"
	"signalfuse/internal/service"
	"signalfuse/internal/store"
	"signalfuse/pkg/logging"
	"signalfuse/pkg/tracing"

	_ "signalfuse/docs"
)

type kafkaWriter interface {
	notify.MessageWriter
	Close() error
}

var (
	loadEnvFunc        = godotenv.Load
	loadConfigFunc     = config.Load
	loadTuningFunc     = config.LoadTuning
	initLoggingFunc    = logging.Init
	initPostgresFunc   = db.InitPostgres
	initRedisFunc      = cache.InitRedis
	initTracerFunc     = tracing.InitTracer
	newTelegramFunc    = bot.NewBot
	serveTelegramFunc  = bot.Serve
	newKafkaWriterFunc = func(brokers []string, topic string) kafkaWriter {
		return notify.NewKafkaWriter(brokers, topic)
	}
	newLLMClientFunc       = disclosure.NewOpenAIClient
	startScanJobFunc       = func(j *job.ScanJob, ctx context.Context) { go j.Start(ctx) }
	metricsRegisterer      = prometheus.DefaultRegisterer
	metricsGatherer        = prometheus.DefaultGatherer
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// barStore is satisfied by both the Postgres repository and the in-process
// store.
type barStore interface {
	UpsertBars(ctx context.Context, code string, bars []domain.Bar) error
	GetSeries(ctx context.Context, code string, lookback int) (domain.Series, error)
	Codes(ctx context.Context) ([]string, error)
}

type stores struct {
	backend   string
	positions store.PositionStore
	trades    store.TradeStore
	stats     store.StatsStore
	bars      barStore
}

// openStores picks the persistence backend. Bars live in Postgres whenever a
// pool is up, even when positions and statistics are kept on disk.
func openStores(cfg *config.Config, tracer trace.Tracer, logger zerolog.Logger) (stores, error) {
	st := stores{backend: cfg.StoreBackend, bars: store.NewBars()}
	if db.Pool != nil {
		st.bars = repository.NewBarRepository(db.Pool, tracer)
	}

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		if db.Pool == nil {
			return stores{}, errors.New("postgres backend selected but no pool is available")
		}
		st.positions = repository.NewPositionRepository(db.Pool, tracer)
		st.trades = repository.NewTradeRepository(db.Pool, tracer)
		st.stats = repository.NewStatsRepository(db.Pool, tracer)
	case config.StoreBackendMemory:
		mem := store.NewMemory()
		st.positions, st.trades, st.stats = mem, mem.Trades(), mem
	default:
		f, err := store.NewFile(cfg.StateDir, logger)
		if err != nil {
			return stores{}, fmt.Errorf("open state dir %s: %w", cfg.StateDir, err)
		}
		st.positions, st.trades, st.stats = f, f.Trades(), f
	}
	return st, nil
}

// scanSettings lets SCAN_LOOKBACK_BARS and SCAN_MAX_BUYS override the tuning
// file only when they are set.
func scanSettings(cfg *config.Config, tuning *config.Tuning) (lookback, maxBuys int) {
	lookback, maxBuys = tuning.Scan.Lookback, tuning.Scan.MaxBuys
	if os.Getenv("SCAN_LOOKBACK_BARS") != "" {
		lookback = cfg.ScanLookback
	}
	if os.Getenv("SCAN_MAX_BUYS") != "" {
		maxBuys = cfg.ScanMaxBuys
	}
	return lookback, maxBuys
}

func buildNotifier(cfg *config.Config, tg *tele.Bot, kafka kafkaWriter) notify.Notifier {
	var chans notify.Multi
	if tg != nil && cfg.TelegramChatID != 0 {
		chans = append(chans, notify.NewTelegram(tg, cfg.TelegramChatID))
	}
	if kafka != nil {
		chans = append(chans, notify.NewKafka(kafka))
	}
	if len(chans) == 0 {
		return notify.Nop{}
	}
	return chans
}

func disclosureSource(cfg *config.Config, tracer trace.Tracer, logger zerolog.Logger) *disclosure.Source {
	feed := provider.NewDisclosureFeed(tracer, cfg.DisclosureFeedURL, provider.NewRateLimiter(5, time.Second))
	var classifier disclosure.Classifier = disclosure.Keyword{}
	if cfg.OpenAIAPIKey != "" {
		classifier = disclosure.NewLLM(tracer, newLLMClientFunc(cfg.OpenAIAPIKey), cfg.OpenAIModel, logger)
	}
	return disclosure.NewSource(tracer, feed, classifier, logger)
}

// @title           SignalFuse API
// @version         1.0
// @description     Technical and market-context signal fusion with an adaptive position book.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	logger := initLoggingFunc(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tuning, err := loadTuningFunc(cfg.TuningFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load tuning")
	}

	tp, tracer, err := initTracerFunc(ctx, tracing.Options{Enabled: cfg.TracingEnabled, Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		if cfg.StoreBackend == config.StoreBackendPostgres {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		log.Warn().Err(err).Msg("postgres unavailable, bars are kept in memory")
	}
	defer db.Close()

	var redisClient cache.RedisClient
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, caching disabled")
	} else if cache.Client != nil {
		redisClient = cache.Client
	}

	st, err := openStores(cfg, tracer, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	log.Info().Str("backend", st.backend).Msg("stores ready")

	rec := metrics.New(metricsRegisterer)

	tg, err := newTelegramFunc(cfg.TelegramBotToken, logger)
	if err != nil {
		log.Error().Err(err).Msg("telegram disabled")
		tg = nil
	}
	var kafka kafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		kafka = newKafkaWriterFunc(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafka.Close(); err != nil {
				log.Error().Err(err).Msg("error closing kafka writer")
			}
		}()
	}
	notifier := buildNotifier(cfg, tg, kafka)

	reports := cache.NewReportCache(redisClient)
	learner := learning.New(st.stats, st.trades, logger)
	manager := position.NewManager(st.positions, st.trades, learner, notifier, rec, logger)
	analyzer := service.NewAnalyzer(tracer, service.NewEngines(tuning.Offsets, tuning.Levels), service.AnalyzerDeps{
		Series:      cache.NewSeriesCache(tracer, redisClient, st.bars, logger),
		Disclosures: disclosureSource(cfg, tracer, logger),
		Trades:      st.trades,
		Stats:       st.stats,
		Reports:     reports,
		Notifier:    notifier,
		Metrics:     rec,
	}, logger)

	var universe service.Universe = st.bars
	if len(cfg.ScanUniverse) > 0 {
		universe = service.StaticUniverse(cfg.ScanUniverse)
	}
	lookback, maxBuys := scanSettings(cfg, tuning)
	trader := service.NewTrader(tracer, analyzer, manager, learner, universe, lookback, maxBuys, logger)

	scanJob := job.NewScanJob(tracer, trader, cfg.ScanIntervalSecs, logger)
	startScanJobFunc(scanJob, ctx)

	serveTelegramFunc(tg, bot.NewCommands(analyzer, manager, lookback), logger)

	h := handler.New(tracer, handler.Deps{
		Analyzer:  analyzer,
		Reports:   reports,
		Trader:    trader,
		Scanner:   scanJob,
		Bars:      st.bars,
		Positions: manager,
		Trades:    st.trades,
		Learning:  learner,
		Metrics:   promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}),
	}, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down server...")

	cancel()
	if tg != nil {
		tg.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
