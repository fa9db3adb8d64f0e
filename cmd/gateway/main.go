// Command gateway starts browsergate: the Pool Manager and its
// supporting services (health, maintenance, recycler, scaler, circuit
// breaker, metrics) wired to the three wire adapters (REST, WebSocket,
// MCP) described by SPEC_FULL.md.
//
// Grounded on the teacher's cmd/test_runner/main.go: the same
// construct-everything-then-serve shape, generalized from the teacher's
// ad-hoc demo wiring to kong-parsed flags and a config.Watcher.
package main

import (
	"context"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"browsergate/config"
	"browsergate/http"
	"browsergate/http/handlers"
	"browsergate/logger"
	"browsergate/mcp"
	"browsergate/services/admission"
	"browsergate/services/capture"
	"browsergate/services/circuitbreaker"
	"browsergate/services/commands"
	"browsergate/services/driver"
	"browsergate/services/events"
	"browsergate/services/health"
	"browsergate/services/maintenance"
	"browsergate/services/metrics"
	"browsergate/services/pool"
	"browsergate/services/recycler"
	"browsergate/services/scaler"
	"browsergate/services/sessionstore"
	"browsergate/ws"
)

var cli struct {
	Config  string `help:"Path to a YAML config file; overrides the bundled defaults." type:"path"`
	Fake    bool   `help:"Use the in-memory fake browser driver instead of Playwright (for local smoke-testing)."`
	MCPOnly bool   `help:"Serve only the MCP stdio tool surface; skip REST/WS listeners." name:"mcp-only"`
}

func main() {
	kong.Parse(&cli, kong.Name("gateway"), kong.Description("browsergate: a pooled, multi-protocol browser automation gateway"))

	bootstrapCfg, err := config.Load(cli.Config)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(bootstrapCfg.Logger.Level, bootstrapCfg.Logger.Format)
	log := logger.Logger
	defer log.Sync()

	watcher, err := config.NewWatcher(cli.Config)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg := watcher.Current()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drv, err := buildDriver(ctx, cli.Fake)
	if err != nil {
		log.Fatal("failed to start browser driver", zap.Error(err))
	}

	collector := metrics.NewCollector()
	auditSink := events.NewMemorySink(1000)
	observer := events.NewMulti(events.NewAuditObserver(auditSink))

	var kafkaObs *events.KafkaObserver
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaObs = events.NewKafkaObserver(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		observer.Register(kafkaObs)
		defer kafkaObs.Close()
	}

	policies := admission.DefaultPolicies()
	gate := admission.New(policies)
	gate.Register("default", cfg.Admission.DefaultTier)

	breaker := circuitbreaker.New("pool-acquire", circuitbreaker.DefaultConfig())
	mgr := pool.New(cfg.Pool.ToPoolConfig(), drv, breaker, observer, collector)

	hub := ws.NewHub(mgr, log, gate)
	observer.Register(hub)

	monitor := health.New(mgr, health.Config{
		CheckInterval:   cfg.Pool.HealthCheckInterval,
		ResponseTimeout: cfg.Pool.ResponseTimeout,
	}, collector, mgr.RecycleNow)

	recyclerCfg := recycler.DefaultConfig()
	recyclerCfg.MaxAge = cfg.Pool.MaxAge
	recyclerCfg.RecycleAfterUses = cfg.Pool.RecycleAfterUses
	recyclerCfg.MaxMemoryMB = cfg.Pool.MaxMemoryPerBrowserMB
	recyclerCfg.MaxCPUPercent = cfg.Pool.MaxCPUPerBrowser
	recyclerCfg.MaxPagesPerBrowser = cfg.Pool.MaxPagesPerBrowser
	scorer := recycler.NewScorer(recyclerCfg)
	executor := recycler.NewExecutor(recyclerCfg)

	scalerCfg := scaler.DefaultConfig()
	scalerCfg.MaxBrowsers = cfg.Pool.MaxBrowsers
	scalerCfg.MinBrowsers = cfg.Pool.MinBrowsers
	decider := scaler.New(scalerCfg)

	maintLoop := maintenance.New(mgr, scorer, executor, decider, maintenance.Config{
		Interval:    cfg.Pool.MaintenanceInterval,
		IdleTimeout: cfg.Pool.IdleTimeout,
	})

	// RegisterWorker must run before Initialize: Shutdown's wg.Wait() only
	// blocks on workers registered here, so health/maintenance in-flight
	// checks are guaranteed to stop before destroyInstance runs.
	mgr.RegisterWorker(monitor)
	mgr.RegisterWorker(maintLoop)
	if err := mgr.Initialize(ctx); err != nil {
		log.Fatal("pool initialization failed", zap.Error(err))
	}

	sessions, err := buildSessionStore(ctx, cfg.Session)
	if err != nil {
		log.Fatal("session store initialization failed", zap.Error(err))
	}

	var uploader *capture.Uploader
	if cfg.Capture.S3Bucket != "" {
		uploader = capture.NewUploader(cfg.Capture.S3Bucket, cfg.Capture.S3Region)
	}
	recorder := capture.NewRecorder(cfg.Capture.RecordingStoragePath, log)

	cmdOpts := commands.Options{
		Upload:                uploader,
		Recorder:              recorder,
		InlineScreenshotLimit: cfg.Capture.InlineScreenshotLimit,
	}
	cmdsHandler := handlers.NewCommandsHandler()
	poolHandler := handlers.NewPoolHandler(mgr, cmdsHandler, drv, sessions, cmdOpts, gate)

	go observeConfig(ctx, watcher, gate)

	if !cli.MCPOnly {
		restServer := http.NewServer(log, cfg.Cors.AllowedOrigins, poolHandler, cmdsHandler)
		go func() {
			if err := restServer.Listen(ctx, cfg.Listen.HTTP); err != nil {
				log.Error("REST adapter stopped", zap.Error(err))
			}
		}()

		wsServer := &stdhttp.Server{Addr: cfg.Listen.WS, Handler: hub}
		go func() {
			if err := wsServer.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				log.Error("WebSocket adapter stopped", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			wsServer.Shutdown(shutdownCtx)
		}()
	}

	mcpServer := mcp.NewServer(mgr, drv, cmdOpts, gate)
	log.Info("browsergate started", zap.String("http", cfg.Listen.HTTP), zap.String("ws", cfg.Listen.WS))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mgr.Shutdown(shutdownCtx, false); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
		os.Exit(0)
	}()

	if err := mcp.ServeStdio(mcpServer); err != nil {
		log.Fatal("MCP adapter stopped", zap.Error(err))
	}
}

func buildDriver(ctx context.Context, useFake bool) (driver.Driver, error) {
	if useFake {
		return driver.NewFake(), nil
	}
	return driver.NewPlaywrightDriver()
}

func buildSessionStore(ctx context.Context, cfg config.SessionConfig) (sessionstore.Store, error) {
	if cfg.Backend == "mongo" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, err
		}
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		return sessionstore.NewMongo(coll), nil
	}
	return sessionstore.NewMemory(), nil
}

// observeConfig re-registers admission tenants whenever the watched
// config file changes, mirroring the teacher's dynamic_config.go
// watcher-channel subscription pattern.
func observeConfig(ctx context.Context, watcher *config.Watcher, gate *admission.Gate) {
	ch := watcher.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			gate.Register("default", cfg.Admission.DefaultTier)
		}
	}
}

