// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"candidate-portal/internal/activity"
	"candidate-portal/internal/api"
	"candidate-portal/internal/candidates"
	commonaws "candidate-portal/internal/common/aws"
	"candidate-portal/internal/common/camunda"
	"candidate-portal/internal/common/config"
	"candidate-portal/internal/common/connectivity"
	"candidate-portal/internal/common/database"
	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/observability"
	"candidate-portal/internal/notify"
	"candidate-portal/internal/search"
	"candidate-portal/internal/sheets"
	"candidate-portal/internal/supabase"

	activityrecord "candidate-portal/internal/workers/activity/record"
	addcandidate "candidate-portal/internal/workers/candidate/add"
	fetchall "candidate-portal/internal/workers/candidate/fetch-all"
	fetchbyid "candidate-portal/internal/workers/candidate/fetch-by-id"
	resumerequest "candidate-portal/internal/workers/resume/request"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting candidate portal...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Durable key-value store ---
	var store kv.Store = kv.NewMemoryStore()
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
			if err != nil {
				return err
			}
			store = kv.NewRedisStore(rdb, cfg.Database.Redis.KeyPrefix)
			return nil
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Warn("No redis address configured, state will not survive restarts")
	}

	if cfg.Sheets.APIKey != "" {
		if err := store.Set(ctx, cfg.Sheets.APIKeyStoreKey, cfg.Sheets.APIKey); err != nil {
			zapLog.Fatal("failed to provision sheets API key", zap.Error(err))
		}
	}

	// --- Secondary store ---
	var (
		db        *sql.DB
		secondary supabase.Store
	)
	if cfg.Database.Supabase.Configured() {
		err = retryWithBackoff(func() error {
			var err error
			db, err = database.NewSupabase(ctx, cfg.Database.Supabase)
			return err
		}, 15, 2*time.Second, zapLog, "Supabase connection")
		if err != nil {
			zapLog.Fatal("supabase failed after retries", zap.Error(err))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db, cfg.Database.Supabase); err != nil {
			zapLog.Fatal("supabase schema failed", zap.Error(err))
		}
		secondary = supabase.NewPostgresStore(db, cfg.Database.Supabase.Table)
		zapLog.Info("Supabase connected successfully")
	}

	// --- Search index ---
	var (
		esIndexer   *search.Indexer
		candIndexer candidates.Indexer
	)
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *elasticsearch.Client
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(ctx, cfg.Database.Elasticsearch)
			return err
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		esIndexer = search.NewIndexer(esClient, cfg.Database.Elasticsearch.Index, log)
		candIndexer = esIndexer
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Primary store ---
	var writer sheets.Client
	if cfg.Sheets.CanWrite() {
		w, err := sheets.NewWriter(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			zapLog.Error("sheets writer unavailable, adds disabled", zap.Error(err))
		} else {
			writer = w
		}
	}

	monitor := connectivity.NewMonitor(cfg.Connectivity.ProbeURL, config.GetDuration(cfg.Connectivity.ProbeTimeout), log)
	if err := monitor.Start(cfg.Connectivity.Schedule()); err != nil {
		zapLog.Fatal("connectivity monitor failed", zap.Error(err))
	}
	defer monitor.Stop()

	service := candidates.NewService(cfg.Sheets, cfg.Resilience, candidates.Dependencies{
		Store:     store,
		Factory:   sheets.ReaderFactory(cfg.Sheets.SpreadsheetID),
		Writer:    writer,
		Secondary: secondary,
		Signal:    monitor,
		Indexer:   candIndexer,
		Logger:    log,
		Obs:       obs,
	})
	if err := service.Start(ctx); err != nil {
		zapLog.Fatal("candidate service failed to start", zap.Error(err))
	}

	// --- Activity tracking ---
	var tracker *activity.Tracker
	if cfg.Activity.Enabled {
		var sink activity.Sink
		var opts []activity.Option
		switch {
		case db != nil:
			sink = activity.NewPostgresSink(db, cfg.Database.Supabase.ActivityTable)
		case writer != nil:
			sink = activity.NewSheetSink(writer, cfg.Activity.SheetRange)
			opts = append(opts, activity.WithAuthorizer(service.Gate()))
		}
		if sink != nil {
			tracker = activity.NewTracker(store, cfg.Activity.QueueKey, sink, monitor, log, opts...)
			tracker.Start(ctx)
			defer tracker.Close()
		} else {
			zapLog.Warn("Activity tracking enabled but no sink is configured")
		}
	}

	// --- Notifications ---
	var (
		email  commonaws.EmailSender
		alerts commonaws.Publisher
	)
	n := cfg.Notifications
	if n.Email.Enabled || n.AdminAlerts.Enabled {
		awsCfg, err := commonaws.LoadConfig(ctx, n.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if n.Email.Enabled {
			email = commonaws.NewSESClient(awsCfg)
		}
		if n.AdminAlerts.Enabled {
			alerts = commonaws.NewSNSClient(awsCfg)
		}
	}
	var recorder notify.ActivityRecorder
	if tracker != nil {
		recorder = tracker
	}
	resume := notify.NewResumeNotifier(notify.Config{
		EmailEnabled:  n.Email.Enabled,
		FromEmail:     n.Email.FromEmail,
		Subject:       n.Email.Subject,
		AlertsEnabled: n.AdminAlerts.Enabled,
		TopicARN:      n.AdminAlerts.TopicARN,
	}, service, email, alerts, recorder, log)

	// --- HTTP API ---
	deps := api.Deps{
		Candidates: service,
		Search:     search.NewSearcher(esIndexer, service, log),
		Resume:     resume,
		Version:    cfg.App.Version,
	}
	if tracker != nil {
		deps.Activity = tracker
	}
	server := api.NewServer(
		cfg.HTTP.Port,
		config.GetDuration(cfg.HTTP.ReadTimeout),
		config.GetDuration(cfg.HTTP.WriteTimeout),
		api.NewRouter(deps, log),
		log,
	)
	server.Start()

	// --- Job workers ---
	var (
		zeebe   *camunda.Client
		workers *camunda.Workers
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(camunda.ClientConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		workers = camunda.NewWorkers(zeebe, log)
		workers.Register(fetchall.TaskType, config.GetWorkerConfig(cfg, fetchall.TaskType),
			fetchall.NewHandler(fetchall.LoadConfig(cfg), service, obs, zeebe, log).Handle)
		workers.Register(fetchbyid.TaskType, config.GetWorkerConfig(cfg, fetchbyid.TaskType),
			fetchbyid.NewHandler(fetchbyid.LoadConfig(cfg), service, obs, zeebe, log).Handle)
		workers.Register(addcandidate.TaskType, config.GetWorkerConfig(cfg, addcandidate.TaskType),
			addcandidate.NewHandler(addcandidate.LoadConfig(cfg), service, obs, zeebe, log).Handle)
		workers.Register(resumerequest.TaskType, config.GetWorkerConfig(cfg, resumerequest.TaskType),
			resumerequest.NewHandler(resumerequest.LoadConfig(cfg), resume, obs, zeebe, log).Handle)
		if tracker != nil {
			workers.Register(activityrecord.TaskType, config.GetWorkerConfig(cfg, activityrecord.TaskType),
				activityrecord.NewHandler(activityrecord.LoadConfig(cfg), tracker, zeebe, log).Handle)
		}
		zapLog.Info("Job workers registered", zap.Int("count", workers.Count()))
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if workers != nil {
		workers.CloseAll()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing metrics", zap.Error(err))
	}
	stop()

	zapLog.Info("Candidate portal stopped gracefully")
}
