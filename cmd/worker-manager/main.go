// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mentorship-workers/internal/common/config"
	"mentorship-workers/internal/common/database"
	"mentorship-workers/internal/common/logger"
	"mentorship-workers/internal/common/metrics"
	"mentorship-workers/internal/common/observability"
	"mentorship-workers/internal/provisioning"
	"mentorship-workers/internal/reports"
	"mentorship-workers/internal/scoring"
	"mentorship-workers/pkg/registry"

	// Application workers (2)
	aa "mentorship-workers/internal/workers/application/approve-application"
	ra "mentorship-workers/internal/workers/application/reject-application"

	// Assignment workers (3)
	ca "mentorship-workers/internal/workers/assignment/create-assignment"
	ea "mentorship-workers/internal/workers/assignment/end-assignment"
	rso "mentorship-workers/internal/workers/assignment/record-session-outcome"

	// Scoring workers (2)
	gas "mentorship-workers/internal/workers/scoring/get-advisor-score"
	ras "mentorship-workers/internal/workers/scoring/recompute-advisor-score"

	// Report workers (5)
	rr "mentorship-workers/internal/workers/reports/report-reminders"
	rrt "mentorship-workers/internal/workers/reports/resolve-report-template"
	rev "mentorship-workers/internal/workers/reports/review-report"
	sdr "mentorship-workers/internal/workers/reports/save-draft-report"
	sr "mentorship-workers/internal/workers/reports/submit-report"

	// Notification workers (1)
	srm "mentorship-workers/internal/workers/notifications/send-reminder"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	if cfg.Logging.Level != "" {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		log = logger.NewZapAdapter(zapLog)
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Validate activity registry ---
	if reg, err := registry.LoadRegistry(cfg.Registry.Path); err != nil {
		zapLog.Warn("activity registry unavailable", zap.Error(err), zap.String("path", cfg.Registry.Path))
	} else if err := reg.ValidateSchemas(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	} else {
		zapLog.Info("activity registry loaded", zap.Int("activities", len(reg.Activities)))
	}

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	// Profile indexing is best effort, so a missing cluster only costs
	// search freshness.
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Warn("elasticsearch unavailable, profile indexing disabled", zap.Error(err))
		esClient = nil
	} else {
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	indexer := provisioning.NewIndexer(esClient, log)

	weights := scoring.Weights{
		Rating:     cfg.Scoring.RatingWeight,
		Likelihood: cfg.Scoring.LikelihoodWeight,
	}
	cacheTTL := time.Duration(cfg.Scoring.CacheTTLMinutes) * time.Minute

	// --- Register workers ---

	// Application workers
	if wcfg := config.GetWorkerConfig(cfg, aa.TaskType); wcfg.Enabled {
		handler := aa.NewHandler(
			&aa.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, indexer, log,
		)
		startWorker(zeebeClient, aa.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, ra.TaskType); wcfg.Enabled {
		handler := ra.NewHandler(
			&ra.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, log,
		)
		startWorker(zeebeClient, ra.TaskType, wcfg, handler.Handle, zapLog)
	}

	// Assignment workers
	if wcfg := config.GetWorkerConfig(cfg, ca.TaskType); wcfg.Enabled {
		handler := ca.NewHandler(
			&ca.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, log,
		)
		startWorker(zeebeClient, ca.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, ea.TaskType); wcfg.Enabled {
		handler := ea.NewHandler(
			&ea.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, log,
		)
		startWorker(zeebeClient, ea.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, rso.TaskType); wcfg.Enabled {
		handler := rso.NewHandler(
			&rso.Config{
				Timeout:          config.GetDuration(wcfg.Timeout),
				RatingWeight:     cfg.Scoring.RatingWeight,
				LikelihoodWeight: cfg.Scoring.LikelihoodWeight,
			},
			pg.DB, redis, log,
		)
		startWorker(zeebeClient, rso.TaskType, wcfg, handler.Handle, zapLog)
	}

	// Scoring workers
	if wcfg := config.GetWorkerConfig(cfg, ras.TaskType); wcfg.Enabled {
		handler := ras.NewHandler(
			&ras.Config{
				Timeout:          config.GetDuration(wcfg.Timeout),
				RatingWeight:     cfg.Scoring.RatingWeight,
				LikelihoodWeight: cfg.Scoring.LikelihoodWeight,
				CacheTTL:         cacheTTL,
			},
			pg.DB, redis, log,
		)
		startWorker(zeebeClient, ras.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, gas.TaskType); wcfg.Enabled {
		handler := gas.NewHandler(
			&gas.Config{
				Timeout:  config.GetDuration(wcfg.Timeout),
				CacheTTL: cacheTTL,
			},
			pg.DB, redis, log,
		)
		startWorker(zeebeClient, gas.TaskType, wcfg, handler.Handle, zapLog)
	}

	// Report workers
	if wcfg := config.GetWorkerConfig(cfg, rrt.TaskType); wcfg.Enabled {
		handler := rrt.NewHandler(
			&rrt.Config{
				Timeout:  config.GetDuration(wcfg.Timeout),
				GraceDay: cfg.Reports.GraceDay,
			},
			pg.DB, log,
		)
		startWorker(zeebeClient, rrt.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, sdr.TaskType); wcfg.Enabled {
		handler := sdr.NewHandler(
			&sdr.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, log,
		)
		startWorker(zeebeClient, sdr.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, sr.TaskType); wcfg.Enabled {
		handler := sr.NewHandler(
			&sr.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, log,
		)
		startWorker(zeebeClient, sr.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, rev.TaskType); wcfg.Enabled {
		handler := rev.NewHandler(
			&rev.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			pg.DB, log,
		)
		startWorker(zeebeClient, rev.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, rr.TaskType); wcfg.Enabled {
		handler := rr.NewHandler(
			&rr.Config{
				Timeout:  config.GetDuration(wcfg.Timeout),
				GraceDay: cfg.Reports.GraceDay,
			},
			pg.DB, log,
		)
		startWorker(zeebeClient, rr.TaskType, wcfg, handler.Handle, zapLog)
	}

	// Notification workers
	if wcfg := config.GetWorkerConfig(cfg, srm.TaskType); wcfg.Enabled {
		handler, err := srm.NewHandler(
			&srm.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				AWSRegion:    cfg.Notifications.AWS.Region,
				Timeout:      config.GetDuration(wcfg.Timeout),
			},
			pg.DB, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create send-reminder handler", zap.Error(err))
		}
		startWorker(zeebeClient, srm.TaskType, wcfg, handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Periodic scoring sweep ---
	// Repairs advisor aggregates when a session-triggered recompute failed.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		interval := time.Duration(cfg.Scoring.RecomputeIntervalMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				recomputed, errs := scoring.RecomputeAll(sweepCtx, pg.DB, weights)
				metrics.AdvisorScoreRecomputes.WithLabelValues("sweep").Add(float64(recomputed))
				if len(errs) > 0 {
					zapLog.Warn("scoring sweep finished with failures",
						zap.Int("recomputed", recomputed),
						zap.Int("failures", len(errs)),
						zap.Error(errs[0]),
					)
				} else {
					zapLog.Info("scoring sweep finished", zap.Int("recomputed", recomputed))
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			status := "ready"
			code := http.StatusOK
			if err := pg.Ping(r.Context()); err != nil {
				status = "not ready"
				code = http.StatusServiceUnavailable
			}
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	zapLog.Info("report grace day in effect",
		zap.Int("graceDay", cfg.Reports.GraceDay),
		zap.String("nextDue", nextDueDate(cfg.Reports.GraceDay).Format(time.RFC3339)),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stopSweep()

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// nextDueDate reports when the currently open reporting period comes due.
func nextDueDate(graceDay int) time.Time {
	month, year := reports.PreviousPeriod(time.Now().UTC())
	due := reports.DueDate(month, year, graceDay)
	if time.Now().UTC().After(due) {
		due = reports.DueDate(int(time.Now().UTC().Month()), time.Now().UTC().Year(), graceDay)
	}
	return due
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
