package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclients "github.com/pradumanrathod/studytracker/internal/common/aws"
	"github.com/pradumanrathod/studytracker/internal/common/config"
	"github.com/pradumanrathod/studytracker/internal/common/database"
	"github.com/pradumanrathod/studytracker/internal/common/logger"
	"github.com/pradumanrathod/studytracker/internal/common/observability"
	"github.com/pradumanrathod/studytracker/internal/models"
	"github.com/pradumanrathod/studytracker/internal/notify"
	"github.com/pradumanrathod/studytracker/internal/presence"
	"github.com/pradumanrathod/studytracker/internal/remote"
	"github.com/pradumanrathod/studytracker/internal/search"
	"github.com/pradumanrathod/studytracker/internal/storage"
	"github.com/pradumanrathod/studytracker/internal/tracker"
)

// retryWithBackoff attempts to execute a function with exponential backoff.
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting studytracker",
		zap.String("environment", cfg.App.Environment),
		zap.String("storageMode", cfg.Storage.Mode),
	)

	obs := observability.New("trackerd")
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uid := os.Getenv("STUDYTRACKER_UID")
	if uid == "" {
		uid = storage.GuestUID
	}

	// --- Local durable storage ---
	var kv storage.KV
	switch cfg.Storage.Mode {
	case "redis":
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Storage.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		kv = storage.NewRedisKV(rc)
	default:
		kv, err = storage.NewFileKV(cfg.Storage.FileDir)
		if err != nil {
			zapLog.Fatal("file storage init failed", zap.Error(err))
		}
	}

	// --- Timer service ---
	store := tracker.NewStore(kv, uid, log)
	svc := tracker.NewService(store, tracker.Config{
		UID:             uid,
		TickInterval:    time.Duration(cfg.Timer.TickIntervalMs) * time.Millisecond,
		PersistInterval: time.Duration(cfg.Timer.PersistIntervalMs) * time.Millisecond,
	}, log)
	svc.LoadHistory(ctx)
	defer svc.Close()

	watcher := presence.NewWatcher(svc, log)

	// --- Remote sync (optional) ---
	var syncer *remote.Syncer
	if cfg.Sync.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		syncer = remote.NewSyncer(svc, remote.NewPostgresStore(pg.DB), uid,
			time.Duration(cfg.Sync.IntervalMs)*time.Millisecond, log, obs)
		go syncer.Run(ctx)
	}

	// --- Session archive (optional) ---
	var indexer *search.Indexer
	if cfg.Search.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = search.NewIndexer(es, cfg.Database.Elasticsearch.Index, log)
	}

	svc.SetSessionEndedHook(func(sess models.Session) {
		hookCtx, hookCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer hookCancel()
		if syncer != nil {
			syncer.PushSession(hookCtx, sess)
		}
		if indexer != nil {
			if err := indexer.IndexSession(hookCtx, uid, sess); err != nil {
				log.WithError(err).Warn("session archive indexing failed", nil)
			}
		}
	})

	// --- Daily reminders (optional) ---
	notifCfg := cfg.Notifications
	if notifCfg.AWS.SES.Enabled || notifCfg.AWS.SNS.Enabled {
		var sesClient notify.EmailSender
		if notifCfg.AWS.SES.Enabled {
			c, err := awsclients.NewSESClient(ctx, notifCfg.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
			sesClient = c
		}
		var snsClient notify.Publisher
		if notifCfg.AWS.SNS.Enabled {
			c, err := awsclients.NewSNSClient(ctx, notifCfg.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			snsClient = c
		}

		notifier := notify.NewNotifier(sesClient, snsClient,
			notifCfg.AWS.SES.FromEmail, notifCfg.AWS.SNS.TopicARN, log)
		scheduler := notify.NewScheduler(notifier, kv, uid, log)
		go scheduler.Run(ctx, time.Minute)
	}

	// --- Control API + metrics ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	registerControlRoutes(mux, svc, watcher)

	server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		zapLog.Info("http server listening", zap.String("addr", cfg.Metrics.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}()

	// --- Shutdown: flush progress before the process dies so at most
	// the throttle window of active time is ever at risk. ---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLog.Info("shutting down, flushing progress")
	svc.FlushProgress()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}

// registerControlRoutes exposes the session lifecycle to the UI process.
func registerControlRoutes(mux *http.ServeMux, svc *tracker.Service, watcher *presence.Watcher) {
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("POST /session/start", func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.StartSession()
		if err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, models.EncodeSession(*sess))
	})

	mux.HandleFunc("POST /session/pause", func(w http.ResponseWriter, r *http.Request) {
		watcher.ManualPause()
		writeJSON(w, http.StatusOK, map[string]string{"state": string(svc.State())})
	})

	mux.HandleFunc("POST /session/resume", func(w http.ResponseWriter, r *http.Request) {
		watcher.ManualResume()
		writeJSON(w, http.StatusOK, map[string]string{"state": string(svc.State())})
	})

	mux.HandleFunc("POST /session/end", func(w http.ResponseWriter, r *http.Request) {
		ended := svc.EndSession()
		if ended == nil {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, models.EncodeSession(*ended))
	})

	mux.HandleFunc("POST /presence", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Present bool `json:"present"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		watcher.OnPresence(body.Present)
		writeJSON(w, http.StatusOK, map[string]string{"state": string(svc.State())})
	})

	mux.HandleFunc("GET /session/current", func(w http.ResponseWriter, r *http.Request) {
		cur := svc.GetCurrentSession()
		if cur == nil {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, models.EncodeSession(*cur))
	})

	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions := svc.GetSessions()
		docs := make([]models.SessionDoc, len(sessions))
		for i, s := range sessions {
			docs[i] = models.EncodeSession(s)
		}
		writeJSON(w, http.StatusOK, docs)
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetStats())
	})

	mux.HandleFunc("GET /milestones", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetMilestones())
	})
}
