package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MediRoute/internal/dispatch"
	handlers "MediRoute/internal/handler"
	"MediRoute/internal/listeners"
	"MediRoute/internal/models"
	"MediRoute/pkg/auth"
	"MediRoute/pkg/backup"
	"MediRoute/pkg/cache"
	"MediRoute/pkg/config"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/metrics"
	"MediRoute/pkg/middleware"
	"MediRoute/pkg/notification"
	"MediRoute/pkg/scheduler"
	"MediRoute/pkg/search"
	"MediRoute/pkg/sse"
	stores "MediRoute/pkg/storage"
	"MediRoute/pkg/util"
	"MediRoute/pkg/websocket"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	dbLogLevel := gormlogger.Warn
	if cfg.Mode == "development" {
		dbLogLevel = gormlogger.Info
	}
	db, err := util.InitDatabase(cfg.DBDriver, cfg.DSN, dbLogLevel)
	if err != nil {
		logger.Lg.Fatal("open database failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		logger.Lg.Fatal("migrate failed", zap.Error(err))
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return
	}
	if created, err := models.EnsureAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("create bootstrap admin failed", zap.Error(err))
	} else if created {
		logger.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
	}

	shared, err := cache.NewCache(cfg.Cache)
	if err != nil {
		logger.Lg.Fatal("init cache failed", zap.String("type", cfg.Cache.Type), zap.Error(err))
	}
	defer shared.Close()
	hospitalCache := shared
	if cfg.Cache.Type == "redis" {
		hospitalCache = cache.NewLayeredCache(cache.NewLocalCache(cfg.Cache.Local), shared, cache.DefaultOptions())
	}

	m := metrics.NewMetrics()
	hub := sse.NewHub(30 * time.Second)
	sockets := websocket.NewHub(websocket.Config{CheckOrigin: func(*http.Request) bool { return true }})

	hospitals := dispatch.NewCachedHospitalSource(dispatch.NewStoreHospitalSource(db), hospitalCache, cfg.HospitalCacheTTL)
	locator := dispatch.NewLocator(hospitals, m)
	svc := dispatch.NewService(db, locator, dispatch.Config{
		DefaultStaffName: cfg.DefaultStaffName,
		Transactional:    cfg.ResolveTx,
		Recorder:         m,
		Publisher:        dispatch.Publishers{hub, sockets},
	})

	listeners.InitHospitalListeners(util.Sig(), notification.NewMailNotification(cfg.Mail), hospitals)

	var directory *search.Directory
	if cfg.SearchEnabled {
		directory, err = search.New(search.Config{IndexPath: cfg.SearchIndexPath, QueryTimeout: 2 * time.Second})
		if err != nil {
			logger.Lg.Fatal("open hospital index failed", zap.String("path", cfg.SearchIndexPath), zap.Error(err))
		}
		defer directory.Close()
		if err := indexHospitals(context.Background(), db, directory); err != nil {
			logger.Error("index hospitals failed", zap.Error(err))
		}
		listeners.InitDirectoryListeners(util.Sig(), directory)
	}

	cr := scheduler.NewCron(time.UTC)
	reconciler := dispatch.NewReconciler(db, cfg.ReconcileStale, m)
	if _, err := cr.AddWithCtx(cfg.ReconcileSchedule, reconciler.Run); err != nil {
		logger.Lg.Fatal("schedule reconcile failed", zap.String("schedule", cfg.ReconcileSchedule), zap.Error(err))
	}
	if cfg.BackupSchedule != "" {
		var store stores.Store = stores.NewLocalStore(cfg.BackupPath)
		if cfg.Minio.Endpoint != "" {
			ms, err := stores.NewMinioStore(cfg.Minio)
			if err != nil {
				logger.Lg.Fatal("init minio failed", zap.String("endpoint", cfg.Minio.Endpoint), zap.Error(err))
			}
			store = ms
		}
		if _, err := cr.AddWithCtx(cfg.BackupSchedule, backup.New(db, cfg.DBDriver, store).Run); err != nil {
			logger.Lg.Fatal("schedule backup failed", zap.String("schedule", cfg.BackupSchedule), zap.Error(err))
		}
	}
	cr.Start()
	defer cr.Stop()

	ticker := scheduler.New()
	ticker.Every(15*time.Second, scheduler.FuncJob(dispatch.QueueDepth(db, m)))
	defer ticker.Stop()

	if cfg.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinLogger(), logger.GinRecovery())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionExpireDays * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	engine.Use(sessions.Sessions("mediroute", store))

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       cfg.DispatchRateLimit,
		Identifier: "ip",
		AddHeaders: true,
	}, nil).WithObserver(m)

	h := handlers.NewHandlers(db, handlers.Options{
		Config:      cfg,
		Dispatch:    svc,
		Hub:         hub,
		Sockets:     sockets,
		Metrics:     m,
		Tokens:      auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpire),
		RateLimiter: limiter,
		Idempotency: shared,
		Directory:   directory,
	})
	h.Register(engine)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           corsHandler.Handler(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr), zap.Bool("transactional_resolve", cfg.ResolveTx))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func indexHospitals(ctx context.Context, db *gorm.DB, dir *search.Directory) error {
	approved, err := models.ListApprovedHospitals(db.WithContext(ctx))
	if err != nil {
		return err
	}
	entries := make([]search.Hospital, 0, len(approved))
	for i := range approved {
		if e, ok := listeners.DirectoryEntry(&approved[i]); ok {
			entries = append(entries, e)
		}
	}
	return dir.IndexAll(ctx, entries)
}
