package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CANDRY15/flashprint/api"
	"github.com/CANDRY15/flashprint/config"
	"github.com/CANDRY15/flashprint/database"
	"github.com/CANDRY15/flashprint/router"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/services/cron"
	"github.com/CANDRY15/flashprint/services/interstitial"
	"github.com/CANDRY15/flashprint/services/storage"
	"github.com/CANDRY15/flashprint/utils/cache"
	"github.com/CANDRY15/flashprint/utils/logger"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(getEnv.ENVIRONMENT, getEnv.LOG_LEVEL)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv, log)
	if err != nil {
		log.Error("Check whether the Postgres is running or not", "error", err)
		return err
	}

	if err := store.Init(); err != nil {
		log.Error("Failed to initialize database tables", "error", err)
		return err
	}

	redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL)
	if err != nil {
		log.Warn("Failed to connect to Redis, falling back to in-memory tickets", "error", err)
		redisCache = nil
	}

	var gateStore interstitial.Store
	if redisCache != nil {
		gateStore = interstitial.NewRedisStore(redisCache)
	} else {
		gateStore = interstitial.NewMemoryStore(nil)
	}

	var files services.FileStore
	spaces, err := storage.New(storage.Config{
		AccessKey: getEnv.STORAGE_KEY,
		SecretKey: getEnv.STORAGE_SECRET,
		Bucket:    getEnv.STORAGE_BUCKET,
		Region:    getEnv.STORAGE_REGION,
		Endpoint:  getEnv.STORAGE_ENDPOINT,
		PublicURL: getEnv.STORAGE_PUBLIC_URL,
	})
	if err != nil {
		log.Warn("Object storage not configured, uploads are disabled", "error", err)
	} else {
		files = spaces
	}

	dispatcher := background.NewDispatcher(background.Config{}, log)

	deps := router.Deps{
		Env:        getEnv,
		Log:        log,
		Cache:      redisCache,
		Files:      files,
		Runner:     dispatcher,
		GateStore:  gateStore,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
	svc := router.NewServices(store.GetDB(), deps)

	// Seed after the role service exists so the admin grant clears any
	// cached has_role answer
	if err := database.NewSeeder(store.GetDB(), svc.Roles, log).SeedAll(getEnv.ADMIN_EMAIL, getEnv.ADMIN_PASSWORD); err != nil {
		log.Warn("Seeding failed", "error", err)
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.ENABLE_CRON {
		cronManager = cron.NewCronManager(store.GetDB(), svc.Syllabus, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("Failed to start cron jobs", "error", err)
			cronManager = nil
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), log)
	if err := router.SetupRoutes(server.GetEngine(), store, svc, deps); err != nil {
		return err
	}

	// Defer closing everything in reverse order of start
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Shutdown(ctx); err != nil {
			log.Warn("Background tasks did not drain", "error", err)
		}

		if redisCache != nil {
			_ = redisCache.Close()
		}
		store.Close()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
