// @title         pass-service API
// @version       1.0
// @description   Issues, updates and serves signed wallet passes and notifies registered devices.
// @BasePath      /
// @schemes       http https
// @host          localhost:8080
// @securityDefinitions.apikey AdminBearer
// @in            header
// @name          Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	_ "github.com/vbncursed/vkr/pass-service/docs"
	"github.com/vbncursed/vkr/pass-service/internal/config"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	ih "github.com/vbncursed/vkr/pass-service/internal/http"
	"github.com/vbncursed/vkr/pass-service/internal/lock"
	"github.com/vbncursed/vkr/pass-service/internal/logger"
	"github.com/vbncursed/vkr/pass-service/internal/push"
	"github.com/vbncursed/vkr/pass-service/internal/repo"
	"github.com/vbncursed/vkr/pass-service/internal/service"
	"github.com/vbncursed/vkr/pass-service/internal/storage"
)

type store interface {
	service.PassRepository
	service.RegistrationRepository
	ih.Pinger
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	cfg.Log()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st store
	if cfg.DatabaseURL == "" {
		st = repo.NewMemoryStore()
	} else {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logrus.WithError(err).Fatal("db")
		}
		defer pool.Close()
		if err := repo.RunMigrations(ctx, pool); err != nil {
			logrus.WithError(err).Fatal("migrate")
		}
		st = repo.NewStore(pool)
	}

	passphrase, err := cfg.KeyPassphrase()
	if err != nil {
		logrus.WithError(err).Fatal("passphrase")
	}
	creds, err := crypto.NewFileStore(cfg.CertDir, passphrase, cfg.WWDRCertFile)
	if err != nil {
		logrus.WithError(err).Fatal("credentials")
	}
	bundles, err := storage.NewFileStore(cfg.PassesDir)
	if err != nil {
		logrus.WithError(err).Fatal("passes dir")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	var locker lock.Locker = lock.NewKeyedMutex()
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
		logrus.Info("redis connected: distributed locking and rate limiting enabled")
	} else if cfg.Redis.Addr != "" {
		logrus.Warn("redis unreachable: using in-process locking")
	}

	apns := push.NewAPNsNotifier(creds, cfg.APNsProduction)
	var notifier service.Notifier = apns
	if cfg.PushQueueURL != "" {
		queue := push.NewQueueNotifier(cfg.PushQueueURL)
		defer queue.Close()
		notifier = queue
		go func() {
			if err := push.NewConsumer(cfg.PushQueueURL, apns).Run(ctx); err != nil {
				logrus.WithError(err).Error("push consumer stopped")
			}
		}()
	}

	svc := service.New(service.Deps{
		Passes:        st,
		Registrations: st,
		Bundles:       bundles,
		Credentials:   creds,
		Notifier:      notifier,
		Locker:        locker,
		WebServiceURL: cfg.WebServiceURL,
		PushTimeout:   cfg.PushTimeout,
	})

	e := ih.Router(svc, st, rdb, cfg)
	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Infof("pass-service listening on %s", cfg.Bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("http")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	svc.Wait()
	logrus.Info("pass-service stopped")
}
