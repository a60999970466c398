package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aniladanir/lead-funnel/internal/cache"
	"github.com/aniladanir/lead-funnel/internal/cache/memory"
	redisCache "github.com/aniladanir/lead-funnel/internal/cache/redis"
	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/lead-funnel/internal/gateway"
	httpHandler "github.com/aniladanir/lead-funnel/internal/handler/http"
	"github.com/aniladanir/lead-funnel/internal/lifecycle"
	"github.com/aniladanir/lead-funnel/internal/persistant/postgresql"
	"github.com/aniladanir/lead-funnel/internal/persistant/sqlite"
	leadRepo "github.com/aniladanir/lead-funnel/internal/repository/lead"
	"github.com/aniladanir/lead-funnel/internal/service"
	"gorm.io/gorm"
)

var (
	configFile = flag.String("config", "", "optional json config file path")
)

func main() {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// parse flags
	flag.Parse()

	// parse config
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// initialize external dependencies
	db, kv, err := initExternalDependencies(notifyCtx, config, logger)
	if err != nil {
		log.Fatalf("failed to initialize external dependencies: %v", err)
	}

	// init delivery gateway
	gw, err := initGateway(config, logger.With(slog.String("component", "gateway")))
	if err != nil {
		log.Fatalf("failed to initialize gateway: %v", err)
	}

	// init lead service
	leads := service.NewLeadService(
		leadRepo.NewLeadRepository(db, kv),
		lifecycle.NewEngine(config.SchedulingURL, config.NudgeInterval()),
		gw,
		logger.With(slog.String("component", "leadService")),
		service.Options{AdvanceOnSendFailure: *config.AdvanceOnSendFailure},
	)

	// init nudge scheduler
	scheduler, err := service.NewNudgeScheduler(
		leads,
		logger.With(slog.String("component", "nudgeScheduler")),
		config.TickInterval,
		config.NudgeBatchSize,
		nil,
	)
	if err != nil {
		log.Fatalf("failed to initiate nudge scheduler: %v", err)
	}

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		fmt.Sprintf(":%d", config.HttpPort),
		leads,
		scheduler,
		config.Origins,
	)

	// nudging starts with the service
	scheduler.Start()

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		logger.Info("http server listening", "port", config.HttpPort)
		if err := httpHandler.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if err := scheduler.Stop(shutDownCtx); err != nil {
			logger.Error("failed to stop nudge scheduler", "error", err.Error())
		}
		if err := httpHandler.Shutdown(shutDownCtx); err != nil {
			logger.Error("failed to shutdown http server", "error", err.Error())
		}
		if closer, ok := kv.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close cache", "error", err.Error())
			}
		}
		if err := postgresql.Close(db); err != nil {
			logger.Error("failed to close database", "error", err.Error())
		}
	})

	wg.Wait()
	os.Exit(0)
}

func initExternalDependencies(ctx context.Context, config *Config, logger *slog.Logger) (db *gorm.DB, kv cache.Cache, err error) {
	// initialize database
	switch config.DbDriver {
	case "postgres":
		db, err = postgresql.Initialize(config.DbConnString, leadRepo.Models())
	default:
		db, err = sqlite.Initialize(config.DbConnString, leadRepo.Models())
	}
	if err != nil {
		return
	}

	// initialize cache
	if config.RedisAddr == "" {
		logger.Warn("redis address is not set, using in-memory cache")
		kv = memory.NewMemoryCache()
		return
	}
	kv, err = redisCache.NewRedisCache(ctx, config.RedisAddr)

	return
}

// initGateway logs every message unless a relay is configured for its channel.
func initGateway(config *Config, logger *slog.Logger) (gateway.Gateway, error) {
	router := gateway.NewRouter(gateway.NewLogGateway(logger))

	if config.SmsWebhookUrl != "" {
		webhook, err := gateway.NewWebhookGateway(config.SmsWebhookUrl, config.SendMaxRetry, logger)
		if err != nil {
			return nil, err
		}
		router.Route(domain.ChannelSMS, webhook)
	}

	if config.Smtp.Host != "" {
		router.Route(domain.ChannelEmail, gateway.NewSMTPGateway(gateway.SMTPConfig{
			Host:     config.Smtp.Host,
			Port:     config.Smtp.Port,
			User:     config.Smtp.User,
			Password: config.Smtp.Password,
			From:     config.Smtp.From,
		}))
	}

	return router, nil
}
