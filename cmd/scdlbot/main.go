package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scdl-bot/internal/bot"
	"scdl-bot/internal/config"
	"scdl-bot/internal/downloader"
	"scdl-bot/internal/i18n"
	"scdl-bot/internal/repository"
	"scdl-bot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		userRepo    repository.UserRepository
		channelRepo repository.ChannelRepository
	)
	switch cfg.StorageBackend {
	case config.BackendSQL:
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		sqlDB, err := db.DB()
		if err == nil {
			defer sqlDB.Close()
		}
		userRepo = repository.NewGormUserRepository(db)
		channelRepo = repository.NewGormChannelRepository(db)
	default:
		csvRepo, err := repository.NewCSVUserRepository(cfg.UsersCSV)
		if err != nil {
			log.Fatalf("users csv: %v", err)
		}
		userRepo = csvRepo
		channelRepo = repository.NewJSONChannelRepository(cfg.ChannelsFile)
	}

	var languages repository.LanguageStore = repository.NewMemoryLanguageStore()
	if cfg.RedisAddr != "" {
		client := repository.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		if err := repository.PingRedis(ctx, client); err != nil {
			log.Fatalf("redis: %v", err)
		}
		languages = repository.NewRedisLanguageStore(client)
	}

	texts := i18n.New()
	if cfg.LocalesFile != "" {
		if err := texts.LoadFile(cfg.LocalesFile); err != nil {
			log.Fatalf("locales: %v", err)
		}
	}

	registry := service.NewRegistryService(userRepo)
	channels := service.NewChannelService(channelRepo)
	seeded, err := channels.Seed(ctx, cfg.SponsorChannels)
	if err != nil {
		log.Fatalf("sponsor channels: %v", err)
	}
	log.Printf("[info] %d sponsor channels active", len(seeded))

	dl := downloader.NewYTDLP(cfg.DownloadDir)
	if err := dl.Prepare(ctx); err != nil {
		log.Fatalf("downloader: %v", err)
	}

	metrics := bot.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go startMetricsServer(ctx, cfg.MetricsAddr)
	}

	telegramBot, err := bot.New(&cfg, bot.Dependencies{
		Registry:   registry,
		Channels:   channels,
		Broadcast:  service.NewBroadcastService(registry, cfg.BroadcastDelay),
		Languages:  languages,
		Translator: texts,
		Downloader: dl,
		Metrics:    metrics,
	})
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if cfg.ReportDailyAt != "" && cfg.ReportChannel != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReportDailyAt, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendRegistryReport(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("report: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule report: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Println("SoundCloud downloader bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Waiting for in-flight downloads...")
	telegramBot.Wait()
	log.Println("Shutdown complete.")
}

func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	log.Printf("[info] metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("metrics server error: %v", err)
	}
}
