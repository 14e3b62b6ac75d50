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
	"github.com/spf13/cobra"

	"clinic-backend/config"
	"clinic-backend/consumer"
	"clinic-backend/handlers"
	"clinic-backend/logger"
	"clinic-backend/middleware"
	"clinic-backend/models"
	"clinic-backend/monitoring"
	"clinic-backend/services"
	"clinic-backend/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-backend",
		Short:        "Clinic management API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(consumeCmd())
	rootCmd.AddCommand(reindexCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(); err != nil {
				return err
			}
			log.Info("database schema is up to date")
			return nil
		},
	}
}

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Apply clinic events from Kafka to the search directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsumer()
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search directory from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if err := cfg.RequireDirectory(); err != nil {
				return err
			}
			store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			es, err := utils.NewElasticsearchClient(cfg.Elasticsearch.URL)
			if err != nil {
				return err
			}
			defer es.Close()

			directory := services.NewDirectoryService(store, es, cfg.Elasticsearch.Index, log)
			n, err := directory.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("documents", n).Info("reindex finished")
			return nil
		},
	}
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.LogLevel)
	if err := utils.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, cfg.Sentry.Release); err != nil {
		log.WithError(err).Warn("continuing without Sentry")
	}
	return cfg, log, nil
}

// openStore connects to PostgreSQL, retrying while the database starts up.
func openStore(cfg *config.Config, log *logger.Logger) (*models.GormStore, error) {
	const maxRetries = 5
	retryDelay := 3 * time.Second

	var store *models.GormStore
	var err error
	for i := 0; i < maxRetries; i++ {
		store, err = models.NewPostgresStore(cfg.Database.DSN())
		if err == nil {
			return store, nil
		}
		log.WithError(err).Warnf("attempt %d: failed to connect to database", i+1)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

func runServer() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer utils.FlushSentry()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}

	monitoring.Init()

	checks := []handlers.HealthCheck{{Name: "database", Required: true, Probe: store.Ping}}

	// Redis, Kafka and Elasticsearch are optional; each is skipped when
	// unconfigured or unreachable.
	var cache utils.RedisClient
	if cfg.Redis.Host != "" {
		if cache, err = utils.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password); err != nil {
			log.WithError(err).Warn("continuing without Redis cache")
			cache = nil
		} else {
			defer cache.Close()
			redisCache := cache
			checks = append(checks, handlers.HealthCheck{Name: "redis", Probe: func(ctx context.Context) error {
				return redisCache.SetToCache(ctx, "healthcheck", "ping", 10*time.Second)
			}})
		}
	}

	var producer utils.KafkaProducer
	if cfg.Kafka.Broker != "" {
		if producer, err = utils.NewKafkaProducer(cfg.Kafka.Broker); err != nil {
			log.WithError(err).Warn("continuing without Kafka events")
			producer = nil
		} else {
			defer producer.Close()
		}
	}

	var es utils.ElasticsearchClient
	if cfg.Elasticsearch.URL != "" {
		if es, err = utils.NewElasticsearchClient(cfg.Elasticsearch.URL); err != nil {
			log.WithError(err).Warn("continuing without directory search")
			es = nil
		} else {
			defer es.Close()
		}
	}

	events := handlers.NewEventPublisher(producer, cfg.Kafka.Topic, log)
	h := handlers.Handlers{
		Patients:     handlers.NewPatientHandler(services.NewPatientService(store, cache, cfg.Redis.CacheTTL, log), events),
		Doctors:      handlers.NewDoctorHandler(services.NewDoctorService(store, cache, cfg.Redis.CacheTTL, log), events),
		Appointments: handlers.NewAppointmentHandler(services.NewAppointmentService(store, log), events),
		Reports:      handlers.NewReportHandler(services.NewReportService(store, services.WallClock(loc), log)),
	}
	if es != nil {
		h.Search = handlers.NewSearchHandler(services.NewDirectoryService(store, es, cfg.Elasticsearch.Index, log))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.SentryMiddleware(),
		middleware.RequestLogger(log),
		middleware.PrometheusMetrics(),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", handlers.NewHealthHandler(checks...).Health)
	router.GET("/metrics", gin.WrapH(monitoring.Handler()))
	handlers.RegisterRoutes(router.Group("/api/v1"), h)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func runConsumer() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer utils.FlushSentry()

	if err := cfg.RequireConsumer(); err != nil {
		return err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	es, err := utils.NewElasticsearchClient(cfg.Elasticsearch.URL)
	if err != nil {
		return err
	}
	defer es.Close()

	monitoring.Init()
	directory := services.NewDirectoryService(store, es, cfg.Elasticsearch.Index, log)
	c := consumer.NewClinicConsumer(directory, cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.Start(ctx)
	<-ctx.Done()
	log.Info("stopping consumer")
	c.Stop()
	return nil
}
