package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/dmoshi/face-count-service/internal/domain/port"
	"github.com/dmoshi/face-count-service/internal/infra/config"
	"github.com/dmoshi/face-count-service/internal/infra/detector"
	"github.com/dmoshi/face-count-service/internal/infra/email"
	"github.com/dmoshi/face-count-service/internal/infra/fetch"
	"github.com/dmoshi/face-count-service/internal/infra/metrics"
	"github.com/dmoshi/face-count-service/internal/infra/postgres"
	"github.com/dmoshi/face-count-service/internal/infra/rabbitmq"
	"github.com/dmoshi/face-count-service/internal/infra/relay"
	"github.com/dmoshi/face-count-service/internal/infra/storage"
	"github.com/dmoshi/face-count-service/internal/infra/tracing"
	"github.com/dmoshi/face-count-service/internal/usecase"
	"github.com/dmoshi/face-count-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting face-count-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// Artifact storage backend
	var store port.ArtifactStore
	if cfg.SaveMode == "cloud" {
		s3store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
		})
		fatalOnErr(err, "create s3 store")
		fatalOnErr(s3store.EnsureBucket(ctx), "ensure s3 bucket")
		store = s3store
	} else {
		localStore, err := storage.NewLocalStore(cfg.OutputDir, cfg.BaseURL)
		fatalOnErr(err, "create local store")
		store = localStore
	}

	// RabbitMQ publisher connection (DLQ)
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Relay client: connect once at startup, then keep a background listener
	// alive for the life of the process.
	relayClient := relay.NewClient(cfg.RelayURL,
		time.Duration(cfg.RelayRetryDelay)*time.Second, cfg.RelayInsecure, log)
	if err := relayClient.Connect(ctx); err != nil {
		log.Warn("relay connect interrupted", zap.Error(err))
	}
	go relayClient.Listen(ctx)
	defer relayClient.Close()

	// Infra adapters
	repo := postgres.NewDetectionRepository(pool)
	fetcher := fetch.NewFetcher(time.Duration(cfg.FetchTimeoutS)*time.Second, cfg.FetchMaxBytes, log)
	faceDetector := detector.NewRemoteDetector(cfg.ModelEndpoint, detector.InferenceParams{
		ImageSize:     cfg.ModelImageSize,
		ConfThreshold: cfg.ModelConf,
		IoUThreshold:  cfg.ModelIoU,
		Device:        cfg.ModelDevice,
	}, time.Duration(cfg.ModelTimeoutS)*time.Second)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)

	// Use case
	uc := usecase.NewProcessImageUseCase(
		fetcher, faceDetector, store, repo,
		relayClient, dlqPub, notifier,
		log,
		usecase.ProcessImageConfig{
			PersistTimeout: time.Duration(cfg.PersistTimeoutS) * time.Second,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("face-count-service started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("face-count-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
