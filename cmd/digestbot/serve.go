package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"digestbot/api"
	"digestbot/rssfeeds"
	"digestbot/scheduler"
	"digestbot/shared/kafka"
	"digestbot/types"
)

const shutdownTimeout = 30 * time.Second

// serveCmd runs the HTTP API, the cron scheduler and the queue consumer
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled digests",
	Long: `Starts the HTTP API and the daily cron schedule. When Kafka brokers are
configured, scheduled and enqueued jobs go through the digest topic and this
process also consumes it; otherwise scheduled jobs run in-process.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		queue      api.JobQueue
		dispatcher scheduler.Dispatcher = scheduler.RunDispatcher{Runner: a.pipeline}
	)

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer producer.Close()

		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
			Handler: jobHandler(a.pipeline, logger),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer consumer.Close()
		if err := consumer.Start(ctx); err != nil {
			return err
		}

		q := scheduler.QueueDispatcher{Publisher: producer}
		queue, dispatcher = q, q
	} else {
		logger.Info("KAFKA_BOOTSTRAP_SERVERS not set; scheduled digests run in-process")
	}

	sched := scheduler.New(cfg.Digest.Users, dispatcher, cfg.Location(), logger)
	if err := sched.Start(cfg.Digest.Cron); err != nil {
		return err
	}

	router := api.NewRouter(api.Services{
		Digests:  a.pipeline,
		Queue:    queue,
		Library:  a.store,
		Ingester: rssfeeds.NewIngester(a.store, logger),
		Logger:   logger,
	})
	server := api.NewServer(router, cfg.Port, logger)
	errCh := server.Start()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("HTTP server stopped", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	return serveErr
}

// jobHandler runs queued digest jobs. Jobs are always marked so a poison
// message cannot block the partition; failures are reported in the outcome log.
func jobHandler(runner scheduler.Runner, logger *zap.Logger) *kafka.TypedMessageHandler[types.DigestJob] {
	return &kafka.TypedMessageHandler[types.DigestJob]{
		Validate: func(job *types.DigestJob) bool {
			return job.UserID != ""
		},
		Process: func(ctx context.Context, job *types.DigestJob) error {
			out := runner.Run(ctx, *job)
			if out.Failed() {
				return out.Err
			}
			return nil
		},
		AlwaysMark: true,
		Logger:     logger.With(zap.String("component", "digest-jobs")),
	}
}
