package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"nurseconnect-registration/internal/client"
	"nurseconnect-registration/internal/factory"
	"nurseconnect-registration/internal/jobs"
	"nurseconnect-registration/internal/util"
)

// The worker consumes the registration job topics and relays scheduled
// retries back to them.
func main() {
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()
	topics := f.Topics()
	worker := f.Worker()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	consumers := make([]*client.KafkaConsumer, 0, 3)
	newConsumer := func(topic string) *client.KafkaConsumer {
		c, err := client.NewKafkaConsumer(cfg, topic, cfg.Kafka.ConsumerGroup, util.Get())
		if err != nil {
			util.Fatal("Failed to create Kafka consumer", util.String("topic", topic), util.ErrorField(err))
		}
		consumers = append(consumers, c)
		return c
	}

	directory := newConsumer(topics.DirectoryUpsert)
	exchange := newConsumer(topics.ExchangeNotify)
	retries := newConsumer(topics.Retry)
	defer func() {
		for _, c := range consumers {
			_ = c.Close()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx, directory) })
	g.Go(func() error { return worker.Run(gctx, exchange) })
	g.Go(func() error { return jobs.RelayRetries(gctx, retries, f.Queue()) })

	util.Info("Worker started",
		util.String("environment", cfg.Environment),
		util.String("directory_topic", topics.DirectoryUpsert),
		util.String("exchange_topic", topics.ExchangeNotify),
		util.String("retry_topic", topics.Retry),
	)

	if err := g.Wait(); err != nil {
		util.Error("Worker stopped with error", util.ErrorField(err))
		f.Close()
		os.Exit(1)
	}
	util.Info("Worker shutdown completed")
}
