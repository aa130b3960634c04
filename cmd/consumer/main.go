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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/config"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/consumer"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/outbox"
	persistence "github.com/Lauraredmond/pilates-class-generator-sub000/internal/persistence/postgres"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if len(cfg.ConsumerTopics) == 0 {
		log.Fatalf("CONSUMER_TOPICS is empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroup,
		GroupTopics:     cfg.ConsumerTopics,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	processor := consumer.NewProcessor(reader, consumer.NewUsageHandler(persistence.NewRepository(pool)),
		consumer.WithRetry(cfg.ConsumerMaxAttempts, cfg.ConsumerRetryDelay),
		consumer.WithDeadLetters(outbox.NewDLQWriter(pool)),
	)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		log.Printf("usage consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		log.Printf("usage consumer started (topics=%v, group=%s)", cfg.ConsumerTopics, cfg.ConsumerGroup)
		if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("usage consumer stopped with error: %v", err)
			runErr = err
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("usage consumer shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	<-done
	if runErr != nil {
		reader.Close()
		pool.Close()
		os.Exit(1)
	}
}
