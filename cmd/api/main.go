package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/api"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/auth"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/cache"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/config"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/knowledge"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/outbox"
	persistence "github.com/Lauraredmond/pilates-class-generator-sub000/internal/persistence/postgres"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
	httptransport "github.com/Lauraredmond/pilates-class-generator-sub000/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := knowledge.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	var (
		deps        sequencing.Dependencies
		sequenceLog domain.SequenceLog
		dispatcher  *outbox.Dispatcher
	)

	switch cfg.StoreBackend {
	case config.StoreMemory:
		repo := knowledge.NewInMemoryRepository(catalog)
		deps = sequencing.Dependencies{
			Movements:   repo,
			History:     repo,
			Transitions: repo,
			Profiles:    repo,
			Quality:     repo,
		}
		sequenceLog = repo
		log.Printf("using in-memory store (%d movements)", len(catalog.Movements))
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		repo := persistence.NewRepository(pool)
		if cfg.SeedOnStart {
			if err := repo.SeedCatalog(ctx, catalog, persistence.DefaultSectionBands()); err != nil {
				log.Fatalf("failed to seed catalog: %v", err)
			}
		}
		deps = sequencing.Dependencies{
			Movements:   repo,
			History:     repo,
			Transitions: repo,
			Sections:    repo,
			Profiles:    repo,
			Quality:     repo,
		}
		sequenceLog = repo

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	default:
		log.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.MovementSource == config.MovementsFromDgraph {
		graph := knowledge.NewDgraphRepository(cfg.DgraphURL, cfg.HTTPTimeout)
		if cfg.SeedOnStart {
			if err := graph.Seed(ctx, catalog); err != nil {
				log.Fatalf("failed to seed dgraph: %v", err)
			}
		}
		deps.Movements = graph
		deps.Transitions = graph
		log.Printf("reading movements and transitions from dgraph at %s", cfg.DgraphURL)
	}

	deps.Transitions = cache.NewTransitionCache(deps.Transitions, cfg.TransitionCacheSize, cfg.TransitionCacheTTL)

	service := sequencing.NewService(deps)

	handler := api.NewHandler(service, sequenceLog)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLogger := log.New(log.Writer(), "[http] ", log.LstdFlags)
	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.RequestLogger(requestLogger, httptransport.CORS(cfg.CORSAllowedOrigins, authMiddleware.Wrap(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("class-sequencer listening on %s (store=%s, movements=%s)", cfg.HTTPAddress, cfg.StoreBackend, cfg.MovementSource)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
