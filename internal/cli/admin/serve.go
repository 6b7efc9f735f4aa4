package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/paperbase-ai/paperbase/internal/api/handlers"
	"github.com/paperbase-ai/paperbase/internal/config"
	"github.com/paperbase-ai/paperbase/internal/domain"
	"github.com/paperbase-ai/paperbase/internal/embedding"
	"github.com/paperbase-ai/paperbase/internal/extract"
	"github.com/paperbase-ai/paperbase/internal/jobs"
	"github.com/paperbase-ai/paperbase/internal/repository"
	"github.com/paperbase-ai/paperbase/internal/server"
	"github.com/paperbase-ai/paperbase/internal/service"
	"github.com/paperbase-ai/paperbase/internal/storage"
	"github.com/paperbase-ai/paperbase/internal/telemetry"
	"github.com/paperbase-ai/paperbase/internal/vectorstore/qdrant"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the paperbase API server and the background index worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.SentryEnv,
		TracesSampleRate: cfg.SentrySampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
	} else {
		defer shutdownTelemetry()
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	summaryRepo := repository.NewSummaryRepository(pool)
	indexJobRepo := repository.NewIndexJobRepository(pool)

	var storageClient service.StorageClientInterface
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = s3Client
	} else {
		storageClient = &noOpStorage{}
	}

	var extractor service.TextExtractor
	if cfg.ExtractorURL != "" {
		extractor = extract.NewClient(cfg.ExtractorURL)
	} else {
		log.Println("PAPERBASE_EXTRACTOR_URL not set; documents will be stored without text")
	}

	store := qdrant.NewStore(qdrant.Config{
		URL:        cfg.QdrantURL(),
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Timeout:    cfg.QdrantTimeout(),
	})

	embedder := buildEmbedder(cfg)

	indexerSvc := service.NewIndexerService(docRepo, store, embedder, service.IndexerConfig{
		ChunkConfig: service.ChunkConfig{
			MaxChars: cfg.ChunkSize,
			Overlap:  cfg.ChunkOverlap,
			MinChars: cfg.MinChunkLen,
		},
		BatchSize: cfg.UpsertBatchSize,
		Dimension: cfg.EmbeddingDimension,
	})

	if err := indexerSvc.EnsureReady(ctx); err != nil {
		log.Printf("vector store not ready (search and indexing degraded): %v", err)
	}

	searchSvc := service.NewSearchService(store, embedder, service.SearchConfig{
		ScoreFloor: cfg.ScoreFloor,
		Overfetch:  cfg.SearchOverfetch,
	})

	authSvc := service.NewAuthService(userRepo, sessionRepo, &service.DefaultUUIDGenerator{}, cfg.SessionTTL())
	docSvc := service.NewDocumentService(docRepo, indexJobRepo, storageClient, extractor, cfg.MaxUploadBytes)

	var summarySvc handlers.SummaryService
	if cfg.HasOpenAI() {
		summarySvc = service.NewSummaryService(newChatClient(cfg), summaryRepo, docRepo, cfg.ChatModel)
	} else {
		summarySvc = &noOpSummaryService{}
	}

	indexProcessor := jobs.NewIndexWorker(indexJobRepo, indexerSvc)
	indexWorker := jobs.NewWorker(indexProcessor, 10*time.Second)
	go indexWorker.Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if purged, err := authSvc.PurgeExpiredSessions(ctx); err != nil {
					log.Printf("session purge failed: %v", err)
				} else if purged > 0 {
					log.Printf("purged %d expired sessions", purged)
				}
			}
		}
	}()

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   authSvc,
		AuthHandler:     handlers.NewAuthHandler(authSvc, userRepo),
		DocumentHandler: handlers.NewDocumentHandler(docSvc, summarySvc, summaryRepo),
		SearchHandler:   handlers.NewSearchHandler(searchSvc),
		MaxBodyBytes:    cfg.MaxUploadBytes + 1024*1024,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	indexWorker.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildEmbedder chains the configured providers: Ollama first when present,
// then the OpenAI-compatible API.
func buildEmbedder(cfg *config.Config) *embedding.Chain {
	var providers []embedding.Provider
	if cfg.HasOllama() {
		providers = append(providers, embedding.NewOllamaProvider(cfg.OllamaURL, cfg.EmbeddingModel, ""))
	}
	if cfg.HasOpenAI() {
		providers = append(providers, embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel))
	}
	if len(providers) == 0 {
		log.Println("no embedding provider configured; semantic indexing and search disabled")
	}
	return embedding.NewChain(cfg.EmbeddingDimension, providers...)
}

func newChatClient(cfg *config.Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

type noOpStorage struct{}

func (s *noOpStorage) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	return fmt.Errorf("storage not configured: S3_ENDPOINT required")
}

func (s *noOpStorage) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("storage not configured: S3_ENDPOINT required")
}

func (s *noOpStorage) DeleteObject(ctx context.Context, key string) error {
	return fmt.Errorf("storage not configured: S3_ENDPOINT required")
}

type noOpSummaryService struct{}

func (s *noOpSummaryService) Summarize(ctx context.Context, userID, documentID int64) (*domain.Summary, error) {
	return nil, fmt.Errorf("summary service not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
