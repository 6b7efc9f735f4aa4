package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/paperbase-ai/paperbase/internal/config"
	"github.com/paperbase-ai/paperbase/internal/repository"
	"github.com/paperbase-ai/paperbase/internal/service"
	"github.com/paperbase-ai/paperbase/internal/vectorstore/qdrant"
)

func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the vector index",
		Long:  "Inspect, rebuild, and drop the Qdrant vector index",
	}

	cmd.AddCommand(IndexDiagCmd())
	cmd.AddCommand(IndexRebuildCmd())
	cmd.AddCommand(IndexDropCmd())

	return cmd
}

func IndexDiagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Show vector index diagnostics",
		Long:  "Print collection status, dimension, and point count",
		RunE:  runIndexDiag,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runIndexDiag(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	indexer, pool, err := buildIndexer(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	info, collection, err := indexer.Diag(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect collection: %w", err)
	}

	mismatch := info.Dimension != cfg.EmbeddingDimension

	if outputFormat == "json" {
		data := map[string]interface{}{
			"collection":           collection,
			"dimension":            info.Dimension,
			"configured_dimension": cfg.EmbeddingDimension,
			"dimension_mismatch":   mismatch,
			"points_count":         info.PointsCount,
			"status":               info.Status,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Collection: %s\n", collection)
		fmt.Printf("  status:    %s\n", info.Status)
		fmt.Printf("  dimension: %d (configured: %d)\n", info.Dimension, cfg.EmbeddingDimension)
		fmt.Printf("  points:    %d\n", info.PointsCount)
		if mismatch {
			fmt.Println()
			fmt.Println("WARNING: collection dimension does not match the configured embedding dimension.")
			fmt.Println("Searches and upserts against this collection will fail.")
			fmt.Println("Run 'paperbased index drop' followed by 'paperbased index rebuild' to recreate it.")
		}
	}

	return nil
}

func IndexRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector index from stored documents",
		Long:  "Drop the collection and re-index every document that has extracted text",
		RunE:  runIndexRebuild,
	}
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	indexer, pool, err := buildIndexer(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := indexer.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	fmt.Printf("Rebuild complete: %d documents indexed\n", count)
	return nil
}

func IndexDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the vector collection",
		Long:  "Delete the Qdrant collection and all of its points",
		RunE:  runIndexDrop,
	}
}

func runIndexDrop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := newStore(cfg)
	if err := store.DropCollection(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	fmt.Printf("Collection '%s' dropped\n", store.Collection())
	return nil
}

func newStore(cfg *config.Config) *qdrant.Store {
	return qdrant.NewStore(qdrant.Config{
		URL:        cfg.QdrantURL(),
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Timeout:    cfg.QdrantTimeout(),
	})
}

func buildIndexer(ctx context.Context) (*service.IndexerService, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return nil, nil, err
	}

	docRepo := repository.NewDocumentRepository(pool)
	store := newStore(cfg)
	embedder := buildEmbedder(cfg)

	indexer := service.NewIndexerService(docRepo, store, embedder, service.IndexerConfig{
		ChunkConfig: service.ChunkConfig{
			MaxChars: cfg.ChunkSize,
			Overlap:  cfg.ChunkOverlap,
			MinChars: cfg.MinChunkLen,
		},
		BatchSize: cfg.UpsertBatchSize,
		Dimension: cfg.EmbeddingDimension,
	})

	return indexer, pool, nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
