package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/internal/types"
	"github.com/mpuig/rentagpt/pkg/config"
	"github.com/mpuig/rentagpt/pkg/crawler"
	"github.com/mpuig/rentagpt/pkg/ingest"
	"github.com/mpuig/rentagpt/pkg/llm"
	"github.com/mpuig/rentagpt/pkg/processor"
	"github.com/mpuig/rentagpt/pkg/store"
)

func main() {
	godotenv.Load()

	cfg, refresh := parseFlags()

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %s: %s", e.Field, e.Message)
		}
		log.Fatal("invalid configuration")
	}

	if err := run(cfg, refresh); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (*config.Config, bool) {
	var configPath string
	var startURL, dataDir, collection, backend, dbURL string
	var refresh bool

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&startURL, "start-url", "", "Manual index page to crawl")
	flag.StringVar(&dataDir, "data-dir", "", "Directory for the document cache and the index")
	flag.StringVar(&collection, "collection", "", "Collection name")
	flag.StringVar(&backend, "backend", "", "Vector store backend (file or pgvector)")
	flag.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string for the pgvector backend")
	flag.BoolVar(&refresh, "refresh", false, "Refetch pages even when the document cache exists")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Command line flags win over the config file.
	if startURL != "" {
		cfg.Crawler.StartURL = startURL
	}
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}
	if collection != "" {
		cfg.Store.Collection = collection
	}
	if backend != "" {
		cfg.Store.Backend = backend
	}
	if dbURL != "" {
		cfg.Store.URL = dbURL
	}

	return cfg, refresh
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(cfg *config.Config, refresh bool) error {
	ctx := context.Background()

	docs, err := loadDocuments(ctx, cfg, refresh)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents to index under %s", cfg.Crawler.StartURL)
	}

	vectorStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer vectorStore.Close()

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	var embeddingBar *progressbar.ProgressBar
	indexer := ingest.NewWithConfig(ingest.IndexerConfig{
		Dir:            cfg.CollectionDir(),
		Collection:     cfg.Store.Collection,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		BatchSize:      cfg.Store.BatchSize,
		OnProgress: func(done, total int) {
			if embeddingBar == nil {
				embeddingBar = getProgressBar(total, "Embedding chunks...")
			}
			embeddingBar.Set(done)
		},
	}, vectorStore, embedder, &chunker)

	report, err := indexer.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if report.Skipped {
		color.Yellow("\nCollection %q is already built, nothing to do.\n", cfg.Store.Collection)
		return nil
	}

	color.Green("\n✓ Indexed %d chunks from %d documents into %q\n",
		report.NewlyStored, len(docs), cfg.Store.Collection)
	return nil
}

// loadDocuments prefers the on-disk document cache so repeated runs
// never hit the AEAT site again. A crawl is only started when the
// cache is missing or -refresh was given.
func loadDocuments(ctx context.Context, cfg *config.Config, refresh bool) ([]models.Document, error) {
	cachePath := cfg.DocumentCachePath()

	if !refresh {
		docs, ok, err := ingest.LoadDocumentCache(cachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read document cache: %w", err)
		}
		if ok {
			color.Cyan("Loaded %d cached documents from %s\n", len(docs), cachePath)
			return docs, nil
		}
	}

	var fetchBar *progressbar.ProgressBar
	cr, err := crawler.NewWithConfig(crawler.CrawlerConfig{
		StartURL:        cfg.Crawler.StartURL,
		URLPrefix:       cfg.Crawler.URLPrefix,
		RateLimit:       cfg.Crawler.RateLimit,
		IgnoreExtension: cfg.Crawler.IgnoreExtension,
		DenySuffixes:    cfg.Crawler.DenySuffixes,
		OnProgress: func(url string) {
			if fetchBar != nil {
				fetchBar.Add(1)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize crawler: %w", err)
	}

	color.Blue("Collecting links from %s\n", cfg.Crawler.StartURL)
	links, err := cr.CollectLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect links: %w", err)
	}
	color.Green("✓ Found %d pages\n", len(links))

	fetchBar = getProgressBar(len(links), "Fetching pages...")
	docs, err := cr.FetchDocuments(ctx, links)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	fetchBar.Finish()

	if err := ingest.SaveDocumentCache(cachePath, docs); err != nil {
		return nil, fmt.Errorf("failed to write document cache: %w", err)
	}
	color.Green("\n✓ Fetched %d documents, cached at %s\n", len(docs), cachePath)
	return docs, nil
}

func openStore(ctx context.Context, cfg *config.Config) (types.VectorStore, error) {
	if cfg.Store.Backend == "pgvector" {
		return store.NewPgStore(ctx, store.PgConfig{
			ConnString: cfg.Store.URL,
			TableName:  cfg.Store.TableName,
			VectorDim:  cfg.Store.VectorDim,
		})
	}
	return store.NewFileStore(store.FileConfig{
		Dir:       cfg.CollectionDir(),
		VectorDim: cfg.Store.VectorDim,
	}), nil
}
