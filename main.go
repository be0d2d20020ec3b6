package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/adapters/datasource"
	pgdiscovery "github.com/schemalens/schemalens-engine/pkg/adapters/datasource/postgres"
	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/database"
	"github.com/schemalens/schemalens-engine/pkg/repositories"
	"github.com/schemalens/schemalens-engine/pkg/services"
	"github.com/schemalens/schemalens-engine/pkg/similarity"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	query := flag.String("query", "", "natural-language question to resolve schema context for")
	joinTables := flag.String("join-paths", "", "comma-separated table names to resolve join paths between")
	relatedTable := flag.String("related", "", "table name to list FK-connected neighbors for")
	depth := flag.Int("depth", 2, "maximum hop distance for -related")
	threshold := flag.Float64("threshold", 0, "relevance threshold override (0 uses the configured default)")
	maxTables := flag.Int("max-tables", 0, "table limit override (0 uses the configured default)")
	maxColumns := flag.Int("max-columns", 0, "per-table column limit override (0 uses the configured default)")
	flag.Parse()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to metadata database", zap.Error(err))
	}
	defer db.Close()

	var discoverer datasource.SchemaDiscoverer
	if cfg.Snapshot.ReconcileWithCatalog {
		pg, err := pgdiscovery.NewSchemaDiscoverer(ctx, cfg.Database.ConnectionString(), logger)
		if err != nil {
			logger.Warn("Catalog discovery unavailable, continuing with recorded relationships", zap.Error(err))
		} else {
			discoverer = pg
			defer discoverer.Close()
		}
	}

	store := services.NewSnapshotStore(
		repositories.NewTableMetadataRepository(db),
		repositories.NewColumnMetadataRepository(db),
		repositories.NewGlossaryRepository(db),
		repositories.NewRelationshipRepository(db),
		discoverer,
		cfg.Snapshot,
		logger,
	)

	refreshCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Snapshot.RefreshTimeoutSeconds)*time.Second)
	defer cancel()
	if err := store.Refresh(refreshCtx); err != nil {
		logger.Fatal("Failed to load metadata snapshot", zap.Error(err))
	}

	policy, err := services.LoadIntentPolicy(cfg.IntentPolicyPath)
	if err != nil {
		logger.Fatal("Failed to load intent policy", zap.Error(err))
	}

	var simClient similarity.Client
	if cfg.Similarity.IsAvailable() {
		simClient = similarity.NewEmbeddingClient(&cfg.Similarity, logger)
	} else {
		logger.Info("No similarity endpoint configured, scoring with lexical signals only")
	}

	svc := services.NewSchemaContextService(
		store,
		services.NewQueryAnalyzer(logger),
		services.NewRelevanceScorer(simClient, nil, policy, cfg.Scorer, logger),
		services.NewContextAssembler(cfg.Assembler, logger),
		logger,
	)

	switch {
	case *query != "":
		result, err := svc.GetRelevantSchema(ctx, *query, *threshold, *maxTables, *maxColumns)
		if err != nil {
			logger.Fatal("Failed to resolve schema context", zap.Error(err))
		}
		printJSON(result)

	case *joinTables != "":
		paths, unresolved, err := svc.GetJoinPaths(ctx, splitTableList(*joinTables))
		if err != nil {
			logger.Fatal("Failed to resolve join paths", zap.Error(err))
		}
		printJSON(map[string]any{"joinPaths": paths, "unresolvedPairs": unresolved})

	case *relatedTable != "":
		related, err := svc.GetRelatedTables(ctx, *relatedTable, *depth)
		if err != nil {
			logger.Fatal("Failed to resolve related tables", zap.Error(err))
		}
		printJSON(related)

	default:
		fmt.Fprintln(os.Stderr, "one of -query, -join-paths or -related is required")
		flag.Usage()
		os.Exit(2)
	}
}

func splitTableList(s string) []string {
	parts := strings.Split(s, ",")
	tables := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			tables = append(tables, trimmed)
		}
	}
	return tables
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}
