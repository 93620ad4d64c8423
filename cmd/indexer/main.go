package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	root := flag.String("root", "", "document root, overrides index.sourceRoot")
	dataDir := flag.String("data", "", "index directory, overrides index.dataDir")
	rebuildSpell := flag.Bool("rebuild-spell", false, "only re-derive the spell dictionary of the current generation")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.Index.SourceRoot = *root
		cfg.Index.Source = "fs"
	}
	if *dataDir != "" {
		cfg.Index.DataDir = *dataDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *rebuildSpell); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, rebuildSpell bool) error {
	var opts []indexer.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		opts = append(opts, indexer.WithMetrics(metrics.New(reg)))
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdown(context.Background())
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BuildEvents)
		defer producer.Close()
		opts = append(opts, indexer.WithEvents(producer))
	}

	engine, err := indexer.NewEngine(*cfg, opts...)
	if err != nil {
		return err
	}

	if rebuildSpell {
		gen, err := engine.RebuildSpell(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Spell dictionary rebuilt for generation %d\n", gen)
		return nil
	}

	slog.Info("starting build",
		"source", cfg.Index.Source,
		"root", cfg.Index.SourceRoot,
		"data_dir", cfg.Index.DataDir,
	)
	var res *indexer.BuildResult
	switch cfg.Index.Source {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		err = pg.InTx(ctx, func(tx *sql.Tx) error {
			var err error
			res, err = engine.Build(ctx, source.NewPostgres(tx, pg.DocumentsQuery()))
			return err
		})
		if err != nil {
			return err
		}
	default:
		res, err = engine.Build(ctx, source.NewFilesystem(cfg.Index.SourceRoot))
		if err != nil {
			if indexer.IsFatal(err) {
				return fmt.Errorf("document root %s: %w", cfg.Index.SourceRoot, err)
			}
			return err
		}
	}

	fmt.Printf("Indexed %d documents into generation %d (%d terms) in %s\n",
		res.Indexed, res.Generation, res.Terms, res.Took)
	for _, s := range res.Skipped {
		fmt.Printf("  skipped %s: %s\n", s.ID, s.Reason)
	}
	return nil
}
