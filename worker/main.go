// The worker annotates a stream of articles with resolved locations and
// reader-relative tiers. Input and output are NDJSON: one article per
// line, stdin to stdout by default.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/newsglobe/backend/internal/config"
	"github.com/newsglobe/backend/internal/extract"
	"github.com/newsglobe/backend/internal/fetch"
	"github.com/newsglobe/backend/internal/gazetteer"
	"github.com/newsglobe/backend/internal/geocache"
	"github.com/newsglobe/backend/internal/geocode"
	"github.com/newsglobe/backend/internal/logger"
	"github.com/newsglobe/backend/internal/models"
	"github.com/newsglobe/backend/internal/resolver"
)

// scanBufferSize bounds a single NDJSON line; full-content articles run long.
const scanBufferSize = 4 << 20

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	inPath := flag.String("in", "", "input NDJSON file (default stdin)")
	outPath := flag.String("out", "", "output NDJSON file (default stdout)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	gaz, err := gazetteer.New()
	if err != nil {
		log.Error("load gazetteer", slog.Any("err", err))
		os.Exit(1)
	}

	var cache geocode.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis unreachable", slog.String("addr", cfg.RedisAddr), slog.Any("err", err))
			os.Exit(1)
		}
		cache = geocache.NewRedis(rdb, cfg.CacheTTL)
		log.Info("using redis geocode cache", slog.String("addr", cfg.RedisAddr))
	} else {
		cache = geocache.NewMemory(cfg.CacheCapacity, cfg.CacheTTL)
	}

	geo, err := geocode.New(geocode.Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		TokenURL:       cfg.TokenURL,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		Timeout:        cfg.Timeout,
		PreferDomestic: cfg.PreferDomestic,
		Thresholds:     geocode.Thresholds{CloseKm: cfg.CloseKm, MediumKm: cfg.MediumKm},
	}, gaz, cache, log)
	if err != nil {
		log.Error("init geocoder", slog.Any("err", err))
		os.Exit(1)
	}

	switch {
	case cfg.ReaderPostalCode != "":
		if err := geo.SetReaderPostalCode(ctx, cfg.ReaderPostalCode); err != nil {
			log.Warn("reader postal code unresolved, using default origin",
				slog.String("postal_code", cfg.ReaderPostalCode),
				slog.Any("err", err),
			)
		}
	case cfg.ReaderLat != 0 || cfg.ReaderLon != 0:
		geo.SetReaderLocation(cfg.ReaderLat, cfg.ReaderLon)
	}

	res := resolver.New(
		extract.New(gaz),
		geo,
		fetch.New(cfg.FetchTimeout),
		resolver.Options{
			MinConfidence:     cfg.MinConfidence,
			FetchFullContent:  cfg.FetchFullContent,
			DefaultPostalCode: cfg.DefaultPostalCode,
		},
		log,
	)

	in := os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Error("open input", slog.Any("err", err))
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Error("open output", slog.Any("err", err))
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	processed, failed := run(ctx, log, res, geo, cfg.Concurrency, in, out)
	log.Info("worker finished", slog.Int("processed", processed), slog.Int("failed", failed))
}

func run(ctx context.Context, log *slog.Logger, res *resolver.Resolver, geo *geocode.Client, concurrency int, in io.Reader, out io.Writer) (processed, failed int) {
	reader := geo.ReaderLocation()
	thresholds := geo.Thresholds()

	var mu sync.Mutex
	enc := json.NewEncoder(out)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var counters sync.Mutex

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		g.Go(func() error {
			var art models.Article
			if err := json.Unmarshal(line, &art); err != nil {
				log.Warn("skip malformed article", slog.Any("err", err))
				counters.Lock()
				failed++
				counters.Unlock()
				return nil
			}
			if art.ID == "" {
				art.ID = uuid.NewString()
			}

			art = res.Resolve(ctx, art)
			art = resolver.Annotate(art, reader, thresholds)

			mu.Lock()
			err := enc.Encode(art)
			mu.Unlock()
			if err != nil {
				log.Error("write article", slog.String("id", art.ID), slog.Any("err", err))
				return err
			}

			counters.Lock()
			processed++
			counters.Unlock()
			return nil
		})
	}

	if err := scanner.Err(); err != nil {
		log.Error("read input", slog.Any("err", err))
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("batch aborted", slog.Any("err", err))
	}
	return processed, failed
}
