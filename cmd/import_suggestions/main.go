package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mozhi/internal/util"
	"mozhi/pkg/store"
)

func main() {
	_ = godotenv.Load()
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "database URL (defaults to $DATABASE_URL)")
	driver := flag.String("driver", envOr("DB_DRIVER", store.DriverPostgres), "database driver: postgres or mysql")
	dryRun := flag.Bool("dry-run", false, "parse and validate only")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-dsn URL] [-driver NAME] [-dry-run] <suggestions.yaml>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger, closer := util.InitLogger(envOr("LOG_LEVEL", "info"), nil)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	items, err := loadFiles(ctx, flag.Args())
	if err != nil {
		exitErr(err)
	}
	logger.Info("suggestions parsed", "files", flag.NArg(), "entries", len(items))
	if *dryRun {
		return
	}
	if strings.TrimSpace(*dsn) == "" {
		exitErr(errors.New("database URL required (-dsn or DATABASE_URL)"))
	}

	st, err := store.NewGormStore(*dsn, store.WithDriver(*driver), store.WithLogger(logger))
	if err != nil {
		exitErr(fmt.Errorf("open store: %w", err))
	}
	defer st.Close()

	start := time.Now()
	n, err := importSuggestions(ctx, st, items)
	if err != nil {
		exitErr(err)
	}
	logger.Info("suggestions imported", "upserted", n, "took", time.Since(start).String())
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "import_suggestions: %v\n", err)
	os.Exit(1)
}
