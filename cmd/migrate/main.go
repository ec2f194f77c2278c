package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbenedetti/percorsi/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("percorsi-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		apply(ctx, pool, upFiles())
	case "down":
		apply(ctx, pool, downFiles())
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// upFiles lists forward migrations in version order. Statements use
// IF NOT EXISTS so re-running is safe.
func upFiles() []string {
	var up []string
	for _, f := range glob("migrations/*.sql") {
		if !strings.HasSuffix(f, ".down.sql") {
			up = append(up, f)
		}
	}
	sort.Strings(up)
	return up
}

// downFiles lists rollback migrations, newest first.
func downFiles() []string {
	down := glob("migrations/*.down.sql")
	sort.Sort(sort.Reverse(sort.StringSlice(down)))
	return down
}

func glob(pattern string) []string {
	files, err := filepath.Glob(pattern)
	if err != nil {
		log.Fatalf("glob %s: %v", pattern, err)
	}
	if len(files) == 0 {
		log.Fatalf("no migration files match %s", pattern)
	}
	return files
}

func apply(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		fmt.Printf("OK  %s\n", f)
	}
	log.Printf("%d migrations applied", len(files))
}
