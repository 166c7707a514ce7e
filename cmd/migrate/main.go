package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"time"

	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/migrations"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	files, err := migrationFiles()
	if err != nil {
		logger.Fatalw("Failed to read migrations", "error", err)
	}

	if *dryRun {
		logger.Info("Dry run mode - printing migration SQL without executing")
		for _, f := range files {
			fmt.Printf("-- %s\n%s\n", f.name, f.sql)
		}
		return
	}

	dsn := cfg.Postgres.GetDSN()
	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Running database migrations...")
	for _, f := range files {
		if _, err := db.ExecContext(ctx, f.sql); err != nil {
			logger.Fatalw("Migration failed", "file", f.name, "error", err)
		}
		logger.Infow("Applied migration", "file", f.name)
	}

	fmt.Println("Migration process completed")
}

type migrationFile struct {
	name string
	sql  string
}

func migrationFiles() ([]migrationFile, error) {
	fsys := migrations.GetMigrationsFS()

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, migrationFile{name: entry.Name(), sql: string(content)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	if len(files) == 0 {
		return nil, fmt.Errorf("no migration files embedded")
	}
	return files, nil
}
