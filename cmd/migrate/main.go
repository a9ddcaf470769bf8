package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/pharmabill/backend/internal/infrastructure/config"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	migrationsPath, err = resolveMigrationsPath(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	log.Debug("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		files, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(files) == 0 {
			log.Info("No migrations found")
			return
		}
		for _, f := range files {
			fmt.Println("  -", f)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()

	case "down":
		err = m.Down()

	case "step":
		n, convErr := strconv.Atoi(argAt(args, 1))
		if convErr != nil {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		err = m.Steps(n)

	case "goto":
		version, convErr := strconv.ParseUint(argAt(args, 1), 10, 32)
		if convErr != nil {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		err = m.GoTo(uint(version))

	case "force":
		version, convErr := strconv.Atoi(argAt(args, 1))
		if convErr != nil {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		err = m.Force(version)

	case "version", "status":
		status, statusErr := m.Status(migrationsPath)
		if statusErr != nil {
			log.Fatal("Failed to read schema status", zap.Error(statusErr))
		}
		log.Info("Schema status",
			zap.Uint("version", status.Version),
			zap.Bool("dirty", status.Dirty),
			zap.Int("available", status.Available),
		)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// resolveMigrationsPath falls back to ./migrations, then to the directory
// two levels above the executable
func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = migration.DefaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, exeErr := os.Executable(); exeErr == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", migration.DefaultMigrationsPath)
				if _, statErr := os.Stat(candidate); statErr == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func printUsage() {
	fmt.Println(`Pharmabill schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version, status       Show the applied version
  force <version>       Mark a version as applied without running it
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: ./migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Database settings come from config.toml or PHARMA_DATABASE_* variables.`)
}
