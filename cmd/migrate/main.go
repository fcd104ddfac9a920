package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/cropchain/cropchain-backend/pkg/config"
	"github.com/cropchain/cropchain-backend/pkg/db"
	"github.com/cropchain/cropchain-backend/pkg/instance"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	"github.com/cropchain/cropchain-backend/pkg/migrate"
)

const usage = `usage: migrate -cmd <up|down|status|version|create|validate> [flags]

Database commands read the migrations compiled into the binary unless -dir
is given. create and validate work on -dir, default ` + migrate.SourceDir + `.
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(*cmd, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string) error {
	// File-only commands need neither config nor a database.
	switch cmd {
	case "create":
		if name == "" {
			return fmt.Errorf("missing -name")
		}
		path, err := migrate.CreateSQLMigration(orDefault(dir, migrate.SourceDir), name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if dir == "" {
			if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
				return err
			}
		} else if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
	if cmd == "version" && version == "" {
		return fmt.Errorf("missing -version")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.DocStore.UsesSQL() {
		return fmt.Errorf("%s=%s has no sql schema to migrate", config.EnvDocStoreDriver, cfg.DocStore.Driver)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		InstanceID:  instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": cmd,
		"dir": orDefault(dir, "embedded"),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	dialect := migrate.DialectFor(cfg.DB)
	logg.Info(ctx, "migrate.ready")

	if cmd == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, dialect, dir, version)
	} else {
		err = migrate.Run(ctx, sqlDB, dialect, dir, cmd)
	}
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
