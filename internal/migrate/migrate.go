package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/storage"
)

//go:embed migrations
var embedMigrations embed.FS

// gooseLogger routes goose output through the zap logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logging.Sugar.Infof(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logging.Sugar.Fatalf(format, v...)
}

func configureGoose(driver string) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetTableName("schema_migrations")
	goose.SetLogger(gooseLogger{})

	switch driver {
	case "sqlite", "sqlite3":
		return goose.SetDialect("sqlite3")
	case "postgres", "pgx", "postgrespool":
		return goose.SetDialect("postgres")
	}
	return fmt.Errorf("%w for migrations: %s", storage.ErrUnsupportedDriver, driver)
}

func migrationDir(driver string) string {
	switch driver {
	case "postgres", "pgx", "postgrespool":
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

// Managed reports whether driver has a SQL schema to migrate.
func Managed(driver string) bool {
	switch driver {
	case "sqlite", "sqlite3", "postgres", "pgx", "postgrespool":
		return true
	}
	return false
}

// openDB borrows the gorm connection so only one sqlite driver is linked.
func openDB(driver, dsn string) (*sql.DB, func(), error) {
	if driver == "sqlite3" {
		driver = "sqlite"
	}
	if driver == "sqlite" && dsn == "" {
		dsn = "tariffcompare.db"
	}
	gs, err := storage.NewGormStorage(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	db, err := gs.SQLDB()
	if err != nil {
		_ = gs.Close()
		return nil, nil, err
	}
	return db, func() { _ = gs.Close() }, nil
}

func run(ctx context.Context, driver, dsn string, fn func(*sql.DB, string) error) error {
	if !Managed(driver) {
		logging.Info("no schema to migrate", zap.String("driver", driver))
		return nil
	}
	if err := configureGoose(driver); err != nil {
		return err
	}
	db, closeFn, err := openDB(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}
	defer closeFn()
	return fn(db, migrationDir(driver))
}

func Up(ctx context.Context, driver, dsn string) error {
	return run(ctx, driver, dsn, func(db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

func Down(ctx context.Context, driver, dsn string) error {
	return run(ctx, driver, dsn, func(db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	})
}

func Status(ctx context.Context, driver, dsn string) error {
	return run(ctx, driver, dsn, func(db *sql.DB, dir string) error {
		return goose.StatusContext(ctx, db, dir)
	})
}

// Version returns the applied schema version, 0 for an unmanaged driver.
func Version(ctx context.Context, driver, dsn string) (int64, error) {
	var v int64
	err := run(ctx, driver, dsn, func(db *sql.DB, _ string) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}
