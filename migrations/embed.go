package migrations

import (
	"context"
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для goose
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Up применяет все миграции к базе по DSN
// Миграции встроены в бинарник, поэтому путь к файлам не зависит от рабочей директории
func Up(ctx context.Context, dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
