package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL, импортируем для регистрации
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxOpenConns    = 25              // Максимальное количество открытых соединений
	maxIdleConns    = 25              // Максимальное количество простаивающих соединений
	connMaxLifetime = 5 * time.Minute // Максимальное время жизни соединения
	connMaxIdleTime = 5 * time.Minute // Максимальное время простоя соединения
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewPostgresDB создает и возвращает новое подключение к PostgreSQL.
func NewPostgresDB(dsn string) (*sqlx.DB, error) {
	log.Info().Msg("Подключение к PostgreSQL...")

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	log.Info().Msg("Подключение к PostgreSQL успешно установлено.")
	return db, nil
}

// Migrate применяет встроенные SQL-скрипты по порядку имен файлов.
// Скрипты идемпотентны (CREATE ... IF NOT EXISTS), поэтому повторный запуск безопасен.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("ошибка чтения списка миграций: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		script, readErr := migrationsFS.ReadFile(name)
		if readErr != nil {
			return fmt.Errorf("ошибка чтения миграции %s: %w", name, readErr)
		}
		if _, execErr := db.ExecContext(ctx, string(script)); execErr != nil {
			return fmt.Errorf("ошибка применения миграции %s: %w", name, execErr)
		}
		zerolog.Ctx(ctx).Info().Str("migration", name).Msg("[Migrate] Миграция применена")
	}
	return nil
}
