package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/maynagashev/bookshelf/internal/auth"
	"github.com/rs/zerolog/log"
)

const (
	// Порт по умолчанию (HTTP, если TLS не настроен).
	defaultServerPort = "4002"

	// Переменные окружения.
	envServerPort  = "SERVER_PORT"
	envTLSCertFile = "TLS_CERT_FILE"
	envTLSKeyFile  = "TLS_KEY_FILE"
	envDatabaseDSN = "DATABASE_DSN"
	envJWTSecret   = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, не секрет
	envTokenTTL    = "TOKEN_TTL"
	envLogLevel    = "LOG_LEVEL"
	envLogPretty   = "LOG_PRETTY"
)

// config хранит конфигурацию сервера.
// Приоритет: флаги командной строки > переменные окружения (и .env) > значения по умолчанию.
type config struct {
	Port        string        `env:"SERVER_PORT" env-default:"4002"`
	CertFile    string        `env:"TLS_CERT_FILE"`
	KeyFile     string        `env:"TLS_KEY_FILE"`
	DatabaseDSN string        `env:"DATABASE_DSN"`
	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" env-default:"15m"`
	LogLevel    string        `env:"LOG_LEVEL" env-default:"info"`
	LogPretty   bool          `env:"LOG_PRETTY" env-default:"false"`
	SkipMigrate bool
}

// useTLS сообщает, заданы ли оба файла для HTTPS.
func (c *config) useTLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// parseFlags разбирает .env, переменные окружения и флаги, возвращает config или ошибку.
func parseFlags() (*config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("[Config] Файл .env не загружен")
	}

	cfg := &config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	// Значения из окружения становятся значениями флагов по умолчанию
	flag.StringVar(&cfg.Port, "port", cfg.Port,
		fmt.Sprintf("Порт сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", cfg.CertFile,
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", cfg.KeyFile,
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", cfg.DatabaseDSN,
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret,
		fmt.Sprintf("Секрет для подписи JWT (env: %s)", envJWTSecret))
	flag.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL,
		fmt.Sprintf("Время жизни токена (env: %s)", envTokenTTL))
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		fmt.Sprintf("Уровень логирования (env: %s)", envLogLevel))
	flag.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty,
		fmt.Sprintf("Человекочитаемый вывод логов (env: %s)", envLogPretty))
	flag.BoolVar(&cfg.SkipMigrate, "skip-migrate", false, "Не применять миграции при старте")

	flag.Parse()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет обязательные параметры.
func (c *config) validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if c.JWTSecret == "" {
		return errors.New("не указан секрет JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	if !c.useTLS() && (c.CertFile != "" || c.KeyFile != "") {
		log.Warn().Msg("[Config] Для HTTPS нужны оба файла " + envTLSCertFile + " и " + envTLSKeyFile +
			", сервер запустится по HTTP")
	}
	if c.TokenTTL <= 0 {
		log.Warn().Dur("token_ttl", c.TokenTTL).Msg("[Config] Некорректный TOKEN_TTL, используется значение по умолчанию")
		c.TokenTTL = auth.DefaultTokenTTL
	}
	return nil
}
