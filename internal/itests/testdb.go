package itests

import (
	"DevcampAPI/internal"
	"DevcampAPI/internal/db"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const testDBName = "devcamp_test"

// testDB: одноразовая база рядом с базой из POSTGRES_DSN
type testDB struct {
	dsn      string // DSN тестовой базы
	adminDSN string // тот же сервер, база postgres
	name     string
}

// newTestDB подменяет имя базы в DSN. Разрешены только локальные хосты.
func newTestDB(baseDSN string) (*testDB, error) {
	u, err := url.Parse(baseDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, errors.New("only URL DSN supported: postgres://...")
	}
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return nil, fmt.Errorf("refuse non-local host for tests: %s", host)
	}

	t := &testDB{name: testDBName}
	u.Path = "/" + testDBName
	t.dsn = u.String()
	u.Path = "/postgres"
	t.adminDSN = u.String()
	return t, nil
}

// admin выполняет fn на соединении с базой postgres
func (t *testDB) admin(timeout time.Duration, fn func(ctx context.Context, conn *sql.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := sql.Open("pgx", t.adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

func (t *testDB) create() error {
	return t.admin(10*time.Second, func(ctx context.Context, conn *sql.DB) error {
		var exists bool
		if err := conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname=$1)`, t.name,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			// остатки прошлого прогона
			if err := t.terminate(ctx, conn); err != nil {
				return err
			}
			if _, err := conn.ExecContext(ctx, `DROP DATABASE `+quoteIdent(t.name)); err != nil {
				return err
			}
		}
		_, err := conn.ExecContext(ctx, `CREATE DATABASE `+quoteIdent(t.name))
		return err
	})
}

func (t *testDB) drop() error {
	return t.admin(15*time.Second, func(ctx context.Context, conn *sql.DB) error {
		_ = t.terminate(ctx, conn)
		_, err := conn.ExecContext(ctx, `DROP DATABASE IF EXISTS `+quoteIdent(t.name))
		return err
	})
}

func (t *testDB) terminate(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, t.name)
	return err
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SetupAndTeardownTestDB создаёт чистую тестовую БД, накатывает migrations/
// и возвращает её DSN и функцию удаления.
func SetupAndTeardownTestDB(baseDSN string) (string, func() error, error) {
	if os.Getenv("APP_ENV") == "production" {
		return "", nil, errors.New("APP_ENV=production, aborting tests")
	}
	t, err := newTestDB(baseDSN)
	if err != nil {
		return "", nil, err
	}
	if err := t.create(); err != nil {
		return "", nil, fmt.Errorf("create DB %q: %w (POSTGRES_DSN -> %s)", t.name, err, redactDSN(baseDSN))
	}
	log.Printf("test DB %q created", t.name)

	root, err := internal.FindRepoRoot()
	if err != nil {
		_ = t.drop()
		return "", nil, fmt.Errorf("repo root not found: %w", err)
	}
	if err := db.Migrate(t.dsn, filepath.Join(root, "migrations")); err != nil {
		_ = t.drop()
		return "", nil, err
	}
	return t.dsn, t.drop, nil
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || u.User.Username() == "" {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "******")
	return u.String()
}
