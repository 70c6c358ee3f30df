package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/brandlens/brandlens/internal/config"
)

const (
	driverLibsql = "libsql"
	driverSQLite = "sqlite"

	memoryDSN = ":memory:"
)

// ErrNotOpen is returned by methods called on a nil or unopened store.
var ErrNotOpen = errors.New("store is not open")

// Store persists the provider result cache, rate limit windows and evaluation
// history.
type Store struct {
	DB     *sql.DB
	Clock  func() time.Time
	driver string
}

// target is a resolved connection: which driver, what DSN, and whether the database
// lives on this machine.
type target struct {
	driver string
	dsn    string
	local  bool
	file   bool
}

// Open connects to the configured store. Local databases are pinned to a single
// connection; local files also get WAL journaling.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tgt, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(tgt.driver, tgt.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", tgt.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s store: %w", tgt.driver, err)
	}

	s := &Store{DB: db, driver: tgt.driver}
	if tgt.local {
		if err := s.configureLocal(ctx, tgt.file); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func resolveTarget(cfg config.StoreConfig) (target, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = driverLibsql
	}
	path := strings.TrimSpace(cfg.Path)

	switch driver {
	case driverLibsql:
		if remote := strings.TrimSpace(cfg.URL); remote != "" {
			dsn, err := withAuthToken(remote, cfg.AuthToken)
			return target{driver: driver, dsn: dsn}, err
		}
		switch {
		case path == "":
			return target{}, errors.New("store path or url is required")
		case path == memoryDSN:
			return target{driver: driver, dsn: memoryDSN, local: true}, nil
		case strings.HasPrefix(path, "libsql:"):
			return target{driver: driver, dsn: path}, nil
		case strings.HasPrefix(path, "file:"):
			local, err := filePath(path)
			if err != nil {
				return target{}, err
			}
			return target{driver: driver, dsn: path, local: true, file: true}, ensureDir(local)
		default:
			return target{driver: driver, dsn: "file:" + filepath.Clean(path), local: true, file: true}, ensureDir(path)
		}

	case driverSQLite:
		switch path {
		case "":
			return target{}, errors.New("store path is required for the sqlite driver")
		case memoryDSN:
			return target{driver: driver, dsn: memoryDSN, local: true}, nil
		}
		local := strings.TrimPrefix(path, "file:")
		return target{driver: driver, dsn: local, local: true, file: true}, ensureDir(local)

	default:
		return target{}, fmt.Errorf("unsupported store driver %q (want libsql or sqlite)", driver)
	}
}

func (s *Store) configureLocal(ctx context.Context, file bool) error {
	s.DB.SetMaxOpenConns(1)
	if !file {
		return nil
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		rows, err := s.DB.QueryContext(ctx, pragma)
		if err != nil {
			return fmt.Errorf("configure store (%s): %w", pragma, err)
		}
		_ = rows.Close()
	}
	return nil
}

func (s *Store) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.DB == nil {
		return nil, ErrNotOpen
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

// Ping verifies the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	return s.DB.PingContext(ctx)
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the driver the store was opened with.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

func (s *Store) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// withAuthToken adds a Turso auth token to a remote URL unless one is present.
func withAuthToken(dsn, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") == "" {
		query.Set("authToken", token)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func filePath(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	if parsed.Path != "" {
		return strings.TrimPrefix(parsed.Path, "//"), nil
	}
	return strings.TrimPrefix(parsed.Opaque, "//"), nil
}

func ensureDir(path string) error {
	if strings.TrimSpace(path) == "" || path == memoryDSN {
		return nil
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
