package store

import (
	"context"
	"fmt"
)

// Open returns a Store for the named driver: "libsql" uses path, "postgres" uses url.
func Open(ctx context.Context, driver, path, url string) (Store, error) {
	switch driver {
	case "", "libsql", "sqlite":
		return NewLibSQLStore(path)
	case "postgres", "postgresql", "pgx":
		return NewPostgresStore(ctx, url)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
