package store

import (
	"fmt"

	"github.com/cidxb/rark/internal/store/pgstore"
	"github.com/cidxb/rark/internal/store/sqlitestore"
)

// NewDriver selects a Driver by name, mirroring the teacher's
// store/db driver factory: "sqlite" (default, dsn may be ":memory:")
// or "postgres" (dsn is a libpq connection string).
func NewDriver(driver, dsn string) (Driver, error) {
	switch driver {
	case "", "sqlite":
		return sqlitestore.New(dsn), nil
	case "postgres":
		return pgstore.New(dsn), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
