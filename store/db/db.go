package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/internal/profile"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/db/postgres"
	"github.com/hrygo/ispkb/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production database. SQLite serves single-node installs,
// demo mode and tests. Both must implement every Driver method.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
