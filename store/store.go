package store

import (
	"github.com/hrygo/ispkb/internal/profile"
)

// Store provides database access to all raw objects.
// It holds no caches; response caching lives in store/cache in front of it.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}
