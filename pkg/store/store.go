// Package store keeps a persistent log of the values observed while running
// programs, backed by a bbolt database.
package store

import (
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
	"src.strand.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[store] ")

// ErrNoValue is returned by (*Store).Latest when no value has been recorded
// for an expression.
var ErrNoValue = errors.New("no value recorded")

// Functions run in a single transaction when a database is opened, keyed by
// description.
var initDB = map[string](func(*bolt.Tx) error){}

// Store is a value log in a database file. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens the value log in the given file, creating it if it does not
// exist. It waits at most timeout for another process holding the file to
// release it; a zero timeout waits indefinitely.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return errors.New(name + ": " + err.Error())
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Printf("opened value log %s", path)
	return &Store{db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	logger.Printf("closing value log %s", s.db.Path())
	return s.db.Close()
}
