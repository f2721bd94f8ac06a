package store

import (
	"encoding/binary"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
)

const (
	bucketValues = "values"
	bucketLatest = "latest"
)

func init() {
	initDB["initialize value tables"] = func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketValues)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketLatest))
		return err
	}
}

// Entry is a value observed for an expression.
type Entry struct {
	Seq  uint64
	ID   uuid.UUID
	Kind string
	Repr string
}

// The encoding of an entry in the database.
type entryData struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Repr string `yaml:"repr"`
}

// Record appends a value to the log. It implements the sink interface of
// package instrument.
func (s *Store) Record(id uuid.UUID, kind, repr string) error {
	_, err := s.Add(id, kind, repr)
	return err
}

// Add appends a value to the log and returns its sequence number.
func (s *Store) Add(id uuid.UUID, kind, repr string) (uint64, error) {
	data, err := yaml.Marshal(entryData{id.String(), kind, repr})
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketValues))
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(marshalSeq(seq), data); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketLatest)).Put(id[:], marshalSeq(seq))
	})
	return seq, err
}

// NextSeq returns the sequence number the next entry will get.
func (s *Store) NextSeq() (uint64, error) {
	var seq uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		seq = tx.Bucket([]byte(bucketValues)).Sequence() + 1
		return nil
	})
	return seq, err
}

// Latest returns the last value recorded for an expression.
func (s *Store) Latest(id uuid.UUID) (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		seq := tx.Bucket([]byte(bucketLatest)).Get(id[:])
		if seq == nil {
			return ErrNoValue
		}
		var err error
		e, err = unmarshalEntry(seq, tx.Bucket([]byte(bucketValues)).Get(seq))
		return err
	})
	return e, err
}

// Iterate calls f with the entries with sequence numbers in [from, upto), in
// order, until f returns false.
func (s *Store) Iterate(from, upto uint64, f func(Entry) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketValues)).Cursor()
		for k, v := c.Seek(marshalSeq(from)); k != nil && unmarshalSeq(k) < upto; k, v = c.Next() {
			e, err := unmarshalEntry(k, v)
			if err != nil {
				return err
			}
			if !f(e) {
				break
			}
		}
		return nil
	})
}

// Entries returns the entries with sequence numbers in [from, upto).
func (s *Store) Entries(from, upto uint64) ([]Entry, error) {
	var entries []Entry
	err := s.Iterate(from, upto, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries, err
}

func unmarshalEntry(k, v []byte) (Entry, error) {
	var data entryData
	if err := yaml.Unmarshal(v, &data); err != nil {
		return Entry{}, err
	}
	id, err := uuid.Parse(data.ID)
	if err != nil {
		return Entry{}, err
	}
	return Entry{unmarshalSeq(k), id, data.Kind, data.Repr}, nil
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
