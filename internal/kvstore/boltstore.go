package kvstore

import (
	"errors"
	"fmt"

	"github.com/boltdb/bolt"
)

var bucketName = []byte("mpnchain")

// BoltStore is the on-disk KVStore backend, grounded on the teacher's
// own go.mod dependency on github.com/boltdb/bolt (never itself wired
// to a concrete store there; the teacher's internal/state package is
// in-memory only). Everything in this package lives in a single bucket,
// matching the flat key namespace §4.2 describes.
type BoltStore struct {
	db        *bolt.DB
	lastBatch []Op
}

// OpenBoltStore opens (creating if necessary) a bolt database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketName)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying file handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return errors.New("kvstore: missing bucket")
		}
		v := b.Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: get: %w", err)
	}
	return out, found, nil
}

func (s *BoltStore) Update(ops []Op) error {
	undo := make([]Op, 0, len(ops))
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return errors.New("kvstore: missing bucket")
		}
		for i := len(ops) - 1; i >= 0; i-- {
			op := ops[i]
			old := b.Get(op.Key)
			if old != nil {
				undo = append(undo, Put(op.Key, append([]byte(nil), old...)))
			} else {
				undo = append(undo, Remove(op.Key))
			}
		}
		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := b.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpRemove:
				if err := b.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kvstore: update: %w", err)
	}
	s.lastBatch = undo
	return nil
}

func (s *BoltStore) Mirror() *Mirror {
	return newMirror(s)
}

func (s *BoltStore) Rollback() ([]Op, error) {
	return append([]Op(nil), s.lastBatch...), nil
}
