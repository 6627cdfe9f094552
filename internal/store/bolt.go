package store

import (
	"encoding/binary"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"
)

var buckets = struct {
	Users     []byte
	AccessLog []byte
}{
	Users:     []byte("users"),
	AccessLog: []byte("access_log"),
}

// BoltStore is a key-store backend for the same contract as FileStore. Each
// bucket maps identity -> insertion sequence number, so listing can preserve
// insertion order.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(buckets.Users); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(buckets.AccessLog); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) IsAuthorized(identity string) (authorized bool, err error) {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return false, nil
	}
	err = s.db.View(func(tx *bbolt.Tx) error {
		authorized = tx.Bucket(buckets.Users).Get([]byte(identity)) != nil
		return nil
	})
	return authorized, err
}

func (s *BoltStore) AddUser(identity string) (added bool, err error) {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return false, nil
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(buckets.Users)
		if bucket.Get([]byte(identity)) != nil {
			return nil
		}
		if err := putSequenced(bucket, identity); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return added, nil
}

func (s *BoltStore) RemoveUser(identity string) (removed bool, err error) {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return false, nil
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(buckets.Users)
		if bucket.Get([]byte(identity)) == nil {
			return nil
		}
		if err := bucket.Delete([]byte(identity)); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return removed, nil
}

func (s *BoltStore) ListUsers() ([]string, error) {
	return listSequenced(s.db, buckets.Users)
}

func (s *BoltStore) LogAccess(identity string) error {
	identity = NormalizeHandle(identity)
	if identity == "" {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(buckets.AccessLog)
		if bucket.Get([]byte(identity)) != nil {
			return nil
		}
		return putSequenced(bucket, identity)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func (s *BoltStore) AccessLog() ([]string, error) {
	return listSequenced(s.db, buckets.AccessLog)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func putSequenced(bucket *bbolt.Bucket, identity string) error {
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, seq)
	return bucket.Put([]byte(identity), value)
}

func listSequenced(db *bbolt.DB, bucketName []byte) ([]string, error) {
	type entry struct {
		identity string
		seq      uint64
	}
	var entries []entry
	err := db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			entries = append(entries, entry{identity: string(k), seq: binary.BigEndian.Uint64(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	identities := make([]string, 0, len(entries))
	for _, e := range entries {
		identities = append(identities, e.identity)
	}
	return identities, nil
}
