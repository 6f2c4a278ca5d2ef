package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub/kv"
)

// keyvalueBucket holds every sitehub record. The namespace is flat by
// contract; prefixes inside the key carry all structure.
var keyvalueBucket = []byte("keyvaluev1")

// KVStore is a kv.Store backed by boltdb.
//
// Expiry is recorded in the same write as the value: each stored entry is an
// 8 byte big-endian unix-nano deadline (zero for none) followed by the raw
// value. Expired entries read as not found and are reaped opportunistically
// during prefix scans.
type KVStore struct {
	path   string
	db     *bbolt.DB
	logger *zap.Logger
	clock  clock.Clock
}

// NewKVStore returns an instance of KVStore with the file at the provided path.
func NewKVStore(path string) *KVStore {
	return &KVStore{
		path:   path,
		logger: zap.NewNop(),
		clock:  clock.New(),
	}
}

// WithLogger sets the logger on the store.
func (s *KVStore) WithLogger(l *zap.Logger) {
	s.logger = l
}

// WithClock sets the clock used for expiry decisions.
func (s *KVStore) WithClock(c clock.Clock) {
	s.clock = c
}

// Open creates the boltDB file if it doesn't exist and opens it otherwise.
func (s *KVStore) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("unable to create directory %s: %v", s.path, err)
	}

	if _, err := os.Stat(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("unable to open boltdb file %v", err)
	}
	s.db = db

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(keyvalueBucket)
		return err
	}); err != nil {
		return err
	}

	s.logger.Info("Resources opened", zap.String("path", s.path))
	return nil
}

// Close the connection to the bolt database.
func (s *KVStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func encodeEntry(value []byte, deadline time.Time) []byte {
	buf := make([]byte, 8+len(value))
	if !deadline.IsZero() {
		binary.BigEndian.PutUint64(buf[:8], uint64(deadline.UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

// decodeEntry splits an entry into its value and expiry deadline. ok is
// false when the entry is malformed.
func decodeEntry(entry []byte) (value []byte, deadline time.Time, ok bool) {
	if len(entry) < 8 {
		return nil, time.Time{}, false
	}
	if nanos := binary.BigEndian.Uint64(entry[:8]); nanos != 0 {
		deadline = time.Unix(0, int64(nanos))
	}
	return entry[8:], deadline, true
}

func (s *KVStore) expired(deadline time.Time) bool {
	return !deadline.IsZero() && s.clock.Now().After(deadline)
}

// Get returns the live value for key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		entry := tx.Bucket(keyvalueBucket).Get([]byte(key))
		if entry == nil {
			return kv.ErrKeyNotFound
		}
		v, deadline, ok := decodeEntry(entry)
		if !ok || s.expired(deadline) {
			return kv.ErrKeyNotFound
		}
		value = append(value, v...)
		return nil
	})
	if err == kv.ErrKeyNotFound {
		return nil, err
	}
	if err != nil {
		return nil, kv.ErrUnavailable(err)
	}
	return value, nil
}

// Set writes value under key, recording the expiry in the same transaction.
func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 {
		deadline = s.clock.Now().Add(ttl)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(keyvalueBucket).Put([]byte(key), encodeEntry(value, deadline))
	})
	if err != nil {
		return kv.ErrUnavailable(err)
	}
	return nil
}

// Del removes key. Absent keys are not an error.
func (s *KVStore) Del(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(keyvalueBucket).Delete([]byte(key))
	})
	if err != nil {
		return kv.ErrUnavailable(err)
	}
	return nil
}

// Keys returns all live keys beginning with prefix. Expired entries found
// along the way are deleted.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(keyvalueBucket).Cursor()
		p := []byte(prefix)
		for k, entry := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, entry = c.Next() {
			_, deadline, ok := decodeEntry(entry)
			if !ok || s.expired(deadline) {
				if err := c.Delete(); err != nil {
					return err
				}
				continue
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, kv.ErrUnavailable(err)
	}
	return keys, nil
}
