// Package kvstore provides the ordered, durable key-value substrate the
// rest of the storage engine is built on: a single embedded bbolt database
// with named sub-stores ("trees" here, buckets in bbolt's terms).
//
//	┌──────────────────────── KVSTORE ─────────────────────────┐
//	│                                                            │
//	│   *bbolt.DB  (one file, mmap'd, copy-on-write B+tree)     │
//	│     ├─ bucket "users"         username -> json(User)      │
//	│     ├─ bucket "tenants"       id       -> json(Tenant)    │
//	│     ├─ bucket "environments"  id       -> json(Environment)│
//	│     ├─ bucket "collections"   id       -> json(Collection)│
//	│     ├─ bucket "docs"          coll/id  -> json(Document)  │
//	│     ├─ bucket "metadata"      coll/id  -> json(id, text)  │
//	│     └─ bucket "vectors"       coll/id  -> le float32 seq  │
//	│                                                            │
//	│   Writes: db.Update (serialized, fsync on commit)          │
//	│   Reads:  db.View   (concurrent, MVCC snapshot)             │
//	└────────────────────────────────────────────────────────────┘
package kvstore

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/shailendrapspundhir/aidb/internal/aidberr"
)

// Sub-store (tree) names: the fixed physical keyspace this engine writes.
const (
	TreeUsers        = "users"
	TreeTenants      = "tenants"
	TreeEnvironments = "environments"
	TreeCollections  = "collections"
	TreeDocs         = "docs"
	TreeMetadata     = "metadata"
	TreeVectors      = "vectors"
)

var allTrees = []string{
	TreeUsers, TreeTenants, TreeEnvironments, TreeCollections,
	TreeDocs, TreeMetadata, TreeVectors,
}

// Store wraps one bbolt database, exposing it as a set of named sub-stores.
// A *Store is safe for concurrent use from multiple goroutines: bbolt
// serializes writers and allows concurrent MVCC readers internally.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt database at path and
// pre-creates every sub-store this engine depends on.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, aidberr.IoFailure("kvstore.Open", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allTrees {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, aidberr.IoFailure("kvstore.Open", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return aidberr.IoFailure("kvstore.Close", err)
	}
	return nil
}

// Tree returns a handle bound to the named sub-store. name must be one of
// the Tree* constants; Tree panics on an unknown name since that is always a
// programming error, never caller input.
func (s *Store) Tree(name string) *Tree {
	found := false
	for _, t := range allTrees {
		if t == name {
			found = true
			break
		}
	}
	if !found {
		panic("kvstore: unknown tree " + name)
	}
	return &Tree{db: s.db, bucket: []byte(name)}
}

// Tree is a handle to one named sub-store within the shared bbolt database.
type Tree struct {
	db     *bbolt.DB
	bucket []byte
}

// Insert writes value at key, overwriting any existing value. The write is
// atomic and durable (fsync'd) on successful return.
func (t *Tree) Insert(key, value []byte) error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(t.bucket).Put(key, value)
	})
	if err != nil {
		return aidberr.IoFailure("kvstore.Insert", err)
	}
	return nil
}

// Get returns the value at key and true, or nil and false if absent. The
// returned slice is a copy: bbolt's value is only valid for the lifetime of
// the read transaction.
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	err := t.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(t.bucket).Get(key)
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, aidberr.IoFailure("kvstore.Get", err)
	}
	return out, out != nil, nil
}

// Remove deletes key. Removing an absent key is not an error (idempotent).
func (t *Tree) Remove(key []byte) error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(t.bucket).Delete(key)
	})
	if err != nil {
		return aidberr.IoFailure("kvstore.Remove", err)
	}
	return nil
}

// Contains reports whether key is present.
func (t *Tree) Contains(key []byte) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

// KV is one key-value pair returned by ScanPrefix.
type KV struct {
	Key   []byte
	Value []byte
}

// ScanPrefix returns every (key, value) pair whose key starts with prefix,
// in ascending key order (bbolt's native Cursor order). Returned slices are
// copies, safe to retain past the call.
func (t *Tree) ScanPrefix(prefix []byte) ([]KV, error) {
	var out []KV
	err := t.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(t.bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			out = append(out, KV{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, aidberr.IoFailure("kvstore.ScanPrefix", err)
	}
	return out, nil
}

// RemovePrefix deletes every key starting with prefix in a single
// transaction. Returns the number of keys removed.
func (t *Tree) RemovePrefix(prefix []byte) (int, error) {
	n := 0
	err := t.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(t.bucket)
		c := b.Cursor()
		var keys [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, aidberr.IoFailure("kvstore.RemovePrefix", err)
	}
	return n, nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
