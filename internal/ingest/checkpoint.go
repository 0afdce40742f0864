package ingest

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"

	apperrors "github.com/whattherepo/whattherepo/internal/errors"
)

// Checkpoint records which PR numbers have been enriched per repository
// so interrupted or repeated runs skip finished work. One bucket per
// repository, keyed by PR number.
type Checkpoint struct {
	db *bolt.DB
}

// OpenCheckpoint opens or creates the checkpoint database at path.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityFatal, "open checkpoint database")
	}
	return &Checkpoint{db: db}, nil
}

func (c *Checkpoint) Close() error {
	return c.db.Close()
}

// Seen reports whether a PR was already processed in a previous run.
func (c *Checkpoint) Seen(repo string, prNumber int) (bool, error) {
	var seen bool
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(repo))
		if b == nil {
			return nil
		}
		seen = b.Get(prKey(prNumber)) != nil
		return nil
	})
	return seen, err
}

// Mark records a PR as processed.
func (c *Checkpoint) Mark(repo string, prNumber int) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(repo))
		if err != nil {
			return err
		}
		stamp := make([]byte, 8)
		binary.BigEndian.PutUint64(stamp, uint64(time.Now().Unix()))
		return b.Put(prKey(prNumber), stamp)
	})
}

// Reset drops the checkpoint state for one repository.
func (c *Checkpoint) Reset(repo string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(repo)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(repo))
	})
}

func prKey(n int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(n))
	return key
}
