package store

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
)

// BoltStore is the persistent embedding cache. Keys are a hash of the model
// name and the embedded text; values are little-endian float32 vectors.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens the cache file. Another process holding the file makes
// this fail after a second instead of blocking.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEmbeddings, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func embeddingKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

func (s *BoltStore) Get(model, text string) ([]float32, bool, error) {
	var vec []float32
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get(embeddingKey(model, text))
		if data == nil {
			return nil
		}
		if len(data)%4 != 0 {
			return fmt.Errorf("corrupt cached embedding: %d bytes", len(data))
		}
		vec = bytesToFloat32(data)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return vec, vec != nil, nil
}

func (s *BoltStore) Put(model, text string, vec []float32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(embeddingKey(model, text), float32ToBytes(vec))
	})
}

func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear drops every cached vector but keeps schema metadata.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEmbeddings); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketEmbeddings)
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func float32ToBytes(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec
}
