package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/notargets/gofv/mesh"
)

var ErrNoSnapshot = errors.New("snapshot not found")

// Meta is the run state needed to resume the step loop.
type Meta struct {
	RunID        string    `toml:"run_id"`
	Index        int       `toml:"index"`
	Time         float64   `toml:"time"`
	Step         int       `toml:"step"`
	Dt           float64   `toml:"dt"`
	NextSnapshot float64   `toml:"next_snapshot"`
	NextHistory  float64   `toml:"next_history"`
	NextLoads    float64   `toml:"next_loads"`
	NBlocks      int       `toml:"n_blocks"`
	NConserved   int       `toml:"n_conserved"`
	Written      time.Time `toml:"written"`
}

type Config struct {
	Path     string
	InMemory bool
}

// Store keeps snapshots in badger under run/<run id>/snap/<index>/.
// Block data is written before the meta record, so a snapshot without meta
// is incomplete and never read back.
type Store struct {
	db *badger.DB
}

func NewRunID() string {
	return uuid.NewString()
}

func Open(cfg Config) (s *Store, err error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path != "":
		opts = badger.DefaultOptions(cfg.Path)
	default:
		err = fmt.Errorf("snapshot store needs a path unless in memory")
		return
	}
	var db *badger.DB
	if db, err = badger.Open(opts.WithLogger(nil)); err != nil {
		err = fmt.Errorf("opening snapshot store: %w", err)
		return
	}
	s = &Store{db: db}
	return
}

func (s *Store) Close() error {
	return s.db.Close()
}

func snapPrefix(runID string, index int) string {
	return fmt.Sprintf("run/%s/snap/%08d/", runID, index)
}

func metaKey(runID string, index int) []byte {
	return []byte(snapPrefix(runID, index) + "meta")
}

func blockKey(runID string, index, block int) []byte {
	return []byte(fmt.Sprintf("%sblock/%06d", snapPrefix(runID, index), block))
}

// WriteBlocks stores U[0] of every cell of the blocks in one transaction.
func (s *Store) WriteBlocks(runID string, index int, blocks []*mesh.Block) (err error) {
	return s.db.Update(func(txn *badger.Txn) (err error) {
		for _, b := range blocks {
			if err = txn.Set(blockKey(runID, index, b.ID), encodeBlock(b)); err != nil {
				return fmt.Errorf("block %d: %w", b.ID, err)
			}
		}
		return
	})
}

// WriteMeta completes a snapshot.
func (s *Store) WriteMeta(m Meta) (err error) {
	var buf bytes.Buffer
	if err = toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encoding snapshot meta: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(m.RunID, m.Index), buf.Bytes())
	})
}

func (s *Store) ReadMeta(runID string, index int) (m Meta, err error) {
	var val []byte
	if val, err = s.get(metaKey(runID, index)); err != nil {
		return
	}
	if _, err = toml.Decode(string(val), &m); err != nil {
		err = fmt.Errorf("decoding snapshot meta: %w", err)
	}
	return
}

// ReadBlock restores U[0] of every cell of b. The caller decodes the flow
// states.
func (s *Store) ReadBlock(runID string, index int, b *mesh.Block) (err error) {
	var val []byte
	if val, err = s.get(blockKey(runID, index, b.ID)); err != nil {
		return fmt.Errorf("block %d: %w", b.ID, err)
	}
	return decodeBlock(val, b)
}

func (s *Store) get(key []byte) (val []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNoSnapshot, key)
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return
}

// Indices lists the complete snapshots of a run in increasing order.
func (s *Store) Indices(runID string) (indices []int, err error) {
	prefix := []byte(fmt.Sprintf("run/%s/snap/", runID))
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if !strings.HasSuffix(key, "/meta") {
				continue
			}
			field := strings.TrimSuffix(strings.TrimPrefix(key, string(prefix)), "/meta")
			idx, err := strconv.Atoi(field)
			if err != nil {
				return fmt.Errorf("malformed snapshot key %q: %w", key, err)
			}
			indices = append(indices, idx)
		}
		return nil
	})
	return
}

// Latest is the highest complete snapshot index of a run.
func (s *Store) Latest(runID string) (index int, err error) {
	var indices []int
	if indices, err = s.Indices(runID); err != nil {
		return
	}
	if len(indices) == 0 {
		return 0, fmt.Errorf("%w: run %s has none", ErrNoSnapshot, runID)
	}
	return indices[len(indices)-1], nil
}

// Block data is the cell count, the conserved vector length, then U[0] of
// each cell, all little endian.
func encodeBlock(b *mesh.Block) []byte {
	var (
		n   = b.Layout.N
		buf = make([]byte, 16+8*n*len(b.Cells))
		off = 16
	)
	binary.LittleEndian.PutUint64(buf[0:], uint64(len(b.Cells)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(n))
	for _, c := range b.Cells {
		for _, v := range c.U[0] {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
			off += 8
		}
	}
	return buf
}

func decodeBlock(buf []byte, b *mesh.Block) (err error) {
	if len(buf) < 16 {
		return fmt.Errorf("block %d: truncated snapshot", b.ID)
	}
	var (
		nc = int(binary.LittleEndian.Uint64(buf[0:]))
		n  = int(binary.LittleEndian.Uint64(buf[8:]))
	)
	if nc != len(b.Cells) || n != b.Layout.N || len(buf) != 16+8*n*nc {
		return fmt.Errorf("block %d: snapshot has %d cells of %d values, block has %d of %d",
			b.ID, nc, n, len(b.Cells), b.Layout.N)
	}
	off := 16
	for _, c := range b.Cells {
		for i := range c.U[0] {
			c.U[0][i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
			off += 8
		}
	}
	return
}
